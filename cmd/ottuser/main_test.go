package main

import (
	"path/filepath"
	"testing"

	"ott-server/internal/auth"
	"ott-server/internal/store"
)

func TestPrintUsage(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("printUsage panicked: %v", r)
		}
	}()
	printUsage()
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestListUsersEmpty(t *testing.T) {
	s := setupTestStore(t)
	// Should not panic on an empty store.
	listUsers(s)
}

func TestListUsersReturnsCreatedUser(t *testing.T) {
	s := setupTestStore(t)
	hash, salt, err := auth.HashPassword("password1")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if _, err := s.CreateUser("alice", hash, salt); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	usernames, err := s.ListUsernames()
	if err != nil {
		t.Fatalf("ListUsernames() error = %v", err)
	}
	if len(usernames) != 1 || usernames[0] != "alice" {
		t.Errorf("ListUsernames() = %v, want [alice]", usernames)
	}
}

func TestDeleteUserRemovesAccount(t *testing.T) {
	s := setupTestStore(t)
	hash, salt, _ := auth.HashPassword("password1")
	if _, err := s.CreateUser("bob", hash, salt); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if err := s.DeleteUser("bob"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	if _, err := s.GetUserCredentials("bob"); err == nil {
		t.Error("expected GetUserCredentials to fail after delete")
	}
}

func TestUpdateUserPasswordChangesHash(t *testing.T) {
	s := setupTestStore(t)
	hash, salt, _ := auth.HashPassword("password1")
	if _, err := s.CreateUser("carol", hash, salt); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	newHash, newSalt, _ := auth.HashPassword("password2")
	if err := s.UpdateUserPassword("carol", newHash, newSalt); err != nil {
		t.Fatalf("UpdateUserPassword() error = %v", err)
	}

	u, err := s.GetUserCredentials("carol")
	if err != nil {
		t.Fatalf("GetUserCredentials() error = %v", err)
	}
	if string(u.Hash) != string(newHash) {
		t.Error("expected hash to be updated")
	}
}
