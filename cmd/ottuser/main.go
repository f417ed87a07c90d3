package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"ott-server/internal/auth"
	"ott-server/internal/store"

	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dataDir := os.Getenv("DATA_DIR")
		if dataDir == "" {
			dataDir = "./data"
		}
		dbPath = filepath.Join(dataDir, "app.db")
	}

	s, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DB_PATH or DATA_DIR is set correctly (current db path: %s)\n", dbPath)
		os.Exit(1)
	}
	defer func() {
		if err := s.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	switch command {
	case "create":
		if !createUser(s) {
			os.Exit(1)
		}
	case "list":
		listUsers(s)
	case "reset":
		if !resetPassword(s) {
			os.Exit(1)
		}
	case "delete":
		deleteUser(s)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("ott-server User Management")
	fmt.Println("")
	fmt.Println("Usage: ottuser <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  create  - Create a new user")
	fmt.Println("  list    - List all users")
	fmt.Println("  reset   - Reset a user's password")
	fmt.Println("  delete  - Delete a user")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Println("  DATA_DIR - Path to data directory (default: ./data)")
	fmt.Println("  DB_PATH  - Full database path, overrides DATA_DIR")
}

func readPasswordPair() (password []byte, ok bool) {
	fmt.Print("Password: ")
	password, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		return nil, false
	}

	fmt.Print("Confirm Password: ")
	confirm, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		return nil, false
	}

	if !bytes.Equal(password, confirm) {
		fmt.Fprintln(os.Stderr, "Error: Passwords do not match")
		return nil, false
	}

	if err := auth.ValidatePassword(string(password), string(confirm)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, false
	}

	return password, true
}

func createUser(s *store.Store) bool {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)

	if err := auth.ValidateUsername(username); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	password, ok := readPasswordPair()
	if !ok {
		return false
	}

	hash, salt, err := auth.HashPassword(string(password))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to hash password: %v\n", err)
		return false
	}

	if _, err := s.CreateUser(username, hash, salt); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to create user: %v\n", err)
		return false
	}

	fmt.Printf("User %q created successfully\n", username)
	return true
}

func listUsers(s *store.Store) {
	usernames, err := s.ListUsernames()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to list users: %v\n", err)
		return
	}
	if len(usernames) == 0 {
		fmt.Println("No users found.")
		return
	}
	fmt.Println("Users:")
	for _, u := range usernames {
		fmt.Printf("  %s\n", u)
	}
}

func resetPassword(s *store.Store) bool {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)

	if username == "" {
		fmt.Fprintln(os.Stderr, "Error: Username cannot be empty")
		return false
	}

	if _, err := s.GetUserCredentials(username); err != nil {
		fmt.Fprintf(os.Stderr, "Error: User %q not found\n", username)
		return false
	}

	password, ok := readPasswordPair()
	if !ok {
		return false
	}

	hash, salt, err := auth.HashPassword(string(password))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to hash password: %v\n", err)
		return false
	}

	if err := s.UpdateUserPassword(username, hash, salt); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to update password: %v\n", err)
		return false
	}

	fmt.Printf("Password updated successfully for user %q\n", username)
	fmt.Println("All existing sessions for this user have been invalidated.")
	return true
}

func deleteUser(s *store.Store) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Username to delete: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)

	if username == "" {
		fmt.Fprintln(os.Stderr, "Error: Username cannot be empty")
		return
	}

	if _, err := s.GetUserCredentials(username); err != nil {
		fmt.Fprintf(os.Stderr, "Error: User %q not found\n", username)
		return
	}

	fmt.Printf("Are you sure you want to delete user %q? (yes/no): ", username)
	confirm, _ := reader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))

	if confirm != "yes" {
		fmt.Println("Canceled.")
		return
	}

	if err := s.DeleteUser(username); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to delete user: %v\n", err)
		return
	}

	fmt.Printf("User %q deleted successfully\n", username)
}
