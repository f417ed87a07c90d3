package auth

import (
	"net/http"
	"testing"
	"time"

	"ott-server/internal/apperr"
	"ott-server/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	path := t.TempDir() + "/test.db"
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, 24*time.Hour)
}

func TestRegisterThenLogin(t *testing.T) {
	a := newTestService(t)

	reg, err := a.Register("alice", "password1", "password1")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.Username != "alice" || reg.Token == "" {
		t.Fatalf("unexpected register result: %+v", reg)
	}

	login, err := a.Login("alice", "password1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if login.UserID != reg.UserID {
		t.Errorf("got UserID %d, want %d", login.UserID, reg.UserID)
	}
}

func TestRegisterDuplicateConflicts(t *testing.T) {
	a := newTestService(t)

	if _, err := a.Register("alice", "password1", "password1"); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	_, err := a.Register("alice", "password1", "password1")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.Conflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestRegisterRejectsShortUsername(t *testing.T) {
	a := newTestService(t)

	_, err := a.Register("ab", "password1", "password1")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.BadRequest {
		t.Fatalf("expected BadRequest, got %v", err)
	}
}

func TestRegisterRejectsMismatchedConfirm(t *testing.T) {
	a := newTestService(t)

	_, err := a.Register("alice", "password1", "password2")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.BadRequest {
		t.Fatalf("expected BadRequest, got %v", err)
	}
}

func TestLoginWithWrongPasswordUnauthorized(t *testing.T) {
	a := newTestService(t)
	a.Register("alice", "password1", "password1")

	_, err := a.Login("alice", "wrongpass")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.Unauthorized {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestLoginUnknownUserUnauthorized(t *testing.T) {
	a := newTestService(t)

	_, err := a.Login("ghost", "password1")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.Unauthorized {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestAuthenticateRoundTrip(t *testing.T) {
	a := newTestService(t)
	reg, _ := a.Register("alice", "password1", "password1")

	authed, err := a.Authenticate(reg.Token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if authed.UserID != reg.UserID || authed.Username != "alice" {
		t.Errorf("got %+v", authed)
	}
}

func TestAuthenticateExpiredSessionFails(t *testing.T) {
	a := newTestService(t)
	reg, _ := a.Register("alice", "password1", "password1")

	// Force the session to be already expired.
	a.store.CreateSession(reg.Token, reg.UserID, time.Now().Add(-time.Minute))

	_, err := a.Authenticate(reg.Token)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.Unauthorized {
		t.Fatalf("expected Unauthorized for expired session, got %v", err)
	}

	if _, err := a.store.GetSession(reg.Token); err == nil {
		t.Error("expected expired session to be opportunistically deleted")
	}
}

func TestLogoutDeletesSession(t *testing.T) {
	a := newTestService(t)
	reg, _ := a.Register("alice", "password1", "password1")

	if err := a.Logout(reg.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := a.Authenticate(reg.Token); err == nil {
		t.Error("expected session to be gone after logout")
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	a := newTestService(t)

	if err := a.Seed(); err != nil {
		t.Fatalf("first Seed() error = %v", err)
	}
	if err := a.Seed(); err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}

	login, err := a.Login(SeedUsers[0].Username, SeedUsers[0].Password)
	if err != nil {
		t.Fatalf("Login() with seed credentials error = %v", err)
	}
	if login.Username != SeedUsers[0].Username {
		t.Errorf("got %+v", login)
	}
}

func TestSessionCookieFormat(t *testing.T) {
	c := SessionCookie("tok123", 24*time.Hour)
	if c.Name != SessionCookieName || c.Value != "tok123" {
		t.Errorf("unexpected cookie %+v", c)
	}
	if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode || c.Path != "/" || c.MaxAge != 86400 {
		t.Errorf("unexpected cookie attributes %+v", c)
	}
}

func TestExpiredCookieClearsSession(t *testing.T) {
	c := ExpiredCookie()
	if c.MaxAge != -1 {
		t.Errorf("expected MaxAge -1, got %d", c.MaxAge)
	}
	if !c.Expires.Before(time.Now()) {
		t.Error("expected Expires in the past")
	}
}

func TestParseSessionToken(t *testing.T) {
	token := ParseSessionToken("other=1; ott_session=abc123; more=2")
	if token != "abc123" {
		t.Errorf("got %q, want abc123", token)
	}
}

func TestParseSessionTokenAbsent(t *testing.T) {
	if got := ParseSessionToken("other=1"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
