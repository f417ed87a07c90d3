// Package auth implements password hashing, session issuance, and cookie
// lifecycle for the server's single opaque-token session model.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"regexp"
	"time"

	"ott-server/internal/apperr"
	"ott-server/internal/logging"
	"ott-server/internal/metrics"
	"ott-server/internal/store"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "ott_session"

	saltLength       = 16
	hashLength       = 32
	pbkdf2Iterations = 200_000
	tokenLength      = 32

	usernameMin = 3
	usernameMax = 32
	passwordMin = 8
	passwordMax = 128
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// SeedUsers are the fixed (username, password) pairs inserted idempotently
// at first boot, per spec §4.5.
var SeedUsers = []struct{ Username, Password string }{
	{"test", "test1234"},
	{"admin", "changeme123"},
}

// Service wires the store to the authentication operations.
type Service struct {
	store      *store.Store
	sessionTTL time.Duration
}

// New creates an authentication Service bound to store with the given
// session TTL.
func New(s *store.Store, sessionTTL time.Duration) *Service {
	return &Service{store: s, sessionTTL: sessionTTL}
}

// Seed inserts each SeedUsers entry if and only if no row exists yet for
// that username.
func (a *Service) Seed() error {
	for _, u := range SeedUsers {
		hash, salt, err := derive(u.Password, nil)
		if err != nil {
			return err
		}
		if err := a.store.UpsertUser(u.Username, hash, salt); err != nil {
			return err
		}
	}
	return nil
}

// derive computes the PBKDF2-HMAC-SHA256 hash for password. If salt is nil,
// a fresh random 16-byte salt is generated.
func derive(password string, salt []byte) (hash, usedSalt []byte, err error) {
	if salt == nil {
		salt = make([]byte, saltLength)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, apperr.Internalf(err, "generate salt")
		}
	}
	hash = pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, hashLength, sha256.New)
	return hash, salt, nil
}

// HashPassword derives a fresh salt and hash for password, for use by
// operator tooling that creates or resets credentials outside of Register.
func HashPassword(password string) (hash, salt []byte, err error) {
	return derive(password, nil)
}

// verify re-derives the hash with the stored salt and compares in constant
// time.
func verify(password string, storedHash, storedSalt []byte) bool {
	derived := pbkdf2.Key([]byte(password), storedSalt, pbkdf2Iterations, hashLength, sha256.New)
	return subtle.ConstantTimeCompare(derived, storedHash) == 1
}

// GenerateToken returns a fresh 32-byte random token, base64url-encoded
// with padding stripped.
func GenerateToken() (string, error) {
	raw := make([]byte, tokenLength)
	if _, err := rand.Read(raw); err != nil {
		return "", apperr.Internalf(err, "generate session token")
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// ValidateUsername enforces the registration username rules.
func ValidateUsername(username string) error {
	if len(username) < usernameMin || len(username) > usernameMax {
		return apperr.BadRequestf("username must be %d-%d characters", usernameMin, usernameMax)
	}
	if !usernamePattern.MatchString(username) {
		return apperr.BadRequestf("username may only contain letters, digits, and underscores")
	}
	return nil
}

// ValidatePassword enforces the registration password rules.
func ValidatePassword(password, confirm string) error {
	if len(password) < passwordMin || len(password) > passwordMax {
		return apperr.BadRequestf("password must be %d-%d characters", passwordMin, passwordMax)
	}
	if password != confirm {
		return apperr.BadRequestf("passwords do not match")
	}
	return nil
}

// Result holds the outcome of a successful login/register.
type Result struct {
	UserID   int64
	Username string
	Token    string
	ExpiresAt time.Time
}

// Login validates credentials, issues a session, and purges expired
// sessions as a side effect.
func (a *Service) Login(username, password string) (Result, error) {
	if err := a.store.PurgeExpiredSessions(time.Now()); err != nil {
		return Result{}, err
	}

	u, err := a.store.GetUserCredentials(username)
	if err != nil {
		logging.Warn("auth: login failed for %q: unknown user", username)
		metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid").Inc()
		return Result{}, apperr.Unauthorizedf("invalid username or password")
	}

	if !verify(password, u.Hash, u.Salt) {
		logging.Warn("auth: login failed for %q: wrong password", username)
		metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid").Inc()
		return Result{}, apperr.Unauthorizedf("invalid username or password")
	}

	result, err := a.issueSession(u.ID, username)
	if err != nil {
		return Result{}, err
	}
	logging.Info("auth: %q logged in", username)
	metrics.AuthAttemptsTotal.WithLabelValues("login", "ok").Inc()
	return result, nil
}

// Register validates input, creates a user, and issues a session exactly
// as Login.
func (a *Service) Register(username, password, confirm string) (Result, error) {
	if err := ValidateUsername(username); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "validation").Inc()
		return Result{}, err
	}
	if err := ValidatePassword(password, confirm); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "validation").Inc()
		return Result{}, err
	}

	hash, salt, err := derive(password, nil)
	if err != nil {
		return Result{}, err
	}

	userID, err := a.store.CreateUser(username, hash, salt)
	if err != nil {
		if ae, ok := apperr.As(err); ok && ae.Kind == apperr.Conflict {
			metrics.AuthAttemptsTotal.WithLabelValues("register", "duplicate").Inc()
		}
		return Result{}, err
	}

	result, err := a.issueSession(userID, username)
	if err != nil {
		return Result{}, err
	}
	logging.Info("auth: %q registered", username)
	metrics.AuthAttemptsTotal.WithLabelValues("register", "ok").Inc()
	return result, nil
}

func (a *Service) issueSession(userID int64, username string) (Result, error) {
	token, err := GenerateToken()
	if err != nil {
		return Result{}, err
	}
	expiresAt := time.Now().Add(a.sessionTTL)
	if err := a.store.CreateSession(token, userID, expiresAt); err != nil {
		return Result{}, err
	}
	a.store.CountActiveSessions()
	return Result{UserID: userID, Username: username, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout deletes the session for token, if any.
func (a *Service) Logout(token string) error {
	if token == "" {
		return nil
	}
	if err := a.store.DeleteSession(token); err != nil {
		return err
	}
	a.store.CountActiveSessions()
	return nil
}

// Authenticated holds the outcome of authenticating a request.
type Authenticated struct {
	UserID   int64
	Username string
}

// Authenticate resolves a session token to a user, deleting it
// opportunistically if expired.
func (a *Service) Authenticate(token string) (Authenticated, error) {
	if token == "" {
		return Authenticated{}, apperr.Unauthorizedf("no session")
	}

	sess, err := a.store.GetSession(token)
	if err != nil {
		return Authenticated{}, apperr.Unauthorizedf("invalid session")
	}

	if !sess.ExpiresAt.After(time.Now()) {
		_ = a.store.DeleteSession(token)
		return Authenticated{}, apperr.Unauthorizedf("session expired")
	}

	username, err := a.store.GetUsernameByID(sess.UserID)
	if err != nil {
		return Authenticated{}, apperr.Unauthorizedf("invalid session")
	}

	return Authenticated{UserID: sess.UserID, Username: username}, nil
}

// SessionCookie builds the Set-Cookie value for an active session.
func SessionCookie(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
	}
}

// ExpiredCookie builds the Set-Cookie value that clears the session cookie
// on logout.
func ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	}
}

// ParseSessionToken extracts the ott_session cookie value from a raw
// Cookie header, if present.
func ParseSessionToken(cookieHeader string) string {
	req := http.Request{Header: http.Header{"Cookie": {cookieHeader}}}
	c, err := req.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
