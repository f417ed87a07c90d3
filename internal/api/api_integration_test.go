package api

import (
	"bufio"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ott-server/internal/auth"
	"ott-server/internal/catalog"
	"ott-server/internal/store"
	"ott-server/internal/thumbnail"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mediaDir := t.TempDir()
	staticDir := t.TempDir()
	thumbDir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	os.WriteFile(filepath.Join(mediaDir, "my_movie.mp4"), []byte("0123456789"), 0o644)
	os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>home</html>"), 0o644)

	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	authSvc := auth.New(s, 24*time.Hour)
	cat := catalog.New(s, mediaDir, time.Hour)
	if err := cat.Sync(); err != nil {
		t.Fatalf("catalog.Sync() error = %v", err)
	}
	thumbs := thumbnail.New(thumbDir, "true", nil)

	return New(s, authSvc, cat, thumbs, mediaDir, staticDir)
}

// roundTrip sends raw over a net.Pipe to srv.Serve and returns the full
// raw response text.
func roundTrip(t *testing.T, srv *Server, raw string) string {
	t.Helper()
	client, server := net.Pipe()

	done := make(chan struct{})
	go func() {
		srv.Serve(server)
		close(done)
	}()

	go func() {
		io.WriteString(client, raw)
	}()

	reader := bufio.NewReader(client)
	var out strings.Builder
	buf := make([]byte, 4096)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	client.Close()
	<-done
	return out.String()
}

func TestRegisterLoginFlow(t *testing.T) {
	srv := newTestServer(t)

	body := `{"username":"alice","password":"password1","confirmPassword":"password1"}`
	req := "POST /api/auth/register HTTP/1.1\r\nContent-Length: " + itoaLen(body) + "\r\n\r\n" + body
	resp := roundTrip(t, srv, req)

	if !strings.HasPrefix(resp, "HTTP/1.1 200") {
		t.Fatalf("expected 200, got response: %q", resp)
	}
	if !strings.Contains(resp, "Set-Cookie: ott_session=") {
		t.Errorf("expected Set-Cookie header, got %q", resp)
	}
	if !strings.Contains(resp, `"username":"alice"`) {
		t.Errorf("expected username in body, got %q", resp)
	}
}

func TestRegisterDuplicateReturns409(t *testing.T) {
	srv := newTestServer(t)
	body := `{"username":"alice","password":"password1","confirmPassword":"password1"}`
	req := "POST /api/auth/register HTTP/1.1\r\nContent-Length: " + itoaLen(body) + "\r\n\r\n" + body

	roundTrip(t, srv, req)
	resp := roundTrip(t, srv, req)
	if !strings.HasPrefix(resp, "HTTP/1.1 409") {
		t.Fatalf("expected 409, got %q", resp)
	}
}

func TestRegisterShortUsernameReturns400(t *testing.T) {
	srv := newTestServer(t)
	body := `{"username":"ab","password":"password1","confirmPassword":"password1"}`
	req := "POST /api/auth/register HTTP/1.1\r\nContent-Length: " + itoaLen(body) + "\r\n\r\n" + body
	resp := roundTrip(t, srv, req)
	if !strings.HasPrefix(resp, "HTTP/1.1 400") {
		t.Fatalf("expected 400, got %q", resp)
	}
}

func TestMeWithoutSessionReturns401(t *testing.T) {
	srv := newTestServer(t)
	req := "GET /api/auth/me HTTP/1.1\r\n\r\n"
	resp := roundTrip(t, srv, req)
	if !strings.HasPrefix(resp, "HTTP/1.1 401") {
		t.Fatalf("expected 401, got %q", resp)
	}
}

func TestStaticIndexServed(t *testing.T) {
	srv := newTestServer(t)
	resp := roundTrip(t, srv, "GET / HTTP/1.1\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.1 200") {
		t.Fatalf("expected 200, got %q", resp)
	}
	if !strings.Contains(resp, "home") {
		t.Errorf("expected index.html body, got %q", resp)
	}
}

func TestStaticTraversalRejected(t *testing.T) {
	srv := newTestServer(t)
	resp := roundTrip(t, srv, "GET /../../etc/passwd HTTP/1.1\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.1 403") {
		t.Fatalf("expected 403, got %q", resp)
	}
}

func TestUnknownAPIRouteReturns404JSON(t *testing.T) {
	srv := newTestServer(t)
	resp := roundTrip(t, srv, "GET /api/does-not-exist HTTP/1.1\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.1 404") {
		t.Fatalf("expected 404, got %q", resp)
	}
	if !strings.Contains(resp, `"error"`) {
		t.Errorf("expected JSON error envelope, got %q", resp)
	}
}

func TestHealthEndpointsReportReady(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/healthz", "/livez", "/readyz"} {
		resp := roundTrip(t, srv, "GET "+path+" HTTP/1.1\r\n\r\n")
		if !strings.HasPrefix(resp, "HTTP/1.1 200") {
			t.Errorf("GET %s: expected 200, got %q", path, resp)
		}
	}
}

func TestSecurityHeadersPresent(t *testing.T) {
	srv := newTestServer(t)
	resp := roundTrip(t, srv, "GET / HTTP/1.1\r\n\r\n")
	for _, header := range []string{"X-Content-Type-Options: nosniff", "X-Frame-Options: DENY", "Content-Security-Policy:"} {
		if !strings.Contains(resp, header) {
			t.Errorf("expected header %q in response, got %q", header, resp)
		}
	}
}

// registerAndGetCookie registers a new user and returns its session cookie
// value, for tests that need an authenticated request.
func registerAndGetCookie(t *testing.T, srv *Server, username string) string {
	t.Helper()
	body := `{"username":"` + username + `","password":"password1","confirmPassword":"password1"}`
	req := "POST /api/auth/register HTTP/1.1\r\nContent-Length: " + itoaLen(body) + "\r\n\r\n" + body
	resp := roundTrip(t, srv, req)
	if !strings.HasPrefix(resp, "HTTP/1.1 200") {
		t.Fatalf("register: expected 200, got %q", resp)
	}
	const marker = "Set-Cookie: "
	i := strings.Index(resp, marker)
	if i < 0 {
		t.Fatalf("register: no Set-Cookie header in %q", resp)
	}
	rest := resp[i+len(marker):]
	end := strings.IndexAny(rest, ";\r\n")
	if end < 0 {
		t.Fatalf("register: malformed Set-Cookie in %q", resp)
	}
	return rest[:end]
}

func TestUpdateHistoryReturns200WithStatusOK(t *testing.T) {
	srv := newTestServer(t)
	cookie := registerAndGetCookie(t, srv, "bob")

	videoID, err := srv.Store.UpsertVideo("My Movie", "my_movie.mp4", nil, nil)
	if err != nil {
		t.Fatalf("UpsertVideo() error = %v", err)
	}

	body := `{"position":42}`
	req := "POST /api/history/" + formatID(videoID) + " HTTP/1.1\r\n" +
		"Cookie: " + cookie + "\r\n" +
		"Content-Length: " + itoaLen(body) + "\r\n\r\n" + body
	resp := roundTrip(t, srv, req)

	if !strings.HasPrefix(resp, "HTTP/1.1 200") {
		t.Fatalf("expected 200, got %q", resp)
	}
	if !strings.Contains(resp, `{"status":"ok"}`) {
		t.Errorf("expected {\"status\":\"ok\"} body, got %q", resp)
	}
}

func TestUpdateHistoryNormalizesNearCompletionToZero(t *testing.T) {
	srv := newTestServer(t)
	cookie := registerAndGetCookie(t, srv, "carol")

	duration := 100
	videoID, err := srv.Store.UpsertVideo("My Movie", "my_movie.mp4", nil, &duration)
	if err != nil {
		t.Fatalf("UpsertVideo() error = %v", err)
	}

	// 97 is within completionEpsilonSeconds of the 100s duration, so the
	// stored position must normalize to 0 rather than 97.
	body := `{"position":97}`
	req := "POST /api/history/" + formatID(videoID) + " HTTP/1.1\r\n" +
		"Cookie: " + cookie + "\r\n" +
		"Content-Length: " + itoaLen(body) + "\r\n\r\n" + body
	resp := roundTrip(t, srv, req)
	if !strings.HasPrefix(resp, "HTTP/1.1 200") {
		t.Fatalf("expected 200, got %q", resp)
	}

	var entries []float64
	if err := srv.Store.ListWatchHistory(1, func(e store.HistoryEntry) {
		if e.VideoID == videoID {
			entries = append(entries, e.Position)
		}
	}); err != nil {
		t.Fatalf("ListWatchHistory() error = %v", err)
	}
	if len(entries) != 1 || entries[0] != 0 {
		t.Errorf("got history entries %+v, want single entry normalized to position 0", entries)
	}
}

func itoaLen(s string) string {
	n := len(s)
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
