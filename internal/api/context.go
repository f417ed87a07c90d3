// Package api implements the public HTTP endpoint table: request
// dispatch, authentication binding, JSON responses, range-streamed video,
// thumbnails, and static asset serving. It is the top of the stack that
// wires router, httpcodec, auth, store, catalog, rangefile, and
// thumbnail together.
package api

import (
	"net"
	"time"

	"ott-server/internal/auth"
	"ott-server/internal/catalog"
	"ott-server/internal/httpcodec"
	"ott-server/internal/router"
	"ott-server/internal/store"
	"ott-server/internal/thumbnail"
)

// securityHeaders are prepended to every response, success or error.
var securityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"Content-Security-Policy": "default-src 'self'; img-src 'self' data:; " +
		"media-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self';",
}

// RequestContext is the per-request, worker-local state threaded through
// a single handler invocation.
type RequestContext struct {
	Server *Server
	Conn   net.Conn
	Req    *httpcodec.Request
	Params []router.Param

	Auth   auth.Authenticated
	IsAuth bool
}

// Param returns the value bound to name, or "" if absent.
func (c *RequestContext) Param(name string) string {
	for _, p := range c.Params {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// Server holds every subsystem the HTTP endpoints depend on.
type Server struct {
	Store     *store.Store
	Auth      *auth.Service
	Catalog   *catalog.Engine
	Thumbs    *thumbnail.Generator
	MediaDir  string
	StaticDir string
	Router    *router.Router

	startedAt time.Time
}

// New constructs a Server and builds its route table.
func New(s *store.Store, a *auth.Service, c *catalog.Engine, t *thumbnail.Generator, mediaDir, staticDir string) *Server {
	srv := &Server{
		Store:     s,
		Auth:      a,
		Catalog:   c,
		Thumbs:    t,
		MediaDir:  mediaDir,
		StaticDir: staticDir,
		startedAt: time.Now(),
	}
	srv.Router = buildRoutes(srv)
	return srv
}

func buildRoutes(s *Server) *router.Router {
	r := router.New()
	r.Handle("GET", "/health", wrap(s, handleHealth))
	r.Handle("GET", "/healthz", wrap(s, handleHealth))
	r.Handle("GET", "/livez", wrap(s, handleLiveness))
	r.Handle("GET", "/readyz", wrap(s, handleReadiness))
	r.Handle("POST", "/api/auth/login", wrap(s, handleLogin))
	r.Handle("POST", "/api/auth/register", wrap(s, handleRegister))
	r.Handle("POST", "/api/auth/logout", wrap(s, handleLogout))
	r.Handle("GET", "/api/auth/me", wrap(s, handleMe))
	r.Handle("GET", "/api/videos", wrap(s, handleListVideos))
	r.Handle("GET", "/api/videos/:id/stream", wrap(s, handleStream))
	r.Handle("GET", "/api/videos/:id/thumbnail", wrap(s, handleThumbnail))
	r.Handle("GET", "/api/history", wrap(s, handleListHistory))
	r.Handle("POST", "/api/history/:id", wrap(s, handleUpdateHistory))
	return r
}

// wrap adapts a (*RequestContext) handler into a router.Handler, and binds
// each request's authentication outcome before invoking it.
func wrap(s *Server, h func(*RequestContext)) router.Handler {
	return func(ctxVal interface{}, params []router.Param) {
		ctx := ctxVal.(*RequestContext)
		ctx.Params = params

		token := auth.ParseSessionToken(ctx.Req.Headers.Get("Cookie"))
		if authed, err := s.Auth.Authenticate(token); err == nil {
			ctx.Auth = authed
			ctx.IsAuth = true
		}

		h(ctx)
	}
}
