package api

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ott-server/internal/httpcodec"
	"ott-server/internal/logging"
	"ott-server/internal/metrics"
)

// Serve reads and handles exactly one request from conn and then closes
// conn itself — every response on this non-keep-alive server ends the
// connection.
func (s *Server) Serve(conn net.Conn) {
	defer conn.Close()

	req, err := httpcodec.ReadRequest(conn)
	if err != nil {
		logging.Debug("api: failed to read request: %v", err)
		return
	}

	ctx := &RequestContext{Server: s, Conn: conn, Req: req}

	start := time.Now()
	metrics.HTTPRequestsInFlight.Inc()
	defer metrics.HTTPRequestsInFlight.Dec()

	route := req.Path
	outcome := s.dispatch(ctx)

	metrics.HTTPRequestsTotal.WithLabelValues(req.Method, route, outcome).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
}

// dispatch matches the route table, falling back to static asset serving
// for non-/api GET requests and a 404 JSON envelope otherwise. It returns
// a coarse outcome label ("routed", "static", "not_found") for metrics,
// since individual handlers write their own status codes directly to the
// connection and don't report them back up.
func (s *Server) dispatch(ctx *RequestContext) string {
	if handler, params, ok := s.Router.Match(ctx.Req.Method, ctx.Req.Path); ok {
		ctx.Params = params
		handler(ctx, params)
		return "routed"
	}

	if ctx.Req.Method == "GET" && !strings.HasPrefix(ctx.Req.Path, "/api/") {
		serveStatic(ctx)
		return "static"
	}

	writeErrorBody(ctx, 404, "not found")
	return "not_found"
}

var mimeTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".mp4":  "video/mp4",
}

func mimeType(path string) string {
	if t, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return "application/octet-stream"
}

// serveStatic serves files out of Server.StaticDir, mapping "/" to
// index.html and rejecting any ".." path-traversal attempt.
func serveStatic(ctx *RequestContext) {
	reqPath := ctx.Req.Path
	if reqPath == "/" {
		reqPath = "/index.html"
	}

	if strings.Contains(reqPath, "..") {
		writeErrorBody(ctx, 403, "forbidden")
		return
	}

	fullPath := filepath.Join(ctx.Server.StaticDir, filepath.Clean(reqPath))

	f, err := os.Open(fullPath)
	if err != nil {
		writeErrorBody(ctx, 404, "not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeErrorBody(ctx, 404, "not found")
		return
	}

	headers := withSecurityHeaders(httpcodec.Header{})
	headers.Set("Content-Type", mimeType(fullPath))
	httpcodec.WriteFileResponse(ctx.Conn, 200, headers, f, info.Size())
}
