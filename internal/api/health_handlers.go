package api

import (
	"runtime"
	"time"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
)

type healthResponse struct {
	Status       string `json:"status"`
	Ready        bool   `json:"ready"`
	Uptime       string `json:"uptime"`
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// handleHealth reports overall service health, combining catalog readiness
// with process-level diagnostics.
func handleHealth(ctx *RequestContext) {
	ready := ctx.Server.Catalog.Ready()

	status := statusHealthy
	httpStatus := 200
	if !ready {
		status = statusStarting
		httpStatus = 503
	}

	writeJSON(ctx, httpStatus, healthResponse{
		Status:       status,
		Ready:        ready,
		Uptime:       time.Since(ctx.Server.startedAt).String(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	})
}

// handleLiveness is a bare liveness probe: any response at all means the
// process is alive and serving connections.
func handleLiveness(ctx *RequestContext) {
	writeJSON(ctx, 200, map[string]string{"status": "alive"})
}

// handleReadiness returns 200 only once the catalog has completed at
// least one sync.
func handleReadiness(ctx *RequestContext) {
	if ctx.Server.Catalog.Ready() {
		writeJSON(ctx, 200, map[string]string{"status": "ready"})
		return
	}
	writeJSON(ctx, 503, map[string]string{"status": "not_ready"})
}
