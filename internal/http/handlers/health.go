package handlers

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health reports database and cache reachability. The database is required;
// an unreachable cache only degrades the service.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	code := http.StatusOK

	switch {
	case a.DB == nil:
		resp.Checks["database"] = "disabled"
	case a.DB.Ping(ctx) != nil:
		resp.Checks["database"] = "error"
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	default:
		resp.Checks["database"] = "ok"
	}

	switch {
	case !a.Cache.Enabled():
		resp.Checks["cache"] = "disabled"
	case a.Cache.Ping(ctx) != nil:
		resp.Checks["cache"] = "error"
		if resp.Status == "ok" {
			resp.Status = "degraded"
		}
	default:
		resp.Checks["cache"] = "ok"
	}

	a.json(w, code, resp)
}
