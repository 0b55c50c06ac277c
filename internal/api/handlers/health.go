package handlers

import (
	"context"
	"net/http"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	checks map[string]func(context.Context) error
}

// NewHealthHandler takes the database pool and a Redis ping; either may be
// nil to skip its check.
func NewHealthHandler(db Pinger, redisPing func(context.Context) error) *HealthHandler {
	checks := map[string]func(context.Context) error{}
	if db != nil {
		checks["database"] = db.Ping
	}
	if redisPing != nil {
		checks["redis"] = redisPing
	}
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]string, len(h.checks))
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			results[name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	writeJSON(w, status, map[string]interface{}{"status": statusStr(status), "checks": results})
}

func statusStr(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return "unhealthy"
}
