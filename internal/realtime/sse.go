package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

const keepAlive = 25 * time.Second

// ServeHTTP streams change events for the caller's tenant as server-sent
// events. The tables query parameter narrows the stream.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := tenant.FromContext(r.Context())
	if !sess.HasProfile() {
		writeError(w, http.StatusForbidden, tenant.ErrNoTenant.Error())
		return
	}
	selected, err := ParseTables(r.URL.Query().Get("tables"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	events, err := h.Subscribe(ctx, sess.TenantID(), selected)
	if err != nil {
		slog.Error("realtime subscribe failed", "tenant_id", sess.TenantID(), "error", err)
		writeError(w, http.StatusServiceUnavailable, "realtime unavailable")
		return
	}

	// The stream outlives the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		slog.Debug("could not clear write deadline", "error", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	h.metrics.SubscriberDelta(1)
	defer h.metrics.SubscriberDelta(-1)

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Table, data)
			flusher.Flush()
		}
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
