package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nikhilbhutani/petdesk/internal/audit"
)

type AdminHandler struct {
	auditSvc *audit.Service
}

func NewAdminHandler(auditSvc *audit.Service) *AdminHandler {
	return &AdminHandler{auditSvc: auditSvc}
}

// AuditLogs lists the tenant's admin actions, newest first.
func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	q := audit.AuditQuery{
		Action: r.URL.Query().Get("action"),
		Limit:  queryInt(r, "limit", 50),
	}
	q.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start_date must be RFC 3339")
			return
		}
		q.StartDate = &t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end_date must be RFC 3339")
			return
		}
		q.EndDate = &t
	}

	logs, err := h.auditSvc.GetAuditLogs(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"audit_logs": logs, "count": len(logs)})
}
