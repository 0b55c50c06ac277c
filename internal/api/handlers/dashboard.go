package handlers

import (
	"net/http"
	"time"

	"github.com/nikhilbhutani/petdesk/internal/dashboard"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

type DashboardHandler struct {
	svc *dashboard.Service
	now func() time.Time
}

func NewDashboardHandler(svc *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{svc: svc, now: time.Now}
}

// Day serves ?date=YYYY-MM-DD, defaulting to today in the tenant zone.
func (h *DashboardHandler) Day(w http.ResponseWriter, r *http.Request) {
	loc := h.svc.Location()
	date := h.now().In(loc)
	if v := r.URL.Query().Get("date"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = t
	}

	d, err := h.svc.Day(r.Context(), tenant.FromContext(r.Context()), date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Month serves ?month=YYYY-MM, defaulting to the current month.
func (h *DashboardHandler) Month(w http.ResponseWriter, r *http.Request) {
	loc := h.svc.Location()
	ref := h.now().In(loc)
	if v := r.URL.Query().Get("month"); v != "" {
		t, err := time.ParseInLocation("2006-01", v, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		ref = t
	}

	m, err := h.svc.Month(r.Context(), tenant.FromContext(r.Context()), ref.Year(), ref.Month())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
