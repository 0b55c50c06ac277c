package handlers

import (
	"net/http"
	"time"

	"github.com/nikhilbhutani/petdesk/internal/calendar"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

type CalendarHandler struct {
	svc    *calendar.Service
	syncer *calendar.Syncer
}

func NewCalendarHandler(svc *calendar.Service, syncer *calendar.Syncer) *CalendarHandler {
	return &CalendarHandler{svc: svc, syncer: syncer}
}

type calendarAction struct {
	Action  string          `json:"action" validate:"required,oneof=get-auth-url exchange-code refresh-token check-connection disconnect list-calendars list-events get-event create-event update-event delete-event"`
	Code    string          `json:"code"`
	EventID string          `json:"event_id"`
	TimeMin *time.Time      `json:"time_min"`
	TimeMax *time.Time      `json:"time_max"`
	Event   *calendar.Event `json:"event"`
}

// Action is the single-endpoint form of the calendar integration:
// {"action": "list-events", ...}.
func (h *CalendarHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req calendarAction
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	sess := tenant.FromContext(ctx)
	tenantID := sess.TenantID()

	var (
		out interface{}
		err error
	)
	switch req.Action {
	case "get-auth-url":
		out = map[string]string{"url": h.svc.AuthURL(tenantID)}
	case "exchange-code":
		out, err = h.svc.ExchangeCode(ctx, sess, req.Code)
	case "refresh-token":
		out, err = h.svc.RefreshToken(ctx, tenantID)
	case "check-connection":
		out, err = h.svc.CheckConnection(ctx, tenantID)
	case "disconnect":
		err = h.svc.Disconnect(ctx, sess)
		out = map[string]bool{"connected": false}
	case "list-calendars":
		out, err = h.svc.ListCalendars(ctx, tenantID)
	case "list-events":
		from := time.Now()
		to := from.AddDate(0, 0, 30)
		if req.TimeMin != nil {
			from = *req.TimeMin
		}
		if req.TimeMax != nil {
			to = *req.TimeMax
		}
		out, err = h.svc.ListEvents(ctx, tenantID, from, to)
	case "get-event":
		out, err = h.svc.GetEvent(ctx, tenantID, req.EventID)
	case "create-event":
		if req.Event == nil {
			writeError(w, http.StatusBadRequest, "event is required")
			return
		}
		out, err = h.svc.CreateEvent(ctx, tenantID, req.Event)
	case "update-event":
		if req.Event == nil {
			writeError(w, http.StatusBadRequest, "event is required")
			return
		}
		out, err = h.svc.UpdateEvent(ctx, tenantID, req.EventID, req.Event)
	case "delete-event":
		err = h.svc.DeleteEvent(ctx, tenantID, req.EventID)
		out = map[string]bool{"deleted": err == nil}
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Sync receives calendar changes from the workflow engine. It runs behind
// API key auth, so the tenant comes from the key.
func (h *CalendarHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req calendar.SyncRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.syncer.Sync(r.Context(), tenant.IDFromContext(r.Context()), req)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]interface{}{"success": false, "error": publicMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "result": res})
}
