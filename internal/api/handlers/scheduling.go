package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/scheduling"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

type SchedulingHandler struct {
	svc *scheduling.Service
	loc *time.Location
	now func() time.Time
}

func NewSchedulingHandler(svc *scheduling.Service, loc *time.Location) *SchedulingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SchedulingHandler{svc: svc, loc: loc, now: time.Now}
}

// Clients

func (h *SchedulingHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListClients(r.Context(), tenant.IDFromContext(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"clients": list, "count": len(list)})
}

func (h *SchedulingHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.svc.GetClient(r.Context(), tenant.IDFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *SchedulingHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var in scheduling.ClientInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.svc.CreateClient(r.Context(), tenant.IDFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *SchedulingHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var in scheduling.ClientInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.svc.UpdateClient(r.Context(), tenant.IDFromContext(r.Context()), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *SchedulingHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteClient(r.Context(), tenant.IDFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pets

func (h *SchedulingHandler) ListPets(w http.ResponseWriter, r *http.Request) {
	var clientID *uuid.UUID
	if v := r.URL.Query().Get("client_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid client_id")
			return
		}
		clientID = &id
	}
	list, err := h.svc.ListPets(r.Context(), tenant.IDFromContext(r.Context()), clientID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pets": list, "count": len(list)})
}

func (h *SchedulingHandler) GetPet(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetPet(r.Context(), tenant.IDFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *SchedulingHandler) CreatePet(w http.ResponseWriter, r *http.Request) {
	var in scheduling.PetInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.svc.CreatePet(r.Context(), tenant.IDFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *SchedulingHandler) UpdatePet(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var in scheduling.PetInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.svc.UpdatePet(r.Context(), tenant.IDFromContext(r.Context()), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *SchedulingHandler) DeletePet(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeletePet(r.Context(), tenant.IDFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Appointments

func (h *SchedulingHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryRange(r, h.loc, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.svc.ListAppointments(r.Context(), tenant.IDFromContext(r.Context()), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"appointments": list, "count": len(list)})
}

func (h *SchedulingHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.svc.GetAppointment(r.Context(), tenant.IDFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *SchedulingHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var in scheduling.AppointmentInput
	if !decode(w, r, &in) {
		return
	}
	a, err := h.svc.CreateAppointment(r.Context(), tenant.IDFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *SchedulingHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var p scheduling.AppointmentPatch
	if !decode(w, r, &p) {
		return
	}
	a, err := h.svc.UpdateAppointment(r.Context(), tenant.IDFromContext(r.Context()), id, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *SchedulingHandler) SetAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.AppointmentStatus `json:"status" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}
	a, err := h.svc.SetAppointmentStatus(r.Context(), tenant.IDFromContext(r.Context()), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *SchedulingHandler) SetKanban(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		KanbanStatus models.KanbanStatus `json:"kanban_status" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}
	a, err := h.svc.SetKanban(r.Context(), tenant.IDFromContext(r.Context()), id, req.KanbanStatus)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *SchedulingHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteAppointment(r.Context(), tenant.IDFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Hotel stays

func (h *SchedulingHandler) ListStays(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryRange(r, h.loc, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.svc.ListStays(r.Context(), tenant.IDFromContext(r.Context()), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stays": list, "count": len(list)})
}

func (h *SchedulingHandler) GetStay(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	st, err := h.svc.GetStay(r.Context(), tenant.IDFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *SchedulingHandler) CreateStay(w http.ResponseWriter, r *http.Request) {
	var in scheduling.StayInput
	if !decode(w, r, &in) {
		return
	}
	st, err := h.svc.CreateStay(r.Context(), tenant.IDFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *SchedulingHandler) UpdateStay(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var p scheduling.StayPatch
	if !decode(w, r, &p) {
		return
	}
	st, err := h.svc.UpdateStay(r.Context(), tenant.IDFromContext(r.Context()), id, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *SchedulingHandler) SetStayStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.StayStatus `json:"status" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}
	st, err := h.svc.SetStayStatus(r.Context(), tenant.IDFromContext(r.Context()), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *SchedulingHandler) DeleteStay(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteStay(r.Context(), tenant.IDFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sales

func (h *SchedulingHandler) RegisterSale(w http.ResponseWriter, r *http.Request) {
	var in scheduling.SaleInput
	if !decode(w, r, &in) {
		return
	}
	s, err := h.svc.RegisterSale(r.Context(), tenant.IDFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}
