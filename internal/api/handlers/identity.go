package handlers

import (
	"net/http"
	"time"

	"github.com/nikhilbhutani/petdesk/internal/identity"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

type IdentityHandler struct {
	svc *identity.Service
}

func NewIdentityHandler(svc *identity.Service) *IdentityHandler {
	return &IdentityHandler{svc: svc}
}

// Me returns the caller's session. Clients route users without a profile
// to onboarding.
func (h *IdentityHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := tenant.FromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":     sess.UserID,
		"email":       sess.Email,
		"has_profile": sess.HasProfile(),
		"is_admin":    sess.IsTenantAdmin(),
		"profile":     sess.Profile,
		"tenant":      sess.Tenant,
	})
}

func (h *IdentityHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"required,max=120"`
	}
	if !decode(w, r, &req) {
		return
	}

	res, err := h.svc.CreateTenantWithOwner(r.Context(), tenant.FromContext(r.Context()).UserID, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeResult(w, res)
}

func (h *IdentityHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}

	res, err := h.svc.AcceptInvite(r.Context(), tenant.FromContext(r.Context()).UserID, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeResult(w, res)
}

// writeResult answers 200 for success and 400 with the procedure's own
// message otherwise.
func writeResult(w http.ResponseWriter, res identity.Result) {
	if !res.Success {
		writeJSON(w, http.StatusBadRequest, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *IdentityHandler) ValidateInvite(w http.ResponseWriter, r *http.Request) {
	check, err := h.svc.ValidateInviteCode(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *IdentityHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role     models.Role `json:"role" validate:"required,oneof=admin manager employee"`
		TTLHours int         `json:"ttl_hours" validate:"omitempty,min=1,max=720"`
	}
	if !decode(w, r, &req) {
		return
	}

	inv, err := h.svc.CreateInvite(r.Context(), tenant.FromContext(r.Context()), req.Role, time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (h *IdentityHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := h.svc.ListInvites(r.Context(), tenant.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invites": invites, "count": len(invites)})
}

func (h *IdentityHandler) RevokeInvite(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.RevokeInvite(r.Context(), tenant.FromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *IdentityHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.svc.ListMembers(r.Context(), tenant.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"members": members, "count": len(members)})
}

func (h *IdentityHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Role   models.Role          `json:"role" validate:"required"`
		Status models.ProfileStatus `json:"status" validate:"required,oneof=active inactive"`
	}
	if !decode(w, r, &req) {
		return
	}

	if err := h.svc.UpdateMember(r.Context(), tenant.FromContext(r.Context()), id, req.Role, req.Status); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
