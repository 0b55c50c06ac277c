package handlers

import (
	"net/http"

	"github.com/nikhilbhutani/petdesk/internal/entitlement"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

type SettingsHandler struct {
	resolver *entitlement.Resolver
}

func NewSettingsHandler(resolver *entitlement.Resolver) *SettingsHandler {
	return &SettingsHandler{resolver: resolver}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess := tenant.FromContext(r.Context())
	st, err := h.resolver.Settings(r.Context(), sess.TenantID())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *SettingsHandler) Navigation(w http.ResponseWriter, r *http.Request) {
	sess := tenant.FromContext(r.Context())
	st, err := h.resolver.Settings(r.Context(), sess.TenantID())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": entitlement.Navigation(st, sess.IsTenantAdmin()),
	})
}

func (h *SettingsHandler) SetPlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plan string `json:"plan_type" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}
	plan, err := entitlement.ParsePlan(req.Plan)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	st, err := h.resolver.SetPlan(r.Context(), tenant.FromContext(r.Context()), plan)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *SettingsHandler) SetModule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Module  string `json:"module" validate:"required"`
		Enabled *bool  `json:"enabled" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}
	m, err := entitlement.ParseModule(req.Module)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	st, err := h.resolver.SetModule(r.Context(), tenant.FromContext(r.Context()), m, *req.Enabled)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
