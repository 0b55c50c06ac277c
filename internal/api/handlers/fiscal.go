package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/fiscal"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

type FiscalHandler struct {
	svc *fiscal.Service
}

func NewFiscalHandler(svc *fiscal.Service) *FiscalHandler {
	return &FiscalHandler{svc: svc}
}

type fiscalAction struct {
	Action        string    `json:"action" validate:"required,oneof=emitir_nfce cancelar consultar validar_config"`
	SaleID        uuid.UUID `json:"sale_id" validate:"required_if=Action emitir_nfce"`
	NotaID        uuid.UUID `json:"nota_id" validate:"required_if=Action cancelar,required_if=Action consultar"`
	Justificativa string    `json:"justificativa"`
}

// Action is the single-endpoint form: {"action": "...", ...}. Every
// response carries success so callers can branch on one field.
func (h *FiscalHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req fiscalAction
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	sess := tenant.FromContext(ctx)

	var (
		out interface{}
		err error
	)
	switch req.Action {
	case "emitir_nfce":
		out, err = h.svc.Emitir(ctx, sess, req.SaleID)
	case "cancelar":
		out, err = h.svc.Cancelar(ctx, sess, req.NotaID, req.Justificativa)
	case "consultar":
		out, err = h.svc.Consultar(ctx, sess.TenantID(), req.NotaID)
	case "validar_config":
		out, err = h.svc.ValidarConfig(ctx, sess.TenantID())
	}
	if err != nil {
		writeJSON(w, statusFor(err), map[string]interface{}{"success": false, "error": publicMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": out})
}

func publicMessage(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}

func (h *FiscalHandler) Emitir(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SaleID uuid.UUID `json:"sale_id" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}

	n, err := h.svc.Emitir(r.Context(), tenant.FromContext(r.Context()), req.SaleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *FiscalHandler) List(w http.ResponseWriter, r *http.Request) {
	notas, err := h.svc.List(r.Context(), tenant.IDFromContext(r.Context()), queryInt(r, "limit", 50))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notas": notas, "count": len(notas)})
}

func (h *FiscalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	n, err := h.svc.Get(r.Context(), tenant.IDFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *FiscalHandler) Consultar(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	n, err := h.svc.Consultar(r.Context(), tenant.IDFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *FiscalHandler) Cancelar(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Justificativa string `json:"justificativa"`
	}
	if !decode(w, r, &req) {
		return
	}

	n, err := h.svc.Cancelar(r.Context(), tenant.FromContext(r.Context()), id, req.Justificativa)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *FiscalHandler) ValidarConfig(w http.ResponseWriter, r *http.Request) {
	check, err := h.svc.ValidarConfig(r.Context(), tenant.IDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}
