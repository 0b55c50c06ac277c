package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/petdesk/internal/calendar"
	"github.com/nikhilbhutani/petdesk/internal/campaign"
	"github.com/nikhilbhutani/petdesk/internal/entitlement"
	"github.com/nikhilbhutani/petdesk/internal/fiscal"
	"github.com/nikhilbhutani/petdesk/internal/identity"
	"github.com/nikhilbhutani/petdesk/internal/scheduling"
	"github.com/nikhilbhutani/petdesk/internal/segmentation"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("get client: %w", tenant.ErrNotFound), http.StatusNotFound},
		{"pet not found", calendar.ErrPetNotFound, http.StatusNotFound},
		{"no tenant", tenant.ErrNoTenant, http.StatusForbidden},
		{"module disabled", entitlement.ErrModuleDisabled, http.StatusForbidden},
		{"threshold", segmentation.ErrThresholdOutOfRange, http.StatusBadRequest},
		{"criteria", campaign.ErrNoCriteria, http.StatusBadRequest},
		{"justification", fiscal.ErrJustificationTooShort, http.StatusBadRequest},
		{"procedure", &identity.ProcedureError{Procedure: "accept_tenant_invite", Message: "Convite expirado"}, http.StatusBadRequest},
		{"not authorized", fiscal.ErrNotAuthorized, http.StatusConflict},
		{"transition", scheduling.ErrInvalidTransition, http.StatusConflict},
		{"not connected", calendar.ErrNotConnected, http.StatusConflict},
		{"provider refusal", &fiscal.ProviderError{StatusCode: 422, Mensagem: "CNPJ inválido"}, http.StatusUnprocessableEntity},
		{"webhook rejected", fmt.Errorf("%w: 500", campaign.ErrWebhookRejected), http.StatusBadGateway},
		{"calendar api", &calendar.APIError{Action: "list-events", StatusCode: 500}, http.StatusBadGateway},
		{"network", fmt.Errorf("emitir_nfce: %w", &url.Error{Op: "Post", URL: "https://api", Err: errors.New("timeout")}), http.StatusBadGateway},
		{"unconfigured", campaign.ErrNotConfigured, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteServiceError_HidesInternalMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	writeServiceError(rec, req, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = httptest.NewRecorder()
	writeServiceError(rec, req, &identity.ProcedureError{Message: "Convite já utilizado"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Convite já utilizado")
}

func TestDecode_ReportsJSONFieldNames(t *testing.T) {
	body := `{"nome": "", "whatsapp": "11999990000", "email": "not-an-email"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(body))

	var in scheduling.ClientInput
	ok := decode(rec, req, &in)
	require.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error   string       `json:"error"`
		Details []fieldError `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	fields := map[string]string{}
	for _, d := range resp.Details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "This field is required", fields["nome"])
	assert.Equal(t, "Invalid email format", fields["email"])
}

func TestDecode_MalformedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	var in scheduling.ClientInput
	assert.False(t, decode(rec, req, &in))
	assert.JSONEq(t, `{"error":"invalid request body"}`, rec.Body.String())
}

func TestFiscalAction_ValidatesBeforeService(t *testing.T) {
	h := NewFiscalHandler(nil)

	for _, body := range []string{
		`{"action": "imprimir"}`,
		`{"action": "cancelar", "justificativa": "cliente desistiu da compra"}`,
		`{"action": "emitir_nfce"}`,
	} {
		rec := httptest.NewRecorder()
		h.Action(rec, httptest.NewRequest(http.MethodPost, "/fiscal", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestCampaignPreview_UnknownCriterion(t *testing.T) {
	h := NewCampaignHandler(nil, nil, nil)
	rec := httptest.NewRecorder()
	h.Preview(rec, httptest.NewRequest(http.MethodPost, "/campaigns/preview", strings.NewReader(`{"criterios":["vip"]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryRange(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, loc)

	r := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	from, to, err := queryRange(r, loc, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2026, 3, 17, 0, 0, 0, 0, loc), to)

	r = httptest.NewRequest(http.MethodGet, "/appointments?from=2026-03-01&to=2026-04-01", nil)
	from, to, err = queryRange(r, loc, now)
	require.NoError(t, err)
	assert.Equal(t, 1, from.Day())
	assert.Equal(t, time.April, to.Month())

	r = httptest.NewRequest(http.MethodGet, "/appointments?from=2026-04-01&to=2026-03-01", nil)
	_, _, err = queryRange(r, loc, now)
	assert.Error(t, err)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadyz(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := func(context.Context) error { return errors.New("connection refused") }

	rec := httptest.NewRecorder()
	NewHealthHandler(ok, nil).Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler(ok, down).Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
