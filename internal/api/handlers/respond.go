package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/nikhilbhutani/petdesk/internal/calendar"
	"github.com/nikhilbhutani/petdesk/internal/campaign"
	"github.com/nikhilbhutani/petdesk/internal/entitlement"
	"github.com/nikhilbhutani/petdesk/internal/fiscal"
	"github.com/nikhilbhutani/petdesk/internal/identity"
	"github.com/nikhilbhutani/petdesk/internal/realtime"
	"github.com/nikhilbhutani/petdesk/internal/scheduling"
	"github.com/nikhilbhutani/petdesk/internal/segmentation"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into dst and runs struct validation. It writes
// the 400 response itself and reports whether the handler may go on.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeValidation(w, err)
		return false
	}
	return true
}

func writeValidation(w http.ResponseWriter, err error) {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	details := make([]fieldError, 0, len(ves))
	for _, fe := range ves {
		details = append(details, fieldError{Field: fe.Field(), Message: validationMessage(fe)})
	}
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":   "request validation failed",
		"details": details,
	})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "url":
		return "Invalid URL format"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "min", "gte":
		return "Must be at least " + fe.Param()
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return "Must be at most " + fe.Param() + " characters"
		}
		return "Must be at most " + fe.Param()
	default:
		return "Invalid value"
	}
}

var badRequest = []error{
	segmentation.ErrThresholdOutOfRange,
	campaign.ErrNoCriteria,
	campaign.ErrUnknownCriterion,
	campaign.ErrMessageRequired,
	campaign.ErrNameRequired,
	campaign.ErrInvalidMedia,
	fiscal.ErrJustificationTooShort,
	fiscal.ErrEmptySale,
	scheduling.ErrInvalidPhone,
	scheduling.ErrInvalidWindow,
	scheduling.ErrPetNotOwned,
	scheduling.ErrInvalidKanban,
	scheduling.ErrInvalidPayment,
	scheduling.ErrEmptySale,
	identity.ErrNameRequired,
	identity.ErrInviteCodeRequired,
	identity.ErrInvalidRole,
	entitlement.ErrUnknownModule,
	entitlement.ErrUnknownPlan,
	realtime.ErrUnknownTable,
	calendar.ErrCodeRequired,
	calendar.ErrEventIDRequired,
	calendar.ErrStartRequired,
	calendar.ErrNoRefreshToken,
}

var forbidden = []error{
	tenant.ErrNoTenant,
	entitlement.ErrNotTenantAdmin,
	entitlement.ErrModuleDisabled,
	identity.ErrNotTenantAdmin,
	identity.ErrProfileInactive,
	segmentation.ErrNotTenantAdmin,
	calendar.ErrNotTenantAdmin,
}

var conflict = []error{
	fiscal.ErrNotAuthorized,
	fiscal.ErrConfigIncomplete,
	scheduling.ErrInvalidTransition,
	scheduling.ErrTerminal,
	campaign.ErrNoRecipients,
	calendar.ErrNotConnected,
	entitlement.ErrSettingsNotLoaded,
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	var (
		procErr     *identity.ProcedureError
		providerErr *fiscal.ProviderError
		calErr      *calendar.APIError
		urlErr      *url.Error
		oauthErr    *oauth2.RetrieveError
	)
	switch {
	case errors.Is(err, tenant.ErrNotFound), errors.Is(err, calendar.ErrPetNotFound):
		return http.StatusNotFound
	case anyIs(err, forbidden):
		return http.StatusForbidden
	case anyIs(err, badRequest), errors.As(err, &procErr):
		return http.StatusBadRequest
	case anyIs(err, conflict):
		return http.StatusConflict
	case errors.As(err, &providerErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, campaign.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, campaign.ErrWebhookRejected), errors.As(err, &calErr), errors.As(err, &urlErr), errors.As(err, &oauthErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func anyIs(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// writeServiceError renders err with the status statusFor picks. Messages
// of unexpected errors are logged, not returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func urlUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// queryRange reads from/to as RFC 3339 or YYYY-MM-DD dates. Missing values
// default to the week starting today.
func queryRange(r *http.Request, loc *time.Location, now time.Time) (time.Time, time.Time, error) {
	y, m, d := now.In(loc).Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 7)

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := parseTime(v, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %w", err)
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := parseTime(v, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %w", err)
		}
		to = t
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, errors.New("to must be after from")
	}
	return from, to, nil
}

func parseTime(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", v, loc)
}
