package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/petdesk/internal/api/handlers"
	"github.com/nikhilbhutani/petdesk/internal/auth"
	"github.com/nikhilbhutani/petdesk/internal/entitlement"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

type planSettings struct {
	plan entitlement.Plan
}

func (p planSettings) Settings(context.Context, uuid.UUID) (*entitlement.Settings, error) {
	flags, err := entitlement.PlanPreset(p.plan)
	if err != nil {
		return nil, err
	}
	return &entitlement.Settings{Plan: p.plan, Modules: flags}, nil
}

func asRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := uuid.New()
			sess := &tenant.Session{
				UserID:  uuid.New(),
				Profile: &models.UserProfile{Role: role, TenantID: &tenantID},
				Tenant:  &models.Tenant{ID: tenantID},
			}
			next.ServeHTTP(w, r.WithContext(tenant.WithSession(r.Context(), sess)))
		})
	}
}

func TestCampaignRoutesRequireMarketing(t *testing.T) {
	// Handlers are never reached for refused callers, so they carry no service.
	h := handlers.NewCampaignHandler(nil, nil, nil)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/campaigns/"},
		{http.MethodPost, "/campaigns/preview"},
		{http.MethodPost, "/campaigns/dispatch"},
		{http.MethodPost, "/campaigns/media"},
		{http.MethodGet, "/campaigns/export"},
	}

	for _, plan := range []entitlement.Plan{entitlement.PlanBasic, entitlement.PlanHotel} {
		r := chi.NewRouter()
		r.Use(asRole(models.RoleEmployee))
		r.Route("/campaigns", campaignRoutes(auth.NewGuard(planSettings{plan: plan}), h))

		for _, p := range paths {
			t.Run(string(plan)+" "+p.method+" "+p.path, func(t *testing.T) {
				rec := httptest.NewRecorder()
				r.ServeHTTP(rec, httptest.NewRequest(p.method, p.path, nil))
				assert.Equal(t, http.StatusForbidden, rec.Code)
				assert.Contains(t, rec.Body.String(), "module not enabled")
			})
		}
	}
}

func TestCampaignRoutesLockMatchesNavigation(t *testing.T) {
	flags, err := entitlement.PlanPreset(entitlement.PlanBasic)
	require.NoError(t, err)
	st := &entitlement.Settings{Plan: entitlement.PlanBasic, Modules: flags}

	var marketing *entitlement.NavItem
	items := entitlement.Navigation(st, false)
	for i := range items {
		if items[i].Path == "/marketing" {
			marketing = &items[i]
		}
	}
	require.NotNil(t, marketing)
	assert.True(t, marketing.Locked)
	assert.False(t, entitlement.CanAccess(st, *marketing.Module, false))
}

func TestMembersRouteIsAdminOnly(t *testing.T) {
	r := chi.NewRouter()
	r.Use(asRole(models.RoleEmployee))
	r.Group(adminRoutes(handlers.NewSettingsHandler(nil), handlers.NewIdentityHandler(nil), handlers.NewAdminHandler(nil)))

	for _, path := range []string{"/members", "/invites", "/audit"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}
}
