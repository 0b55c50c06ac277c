package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/petdesk/internal/entitlement"
	"github.com/nikhilbhutani/petdesk/internal/identity"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

const testSecret = "super-secret-jwt-token"

type resolverFunc func(ctx context.Context, userID uuid.UUID, email string) (*tenant.Session, error)

func (f resolverFunc) Resolve(ctx context.Context, userID uuid.UUID, email string) (*tenant.Session, error) {
	return f(ctx, userID, email)
}

func signToken(t *testing.T, secret string, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: "ana@petfeliz.com.br",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func sessionEcho(got **tenant.Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = tenant.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestJWTMiddleware(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	active := resolverFunc(func(_ context.Context, id uuid.UUID, email string) (*tenant.Session, error) {
		return &tenant.Session{
			UserID:  id,
			Email:   email,
			Profile: &models.UserProfile{ID: id, TenantID: &tenantID, Role: models.RoleOwner},
			Tenant:  &models.Tenant{ID: tenantID},
		}, nil
	})

	tests := []struct {
		name     string
		header   string
		resolver SessionResolver
		want     int
	}{
		{name: "missing token", want: http.StatusUnauthorized, resolver: active},
		{name: "bad signature", header: "Bearer " + signToken(t, "other", userID.String(), time.Now().Add(time.Hour)), resolver: active, want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signToken(t, testSecret, userID.String(), time.Now().Add(-time.Hour)), resolver: active, want: http.StatusUnauthorized},
		{name: "subject not a uuid", header: "Bearer " + signToken(t, testSecret, "anon", time.Now().Add(time.Hour)), resolver: active, want: http.StatusUnauthorized},
		{
			name:   "inactive profile",
			header: "Bearer " + signToken(t, testSecret, userID.String(), time.Now().Add(time.Hour)),
			resolver: resolverFunc(func(context.Context, uuid.UUID, string) (*tenant.Session, error) {
				return nil, identity.ErrProfileInactive
			}),
			want: http.StatusForbidden,
		},
		{
			name:   "store failure",
			header: "Bearer " + signToken(t, testSecret, userID.String(), time.Now().Add(time.Hour)),
			resolver: resolverFunc(func(context.Context, uuid.UUID, string) (*tenant.Session, error) {
				return nil, errors.New("connection refused")
			}),
			want: http.StatusInternalServerError,
		},
		{name: "valid", header: "Bearer " + signToken(t, testSecret, userID.String(), time.Now().Add(time.Hour)), resolver: active, want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *tenant.Session
			h := NewJWTMiddleware(testSecret, tt.resolver).Authenticate(sessionEcho(&got))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				require.NotNil(t, got)
				assert.Equal(t, userID, got.UserID)
				assert.Equal(t, "ana@petfeliz.com.br", got.Email)
				assert.Equal(t, tenantID, got.TenantID())
			}
		})
	}
}

type memKeys struct {
	keys    map[string]*models.APIKey
	touched int
}

func (m *memKeys) LookupAPIKey(_ context.Context, hash string) (*models.APIKey, error) {
	if k, ok := m.keys[hash]; ok {
		return k, nil
	}
	return nil, errKeyNotFound
}

func (m *memKeys) TouchAPIKey(context.Context, uuid.UUID, time.Time) error {
	m.touched++
	return nil
}

type memTenants struct {
	tenant   *models.Tenant
	profiles map[uuid.UUID]*models.UserProfile
}

func (m *memTenants) GetByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	if m.tenant != nil && m.tenant.ID == id {
		return m.tenant, nil
	}
	return nil, tenant.ErrNotFound
}

func (m *memTenants) GetProfile(_ context.Context, id uuid.UUID) (*models.UserProfile, error) {
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, tenant.ErrNotFound
}

func TestAPIKeyMiddleware(t *testing.T) {
	tn := &models.Tenant{ID: uuid.New(), Name: "Pet Feliz"}
	ownerID := uuid.New()
	past := time.Now().Add(-time.Hour)

	keys := &memKeys{keys: map[string]*models.APIKey{
		HashAPIKey("n8n-key"):   {ID: uuid.New(), TenantID: tn.ID, KeyHash: HashAPIKey("n8n-key"), Scopes: []string{ScopeCalendarSync}},
		HashAPIKey("owner-key"): {ID: uuid.New(), TenantID: tn.ID, UserID: &ownerID, KeyHash: HashAPIKey("owner-key")},
		HashAPIKey("old-key"):   {ID: uuid.New(), TenantID: tn.ID, KeyHash: HashAPIKey("old-key"), ExpiresAt: &past},
	}}
	tenants := &memTenants{tenant: tn, profiles: map[uuid.UUID]*models.UserProfile{
		ownerID: {ID: ownerID, TenantID: &tn.ID, Role: models.RoleOwner},
	}}
	mw := NewAPIKeyMiddleware(keys, tenants, "X-API-Key")

	serve := func(key string) (*httptest.ResponseRecorder, *tenant.Session) {
		var got *tenant.Session
		req := httptest.NewRequest(http.MethodPost, "/webhooks/calendar-sync", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rec := httptest.NewRecorder()
		mw.Authenticate(sessionEcho(&got)).ServeHTTP(rec, req)
		return rec, got
	}

	t.Run("missing", func(t *testing.T) {
		rec, _ := serve("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	t.Run("unknown", func(t *testing.T) {
		rec, _ := serve("nope")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	t.Run("expired", func(t *testing.T) {
		rec, _ := serve("old-key")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	t.Run("machine key acts as employee", func(t *testing.T) {
		rec, sess := serve("n8n-key")
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, sess.HasProfile())
		assert.False(t, sess.IsTenantAdmin())
		assert.Equal(t, tn.ID, sess.TenantID())
		assert.Equal(t, uuid.Nil, sess.UserID)
	})
	t.Run("user key carries the user's profile", func(t *testing.T) {
		rec, sess := serve("owner-key")
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, sess.IsTenantAdmin())
		assert.Equal(t, ownerID, sess.UserID)
	})
	assert.Equal(t, 2, keys.touched)
}

func TestRequireScope(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RequireScope(ScopeCalendarSync)(ok)

	for _, tc := range []struct {
		name string
		key  *models.APIKey
		want int
	}{
		{name: "no key", want: http.StatusForbidden},
		{name: "other scope", key: &models.APIKey{Scopes: []string{"campaign:read"}}, want: http.StatusForbidden},
		{name: "matching", key: &models.APIKey{Scopes: []string{ScopeCalendarSync}}, want: http.StatusOK},
		{name: "wildcard", key: &models.APIKey{Scopes: []string{"*"}}, want: http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tc.key != nil {
				req = req.WithContext(context.WithValue(req.Context(), apiKeyKey, tc.key))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

type staticSettings struct {
	st  *entitlement.Settings
	err error
}

func (s staticSettings) Settings(context.Context, uuid.UUID) (*entitlement.Settings, error) {
	return s.st, s.err
}

func withSession(r *http.Request, role models.Role, bound bool) *http.Request {
	tenantID := uuid.New()
	sess := &tenant.Session{UserID: uuid.New(), Tenant: &models.Tenant{ID: tenantID}}
	if role != "" {
		sess.Profile = &models.UserProfile{Role: role}
		if bound {
			sess.Profile.TenantID = &tenantID
		}
	}
	return r.WithContext(tenant.WithSession(r.Context(), sess))
}

func TestGuards(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	st := &entitlement.Settings{Modules: entitlement.Flags{}.With(entitlement.ModHotel, true)}
	guard := NewGuard(staticSettings{st: st})

	tests := []struct {
		name    string
		handler http.Handler
		role    models.Role
		bound   bool
		want    int
	}{
		{name: "profile: none", handler: RequireProfile(ok), want: http.StatusForbidden},
		{name: "profile: unbound", handler: RequireProfile(ok), role: models.RoleEmployee, want: http.StatusForbidden},
		{name: "profile: bound", handler: RequireProfile(ok), role: models.RoleEmployee, bound: true, want: http.StatusOK},
		{name: "admin: employee", handler: RequireAdmin(ok), role: models.RoleEmployee, bound: true, want: http.StatusForbidden},
		{name: "admin: owner", handler: RequireAdmin(ok), role: models.RoleOwner, bound: true, want: http.StatusOK},
		{name: "module enabled", handler: guard.RequireModule(entitlement.ModHotel)(ok), role: models.RoleEmployee, bound: true, want: http.StatusOK},
		{name: "module disabled", handler: guard.RequireModule(entitlement.ModClinica)(ok), role: models.RoleEmployee, bound: true, want: http.StatusForbidden},
		{name: "module disabled admin", handler: guard.RequireModule(entitlement.ModClinica)(ok), role: models.RoleAdmin, bound: true, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withSession(httptest.NewRequest(http.MethodGet, "/", nil), tt.role, tt.bound)
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("settings failure", func(t *testing.T) {
		h := NewGuard(staticSettings{err: errors.New("db down")}).RequireModule(entitlement.ModHotel)(ok)
		req := withSession(httptest.NewRequest(http.MethodGet, "/", nil), models.RoleEmployee, true)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
