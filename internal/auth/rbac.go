package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/entitlement"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

// RequireProfile lets through only callers bound to a tenant.
func RequireProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tenant.FromContext(r.Context()).HasProfile() {
			writeError(w, http.StatusForbidden, tenant.ErrNoTenant.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tenant.FromContext(r.Context()).IsTenantAdmin() {
			writeError(w, http.StatusForbidden, "tenant admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type SettingsSource interface {
	Settings(ctx context.Context, tenantID uuid.UUID) (*entitlement.Settings, error)
}

// Guard blocks routes whose module is disabled for the tenant. Admins pass
// so they can configure a module before enabling it.
type Guard struct {
	settings SettingsSource
}

func NewGuard(settings SettingsSource) *Guard {
	return &Guard{settings: settings}
}

func (g *Guard) RequireModule(m entitlement.Module) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := tenant.FromContext(r.Context())
			if !sess.HasProfile() {
				writeError(w, http.StatusForbidden, tenant.ErrNoTenant.Error())
				return
			}
			st, err := g.settings.Settings(r.Context(), sess.TenantID())
			if err != nil {
				slog.Error("load tenant settings failed", "tenant_id", sess.TenantID(), "error", err)
				writeError(w, http.StatusInternalServerError, "could not load tenant settings")
				return
			}
			if !entitlement.CanAccess(st, m, sess.IsTenantAdmin()) {
				writeError(w, http.StatusForbidden, "module not enabled")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
