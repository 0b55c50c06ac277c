package tenant

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/models"
)

// Session is the per-request view of the authenticated caller. It is built
// by the auth middleware on every request and discarded when the request ends.
type Session struct {
	UserID  uuid.UUID
	Email   string
	Profile *models.UserProfile
	Tenant  *models.Tenant
}

// HasProfile is true once the caller has a profile bound to a tenant.
func (s *Session) HasProfile() bool {
	return s != nil && s.Profile != nil && s.Profile.TenantID != nil
}

func (s *Session) IsTenantAdmin() bool {
	return s.HasProfile() && s.Profile.Role.IsAdmin()
}

func (s *Session) TenantID() uuid.UUID {
	if s == nil || s.Tenant == nil {
		return uuid.Nil
	}
	return s.Tenant.ID
}

func (s *Session) Role() models.Role {
	if s == nil || s.Profile == nil {
		return ""
	}
	return s.Profile.Role
}

type contextKey string

const sessionKey contextKey = "session"

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

func IDFromContext(ctx context.Context) uuid.UUID {
	return FromContext(ctx).TenantID()
}

// UserIDFromContext returns nil when the request is not tied to a user,
// e.g. calls authenticated with a tenant API key.
func UserIDFromContext(ctx context.Context) *uuid.UUID {
	s := FromContext(ctx)
	if s == nil || s.UserID == uuid.Nil {
		return nil
	}
	id := s.UserID
	return &id
}
