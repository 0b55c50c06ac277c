package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/nikhilbhutani/petdesk/internal/models"
)

func TestSession_HasProfile(t *testing.T) {
	tenantID := uuid.New()

	tests := []struct {
		name      string
		session   *Session
		want      bool
		wantAdmin bool
	}{
		{name: "nil session", session: nil},
		{name: "no profile", session: &Session{UserID: uuid.New()}},
		{
			name:    "unprovisioned profile",
			session: &Session{Profile: &models.UserProfile{Role: models.RoleOwner}},
		},
		{
			name:    "employee",
			session: &Session{Profile: &models.UserProfile{TenantID: &tenantID, Role: models.RoleEmployee}},
			want:    true,
		},
		{
			name:      "owner",
			session:   &Session{Profile: &models.UserProfile{TenantID: &tenantID, Role: models.RoleOwner}},
			want:      true,
			wantAdmin: true,
		},
		{
			name:      "admin",
			session:   &Session{Profile: &models.UserProfile{TenantID: &tenantID, Role: models.RoleAdmin}},
			want:      true,
			wantAdmin: true,
		},
		{
			name:    "manager is not admin",
			session: &Session{Profile: &models.UserProfile{TenantID: &tenantID, Role: models.RoleManager}},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.HasProfile())
			assert.Equal(t, tt.wantAdmin, tt.session.IsTenantAdmin())
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromContext(ctx))
	assert.Equal(t, uuid.Nil, IDFromContext(ctx))
	assert.Nil(t, UserIDFromContext(ctx))

	tn := &models.Tenant{ID: uuid.New(), Name: "Pet Feliz"}
	s := &Session{UserID: uuid.New(), Tenant: tn}
	ctx = WithSession(ctx, s)

	assert.Same(t, s, FromContext(ctx))
	assert.Equal(t, tn.ID, IDFromContext(ctx))
	assert.Equal(t, s.UserID, *UserIDFromContext(ctx))
}
