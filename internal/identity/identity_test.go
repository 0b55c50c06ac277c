package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/petdesk/internal/audit"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

type fakeStore struct {
	profiles map[uuid.UUID]*models.UserProfile
	tenants  map[uuid.UUID]*models.Tenant
	invites  []*models.Invite
	now      time.Time

	createErr error
	calls     int
}

func newFakeStore(now time.Time) *fakeStore {
	return &fakeStore{
		profiles: map[uuid.UUID]*models.UserProfile{},
		tenants:  map[uuid.UUID]*models.Tenant{},
		now:      now,
	}
}

func (f *fakeStore) Profile(_ context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, tenant.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) Tenant(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok {
		return nil, tenant.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) CreateTenantWithOwner(_ context.Context, userID uuid.UUID, name string) (uuid.UUID, error) {
	f.calls++
	if f.createErr != nil {
		return uuid.Nil, f.createErr
	}
	if p, ok := f.profiles[userID]; ok && p.TenantID != nil {
		return uuid.Nil, &ProcedureError{Procedure: "create_tenant_with_owner", Message: "Usuário já pertence a uma empresa"}
	}
	id := uuid.New()
	f.tenants[id] = &models.Tenant{ID: id, Name: name}
	f.profiles[userID] = &models.UserProfile{ID: userID, TenantID: &id, Role: models.RoleOwner, Status: models.ProfileActive}
	return id, nil
}

func (f *fakeStore) AcceptInvite(_ context.Context, userID uuid.UUID, code string) (uuid.UUID, error) {
	f.calls++
	for _, inv := range f.invites {
		if inv.InviteCode != code {
			continue
		}
		if !inv.Acceptable(f.now) {
			return uuid.Nil, &ProcedureError{Procedure: "accept_tenant_invite", Message: "Convite expirado"}
		}
		inv.Status = models.InviteAccepted
		tid := inv.TenantID
		f.profiles[userID] = &models.UserProfile{ID: userID, TenantID: &tid, Role: inv.Role, Status: models.ProfileActive}
		return tid, nil
	}
	return uuid.Nil, &ProcedureError{Procedure: "accept_tenant_invite", Message: "Convite não encontrado"}
}

func (f *fakeStore) PendingInvite(_ context.Context, code string) (string, models.Role, error) {
	for _, inv := range f.invites {
		if inv.InviteCode == code && inv.Acceptable(f.now) {
			return f.tenants[inv.TenantID].Name, inv.Role, nil
		}
	}
	return "", "", tenant.ErrNotFound
}

func (f *fakeStore) InsertInvite(_ context.Context, inv *models.Invite) error {
	inv.ID = uuid.New()
	f.invites = append(f.invites, inv)
	return nil
}

func (f *fakeStore) ListInvites(_ context.Context, tenantID uuid.UUID) ([]models.Invite, error) {
	var out []models.Invite
	for _, inv := range f.invites {
		if inv.TenantID == tenantID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeStore) RevokeInvite(_ context.Context, tenantID, id uuid.UUID) error {
	for _, inv := range f.invites {
		if inv.ID == id && inv.TenantID == tenantID && inv.Status == models.InvitePending {
			inv.Status = models.InviteRevoked
			return nil
		}
	}
	return tenant.ErrNotFound
}

func (f *fakeStore) ListMembers(_ context.Context, tenantID uuid.UUID) ([]models.UserProfile, error) {
	var out []models.UserProfile
	for _, p := range f.profiles {
		if p.TenantID != nil && *p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateMember(_ context.Context, tenantID, userID uuid.UUID, role models.Role, status models.ProfileStatus) error {
	p, ok := f.profiles[userID]
	if !ok || p.TenantID == nil || *p.TenantID != tenantID || p.Role == models.RoleOwner {
		return tenant.ErrNotFound
	}
	p.Role = role
	p.Status = status
	return nil
}

type recordingAudit struct {
	actions []string
}

func (r *recordingAudit) Log(_ context.Context, e audit.LogEntry) error {
	r.actions = append(r.actions, e.Action)
	return nil
}

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newService(store *fakeStore) (*Service, *recordingAudit) {
	rec := &recordingAudit{}
	svc := NewService(store, rec)
	svc.now = func() time.Time { return fixedNow }
	return svc, rec
}

func TestResolve(t *testing.T) {
	store := newFakeStore(fixedNow)
	svc, _ := newService(store)
	ctx := context.Background()

	t.Run("user without profile", func(t *testing.T) {
		sess, err := svc.Resolve(ctx, uuid.New(), "new@example.com")
		require.NoError(t, err)
		assert.False(t, sess.HasProfile())
		assert.False(t, sess.IsTenantAdmin())
		assert.Equal(t, "new@example.com", sess.Email)
	})

	t.Run("profile not yet bound to a tenant", func(t *testing.T) {
		uid := uuid.New()
		store.profiles[uid] = &models.UserProfile{ID: uid, Role: models.RoleEmployee, Status: models.ProfilePending}
		sess, err := svc.Resolve(ctx, uid, "")
		require.NoError(t, err)
		assert.False(t, sess.HasProfile())
		assert.Nil(t, sess.Tenant)
	})

	t.Run("provisioned owner", func(t *testing.T) {
		uid := uuid.New()
		res, err := svc.CreateTenantWithOwner(ctx, uid, "  Pet Feliz ")
		require.NoError(t, err)
		require.True(t, res.Success)

		sess, err := svc.Resolve(ctx, uid, "owner@example.com")
		require.NoError(t, err)
		assert.True(t, sess.HasProfile())
		assert.True(t, sess.IsTenantAdmin())
		assert.Equal(t, "Pet Feliz", sess.Tenant.Name)
		assert.Equal(t, res.TenantID, sess.TenantID())
	})

	t.Run("inactive profile", func(t *testing.T) {
		uid := uuid.New()
		tid := uuid.New()
		store.profiles[uid] = &models.UserProfile{ID: uid, TenantID: &tid, Status: models.ProfileInactive}
		_, err := svc.Resolve(ctx, uid, "")
		assert.ErrorIs(t, err, ErrProfileInactive)
	})
}

func TestCreateTenantWithOwner(t *testing.T) {
	store := newFakeStore(fixedNow)
	svc, _ := newService(store)
	ctx := context.Background()
	uid := uuid.New()

	_, err := svc.CreateTenantWithOwner(ctx, uid, "   ")
	assert.ErrorIs(t, err, ErrNameRequired)
	assert.Equal(t, 0, store.calls, "validation must run before the procedure call")

	res, err := svc.CreateTenantWithOwner(ctx, uid, "Banho Bom")
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = svc.CreateTenantWithOwner(ctx, uid, "Outra")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Usuário já pertence a uma empresa", res.Error)

	store.createErr = errors.New("connection refused")
	_, err = svc.CreateTenantWithOwner(ctx, uuid.New(), "Falha")
	assert.Error(t, err)
}

func TestInviteLifecycle(t *testing.T) {
	store := newFakeStore(fixedNow)
	svc, rec := newService(store)
	ctx := context.Background()

	ownerID := uuid.New()
	res, err := svc.CreateTenantWithOwner(ctx, ownerID, "Hotel Canino")
	require.NoError(t, err)
	owner, err := svc.Resolve(ctx, ownerID, "")
	require.NoError(t, err)

	inv, err := svc.CreateInvite(ctx, owner, models.RoleEmployee, 0)
	require.NoError(t, err)
	assert.Len(t, inv.InviteCode, 10)
	assert.Equal(t, fixedNow.Add(defaultInviteTTL), inv.ExpiresAt)
	assert.Equal(t, []string{audit.ActionInviteCreated}, rec.actions)

	check, err := svc.ValidateInviteCode(ctx, inv.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, InviteCheck{Valid: true, TenantName: "Hotel Canino", Role: models.RoleEmployee}, check)

	joinerID := uuid.New()
	accepted, err := svc.AcceptInvite(ctx, joinerID, " "+inv.InviteCode+" ")
	require.NoError(t, err)
	assert.True(t, accepted.Success)
	assert.Equal(t, res.TenantID, accepted.TenantID)

	joiner, err := svc.Resolve(ctx, joinerID, "")
	require.NoError(t, err)
	assert.True(t, joiner.HasProfile())
	assert.False(t, joiner.IsTenantAdmin())

	_, err = svc.CreateInvite(ctx, joiner, models.RoleEmployee, 0)
	assert.ErrorIs(t, err, ErrNotTenantAdmin)

	_, err = svc.CreateInvite(ctx, owner, models.RoleOwner, 0)
	assert.ErrorIs(t, err, ErrInvalidRole)

	again, err := svc.AcceptInvite(ctx, uuid.New(), inv.InviteCode)
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.NotEmpty(t, again.Error)
}

func TestValidateInviteCode_InvalidCodesLookAlike(t *testing.T) {
	store := newFakeStore(fixedNow)
	svc, _ := newService(store)
	ctx := context.Background()

	tid := uuid.New()
	store.tenants[tid] = &models.Tenant{ID: tid, Name: "Pet Shop"}
	store.invites = []*models.Invite{
		{InviteCode: "EXPIRED000", TenantID: tid, Role: models.RoleEmployee, Status: models.InvitePending, ExpiresAt: fixedNow.Add(-time.Hour)},
		{InviteCode: "USED000000", TenantID: tid, Role: models.RoleEmployee, Status: models.InviteAccepted, ExpiresAt: fixedNow.Add(time.Hour)},
	}

	for _, code := range []string{"UNKNOWN000", "EXPIRED000", "USED000000", ""} {
		check, err := svc.ValidateInviteCode(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, InviteCheck{}, check, code)
	}
}

func TestRevokeInviteAndMembers(t *testing.T) {
	store := newFakeStore(fixedNow)
	svc, _ := newService(store)
	ctx := context.Background()

	ownerID := uuid.New()
	_, err := svc.CreateTenantWithOwner(ctx, ownerID, "Pet Center")
	require.NoError(t, err)
	owner, _ := svc.Resolve(ctx, ownerID, "")

	inv, err := svc.CreateInvite(ctx, owner, models.RoleManager, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(maxInviteTTL), inv.ExpiresAt)

	require.NoError(t, svc.RevokeInvite(ctx, owner, inv.ID))
	assert.ErrorIs(t, svc.RevokeInvite(ctx, owner, inv.ID), ErrNotFound)

	check, err := svc.ValidateInviteCode(ctx, inv.InviteCode)
	require.NoError(t, err)
	assert.False(t, check.Valid)

	invites, err := svc.ListInvites(ctx, owner)
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, models.InviteRevoked, invites[0].Status)

	inv2, _ := svc.CreateInvite(ctx, owner, models.RoleEmployee, 0)
	memberID := uuid.New()
	_, err = svc.AcceptInvite(ctx, memberID, inv2.InviteCode)
	require.NoError(t, err)

	employee, err := svc.Resolve(ctx, memberID, "")
	require.NoError(t, err)
	_, err = svc.ListMembers(ctx, employee)
	assert.ErrorIs(t, err, ErrNotTenantAdmin)

	require.NoError(t, svc.UpdateMember(ctx, owner, memberID, models.RoleAdmin, models.ProfileActive))
	assert.ErrorIs(t, svc.UpdateMember(ctx, owner, ownerID, models.RoleEmployee, models.ProfileActive), ErrNotFound)

	members, err := svc.ListMembers(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestGenerateInviteCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateInviteCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[A-Z2-7]{10}$`, code)
		assert.False(t, seen[code])
		seen[code] = true
	}
}
