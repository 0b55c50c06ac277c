package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/petdesk/internal/cache"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

type fakeStore struct {
	settings map[uuid.UUID]*Settings
	saveErr  error
	loads    int
	saves    int
}

func newFakeStore(st *Settings) *fakeStore {
	return &fakeStore{settings: map[uuid.UUID]*Settings{st.TenantID: st}}
}

func (f *fakeStore) Load(_ context.Context, tenantID uuid.UUID) (*Settings, error) {
	f.loads++
	st, ok := f.settings[tenantID]
	if !ok {
		return nil, ErrSettingsNotLoaded
	}
	cp := *st
	return &cp, nil
}

func (f *fakeStore) SaveModules(_ context.Context, tenantID uuid.UUID, plan Plan, flags Flags) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	st := f.settings[tenantID]
	st.Plan = plan
	st.Modules = flags
	return nil
}

func sessionFor(tenantID uuid.UUID, role models.Role) *tenant.Session {
	return &tenant.Session{
		UserID:  uuid.New(),
		Profile: &models.UserProfile{TenantID: &tenantID, Role: role},
		Tenant:  &models.Tenant{ID: tenantID},
	}
}

func newCache(t *testing.T) *cache.Cache {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewCache(client, "test:")
}

func TestParseModule(t *testing.T) {
	for _, m := range Modules() {
		parsed, err := ParseModule(m.Key())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}

	_, err := ParseModule("mod_spaceship")
	assert.ErrorIs(t, err, ErrUnknownModule)
	assert.Len(t, Modules(), 11)
}

func TestPlanPreset(t *testing.T) {
	basic, err := PlanPreset(PlanBasic)
	require.NoError(t, err)
	assert.True(t, basic.Enabled(ModPetshop))
	assert.False(t, basic.Enabled(ModHotel))
	assert.False(t, basic.Enabled(ModMarketing))

	hotel, err := PlanPreset(PlanHotel)
	require.NoError(t, err)
	assert.True(t, hotel.Enabled(ModHotel))
	assert.True(t, hotel.Enabled(ModPDV))
	assert.False(t, hotel.Enabled(ModClinica))

	premium, err := PlanPreset(PlanPremium)
	require.NoError(t, err)
	for _, m := range Modules() {
		assert.True(t, premium.Enabled(m), m.Key())
	}

	again, _ := PlanPreset(PlanHotel)
	assert.Equal(t, hotel, again)

	_, err = PlanPreset("gold")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestFlags_JSONUsesColumnKeys(t *testing.T) {
	f := Flags{}.With(ModHotel, true)
	b, err := json.Marshal(f)
	require.NoError(t, err)

	var raw map[string]bool
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.True(t, raw["mod_hotel"])
	assert.False(t, raw["mod_petshop"])

	var back Flags
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, f, back)

	assert.Error(t, json.Unmarshal([]byte(`{"mod_bogus":true}`), &back))
}

func TestNavigation_HotelLockedForEmployees(t *testing.T) {
	st := &Settings{Plan: PlanBasic, Modules: flagsOf(basicModules...)}

	find := func(items []NavItem, label string) *NavItem {
		for i := range items {
			if items[i].Label == label {
				return &items[i]
			}
		}
		return nil
	}

	employee := Navigation(st, false)
	hotel := find(employee, "Hotel & Creche")
	require.NotNil(t, hotel)
	assert.True(t, hotel.Locked)
	assert.False(t, CanAccess(st, ModHotel, false))
	assert.Nil(t, find(employee, "Configurações"))

	grooming := find(employee, "Banho & Tosa")
	require.NotNil(t, grooming)
	assert.False(t, grooming.Locked)

	admin := Navigation(st, true)
	hotel = find(admin, "Hotel & Creche")
	require.NotNil(t, hotel)
	assert.False(t, hotel.Locked)
	assert.True(t, CanAccess(st, ModHotel, true))
	assert.NotNil(t, find(admin, "Configurações"))
}

func TestResolver_SetPlan(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore(&Settings{TenantID: tenantID, Plan: PlanBasic, Modules: flagsOf(basicModules...), DiasInatividade: 30})
	r := NewResolver(store, newCache(t))
	ctx := context.Background()

	t.Run("employee is rejected", func(t *testing.T) {
		_, err := r.SetPlan(ctx, sessionFor(tenantID, models.RoleEmployee), PlanPremium)
		assert.ErrorIs(t, err, ErrNotTenantAdmin)
		assert.Equal(t, 0, store.saves)
	})

	t.Run("admin applies preset", func(t *testing.T) {
		st, err := r.SetPlan(ctx, sessionFor(tenantID, models.RoleAdmin), PlanHotel)
		require.NoError(t, err)
		assert.Equal(t, PlanHotel, st.Plan)
		assert.True(t, st.HasModule(ModHotel))
		assert.Equal(t, 30, st.DiasInatividade)

		ok, err := r.HasModule(ctx, tenantID, ModHotel)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("failed write keeps confirmed state", func(t *testing.T) {
		store.saveErr = errors.New("connection reset")
		defer func() { store.saveErr = nil }()

		_, err := r.SetPlan(ctx, sessionFor(tenantID, models.RoleOwner), PlanPremium)
		require.Error(t, err)

		st, err := r.Settings(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, PlanHotel, st.Plan)
		assert.False(t, st.HasModule(ModMarketing))
	})

	t.Run("unknown tenant reports not loaded", func(t *testing.T) {
		_, err := r.SetPlan(ctx, sessionFor(uuid.New(), models.RoleOwner), PlanPremium)
		assert.ErrorIs(t, err, ErrSettingsNotLoaded)
	})
}

func TestResolver_SetModuleAndCache(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore(&Settings{TenantID: tenantID, Plan: PlanBasic, Modules: flagsOf(basicModules...)})
	r := NewResolver(store, newCache(t))
	ctx := context.Background()

	_, err := r.Settings(ctx, tenantID)
	require.NoError(t, err)
	_, err = r.Settings(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, store.loads, "second read should come from cache")

	st, err := r.SetModule(ctx, sessionFor(tenantID, models.RoleOwner), ModMarketing, true)
	require.NoError(t, err)
	assert.Equal(t, PlanBasic, st.Plan)
	assert.True(t, st.HasModule(ModMarketing))
	assert.True(t, st.HasModule(ModPetshop))
}

func TestResolver_NoCache(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore(&Settings{TenantID: tenantID, Plan: PlanPremium, Modules: planPresets[PlanPremium]})
	r := NewResolver(store, nil)

	ok, err := r.HasModule(context.Background(), tenantID, ModClinica)
	require.NoError(t, err)
	assert.True(t, ok)
}
