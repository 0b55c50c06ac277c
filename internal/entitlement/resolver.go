package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/cache"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

const settingsTTL = 5 * time.Minute

type Resolver struct {
	store Store
	cache *cache.Cache
}

// NewResolver builds a resolver; c may be nil to always read the store.
func NewResolver(store Store, c *cache.Cache) *Resolver {
	return &Resolver{store: store, cache: c}
}

func settingsKey(tenantID uuid.UUID) string {
	return "tenant_settings:" + tenantID.String()
}

func (r *Resolver) Settings(ctx context.Context, tenantID uuid.UUID) (*Settings, error) {
	if r.cache != nil {
		var cached Settings
		err := r.cache.Get(ctx, settingsKey(tenantID), &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("settings cache read failed", "tenant_id", tenantID, "error", err)
		}
	}

	st, err := r.store.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	r.remember(ctx, st)
	return st, nil
}

func (r *Resolver) HasModule(ctx context.Context, tenantID uuid.UUID, m Module) (bool, error) {
	st, err := r.Settings(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return st.HasModule(m), nil
}

// SetPlan replaces every module flag with the plan preset. The returned
// settings reflect what was persisted; on error nothing changed.
func (r *Resolver) SetPlan(ctx context.Context, s *tenant.Session, plan Plan) (*Settings, error) {
	flags, err := PlanPreset(plan)
	if err != nil {
		return nil, err
	}
	return r.apply(ctx, s, func(st *Settings) {
		st.Plan = plan
		st.Modules = flags
	})
}

// SetModule toggles a single module, keeping the plan label.
func (r *Resolver) SetModule(ctx context.Context, s *tenant.Session, m Module, enabled bool) (*Settings, error) {
	if !m.valid() {
		return nil, ErrUnknownModule
	}
	return r.apply(ctx, s, func(st *Settings) {
		st.Modules = st.Modules.With(m, enabled)
	})
}

func (r *Resolver) apply(ctx context.Context, s *tenant.Session, mutate func(*Settings)) (*Settings, error) {
	if !s.IsTenantAdmin() {
		return nil, ErrNotTenantAdmin
	}
	tenantID := s.TenantID()

	current, err := r.Settings(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSettingsNotLoaded, err)
	}

	next := *current
	mutate(&next)

	if err := r.store.SaveModules(ctx, tenantID, next.Plan, next.Modules); err != nil {
		return nil, err
	}

	r.Invalidate(ctx, tenantID)
	r.remember(ctx, &next)

	slog.Info("tenant modules updated", "tenant_id", tenantID, "plan", next.Plan, "user_id", s.UserID)
	return &next, nil
}

// Invalidate drops the cached settings so the next read hits the store.
func (r *Resolver) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, settingsKey(tenantID)); err != nil {
		slog.Warn("settings cache invalidate failed", "tenant_id", tenantID, "error", err)
	}
}

func (r *Resolver) remember(ctx context.Context, st *Settings) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, settingsKey(st.TenantID), st, settingsTTL); err != nil {
		slog.Warn("settings cache write failed", "tenant_id", st.TenantID, "error", err)
	}
}
