package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/entitlement"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

type SettingsSource interface {
	Settings(ctx context.Context, tenantID uuid.UUID) (*entitlement.Settings, error)
}

type dataset struct {
	settings *entitlement.Settings
	appts    []models.Appointment
	stays    []models.HotelStay
	sales    []models.Sale
}

type Service struct {
	store    Store
	settings SettingsSource
	loc      *time.Location
}

func NewService(store Store, settings SettingsSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, settings: settings, loc: loc}
}

func (s *Service) load(ctx context.Context, tenantID uuid.UUID, w Window) (*dataset, error) {
	st, err := s.settings.Settings(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	appts, err := s.store.Appointments(ctx, tenantID, w)
	if err != nil {
		return nil, err
	}
	stays, err := s.store.Stays(ctx, tenantID, w)
	if err != nil {
		return nil, err
	}
	sales, err := s.store.Sales(ctx, tenantID, w)
	if err != nil {
		return nil, err
	}
	return &dataset{settings: st, appts: appts, stays: stays, sales: sales}, nil
}

// Day returns the rollup of the calendar day containing date.
func (s *Service) Day(ctx context.Context, sess *tenant.Session, date time.Time) (*Day, error) {
	if !sess.HasProfile() {
		return nil, tenant.ErrNoTenant
	}
	w := DayWindow(date, s.loc)
	ds, err := s.load(ctx, sess.TenantID(), w)
	if err != nil {
		return nil, err
	}
	d := Rollup(w, ds.appts, ds.stays, ds.sales, ds.settings.HotelCapacidade)
	return &d, nil
}

// Month requires the full dashboard module.
func (s *Service) Month(ctx context.Context, sess *tenant.Session, year int, month time.Month) (*Month, error) {
	if !sess.HasProfile() {
		return nil, tenant.ErrNoTenant
	}
	st, err := s.settings.Settings(ctx, sess.TenantID())
	if err != nil {
		return nil, err
	}
	if !entitlement.CanAccess(st, entitlement.ModDashboardCompleto, sess.IsTenantAdmin()) {
		return nil, entitlement.ErrModuleDisabled
	}

	w := MonthWindow(year, month, s.loc)
	ds, err := s.load(ctx, sess.TenantID(), w)
	if err != nil {
		return nil, err
	}
	m := RollupMonth(w, ds.appts, ds.stays, ds.sales, ds.settings.HotelCapacidade)
	return &m, nil
}

func (s *Service) Location() *time.Location {
	return s.loc
}
