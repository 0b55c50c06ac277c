package entitlement

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUnknownModule     = errors.New("unknown module")
	ErrUnknownPlan       = errors.New("unknown plan")
	ErrNotTenantAdmin    = errors.New("only tenant owners and admins can change modules")
	ErrSettingsNotLoaded = errors.New("tenant settings not loaded")
	ErrModuleDisabled    = errors.New("module not enabled for this tenant")
)

// Settings mirrors one tenant_settings row.
type Settings struct {
	TenantID        uuid.UUID `json:"tenant_id"`
	Plan            Plan      `json:"plan_type"`
	Modules         Flags     `json:"modules"`
	DiasInatividade int       `json:"dias_inatividade"`
	HotelCapacidade int       `json:"hotel_capacidade"`
}

func (s *Settings) HasModule(m Module) bool {
	return s != nil && s.Modules.Enabled(m)
}
