package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	Load(ctx context.Context, tenantID uuid.UUID) (*Settings, error)
	SaveModules(ctx context.Context, tenantID uuid.UUID, plan Plan, flags Flags) error
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func moduleColumnList() string {
	cols := make([]string, moduleCount)
	copy(cols, moduleKeys[:])
	return strings.Join(cols, ", ")
}

func (s *PGStore) Load(ctx context.Context, tenantID uuid.UUID) (*Settings, error) {
	query := fmt.Sprintf(
		`SELECT plan_type, dias_inatividade, hotel_capacidade, %s FROM tenant_settings WHERE tenant_id = $1`,
		moduleColumnList(),
	)

	st := Settings{TenantID: tenantID}
	dest := []any{&st.Plan, &st.DiasInatividade, &st.HotelCapacidade}
	for i := range st.Modules {
		dest = append(dest, &st.Modules[i])
	}

	err := s.db.QueryRow(ctx, query, tenantID).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSettingsNotLoaded
	}
	if err != nil {
		return nil, fmt.Errorf("load tenant settings: %w", err)
	}
	return &st, nil
}

func (s *PGStore) SaveModules(ctx context.Context, tenantID uuid.UUID, plan Plan, flags Flags) error {
	sets := []string{"plan_type = $2", "updated_at = now()"}
	args := []any{tenantID, plan}
	for i, enabled := range flags {
		args = append(args, enabled)
		sets = append(sets, fmt.Sprintf("%s = $%d", moduleKeys[i], len(args)))
	}

	query := fmt.Sprintf("UPDATE tenant_settings SET %s WHERE tenant_id = $1", strings.Join(sets, ", "))
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save tenant modules: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSettingsNotLoaded
	}
	return nil
}
