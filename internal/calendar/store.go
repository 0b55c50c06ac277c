package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotConnected = errors.New("google calendar is not connected")

// Connection is a tenant's stored Google authorization.
type Connection struct {
	TenantID       uuid.UUID `json:"tenant_id"`
	RefreshToken   string    `json:"-"`
	CalendarID     string    `json:"calendar_id"`
	ConnectedEmail string    `json:"connected_email"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type TokenStore interface {
	Connection(ctx context.Context, tenantID uuid.UUID) (*Connection, error)
	SaveConnection(ctx context.Context, c *Connection) error
	DeleteConnection(ctx context.Context, tenantID uuid.UUID) error
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Connection(ctx context.Context, tenantID uuid.UUID) (*Connection, error) {
	c := Connection{TenantID: tenantID}
	err := s.db.QueryRow(ctx,
		`SELECT refresh_token, calendar_id, connected_email, updated_at
		 FROM google_calendar_tokens WHERE tenant_id = $1`, tenantID,
	).Scan(&c.RefreshToken, &c.CalendarID, &c.ConnectedEmail, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("load calendar connection: %w", err)
	}
	return &c, nil
}

func (s *PGStore) SaveConnection(ctx context.Context, c *Connection) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO google_calendar_tokens (tenant_id, refresh_token, calendar_id, connected_email)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id) DO UPDATE
		 SET refresh_token = EXCLUDED.refresh_token, calendar_id = EXCLUDED.calendar_id,
		     connected_email = EXCLUDED.connected_email, updated_at = now()
		 RETURNING updated_at`,
		c.TenantID, c.RefreshToken, c.CalendarID, c.ConnectedEmail,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save calendar connection: %w", err)
	}
	return nil
}

func (s *PGStore) DeleteConnection(ctx context.Context, tenantID uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM google_calendar_tokens WHERE tenant_id = $1`, tenantID); err != nil {
		return fmt.Errorf("delete calendar connection: %w", err)
	}
	return nil
}
