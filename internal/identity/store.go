package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

// raise_exception, the SQLSTATE plpgsql uses for RAISE EXCEPTION.
const sqlStateRaise = "P0001"

type Store interface {
	Profile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	Tenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)
	CreateTenantWithOwner(ctx context.Context, userID uuid.UUID, name string) (uuid.UUID, error)
	AcceptInvite(ctx context.Context, userID uuid.UUID, code string) (uuid.UUID, error)
	PendingInvite(ctx context.Context, code string) (tenantName string, role models.Role, err error)
	InsertInvite(ctx context.Context, inv *models.Invite) error
	ListInvites(ctx context.Context, tenantID uuid.UUID) ([]models.Invite, error)
	RevokeInvite(ctx context.Context, tenantID, inviteID uuid.UUID) error
	ListMembers(ctx context.Context, tenantID uuid.UUID) ([]models.UserProfile, error)
	UpdateMember(ctx context.Context, tenantID, userID uuid.UUID, role models.Role, status models.ProfileStatus) error
}

// PGStore reads profiles and tenants through tenant.Service and calls the
// provisioning procedures directly.
type PGStore struct {
	db      *pgxpool.Pool
	tenants *tenant.Service
}

func NewPGStore(db *pgxpool.Pool, tenants *tenant.Service) *PGStore {
	return &PGStore{db: db, tenants: tenants}
}

func (s *PGStore) Profile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	return s.tenants.GetProfile(ctx, userID)
}

func (s *PGStore) Tenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	return s.tenants.GetByID(ctx, tenantID)
}

func (s *PGStore) CreateTenantWithOwner(ctx context.Context, userID uuid.UUID, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, "SELECT create_tenant_with_owner($1, $2)", userID, name).Scan(&id)
	if err != nil {
		return uuid.Nil, procedureErr("create_tenant_with_owner", err)
	}
	return id, nil
}

func (s *PGStore) AcceptInvite(ctx context.Context, userID uuid.UUID, code string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, "SELECT accept_tenant_invite($1, $2)", userID, code).Scan(&id)
	if err != nil {
		return uuid.Nil, procedureErr("accept_tenant_invite", err)
	}
	return id, nil
}

func (s *PGStore) PendingInvite(ctx context.Context, code string) (string, models.Role, error) {
	var name string
	var role models.Role
	err := s.db.QueryRow(ctx,
		`SELECT t.name, i.role
		 FROM tenant_invites i JOIN tenants t ON t.id = i.tenant_id
		 WHERE i.invite_code = $1 AND i.status = 'pending' AND i.expires_at > now()`, code,
	).Scan(&name, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", tenant.ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("lookup invite: %w", err)
	}
	return name, role, nil
}

func (s *PGStore) InsertInvite(ctx context.Context, inv *models.Invite) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO tenant_invites (tenant_id, invite_code, role, expires_at, status, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		inv.TenantID, inv.InviteCode, inv.Role, inv.ExpiresAt, inv.Status, inv.CreatedBy,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

func (s *PGStore) ListInvites(ctx context.Context, tenantID uuid.UUID) ([]models.Invite, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, invite_code, role, expires_at, status, created_by, created_at
		 FROM tenant_invites WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	var invites []models.Invite
	for rows.Next() {
		var inv models.Invite
		if err := rows.Scan(&inv.ID, &inv.TenantID, &inv.InviteCode, &inv.Role, &inv.ExpiresAt, &inv.Status, &inv.CreatedBy, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

func (s *PGStore) RevokeInvite(ctx context.Context, tenantID, inviteID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE tenant_invites SET status = 'revoked'
		 WHERE id = $1 AND tenant_id = $2 AND status = 'pending'`, inviteID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("revoke invite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

func (s *PGStore) ListMembers(ctx context.Context, tenantID uuid.UUID) ([]models.UserProfile, error) {
	return s.tenants.ListMembers(ctx, tenantID)
}

func (s *PGStore) UpdateMember(ctx context.Context, tenantID, userID uuid.UUID, role models.Role, status models.ProfileStatus) error {
	return s.tenants.UpdateMember(ctx, tenantID, userID, role, status)
}

func procedureErr(proc string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateRaise {
		return &ProcedureError{Procedure: proc, Message: pgErr.Message}
	}
	return fmt.Errorf("call %s: %w", proc, err)
}

var _ Store = (*PGStore)(nil)
