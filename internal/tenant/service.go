package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/petdesk/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrNoTenant is returned when the caller's profile is not bound to a
	// tenant yet.
	ErrNoTenant = errors.New("user is not bound to a tenant")
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.QueryRow(ctx,
		"SELECT id, name, created_at FROM tenants WHERE id = $1", id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.db.QueryRow(ctx,
		`SELECT id, tenant_id, full_name, email, role, status, created_at
		 FROM users_profile WHERE id = $1`, userID,
	).Scan(&p.ID, &p.TenantID, &p.FullName, &p.Email, &p.Role, &p.Status, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (s *Service) ListMembers(ctx context.Context, tenantID uuid.UUID) ([]models.UserProfile, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, full_name, email, role, status, created_at
		 FROM users_profile WHERE tenant_id = $1 ORDER BY created_at`, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []models.UserProfile
	for rows.Next() {
		var p models.UserProfile
		if err := rows.Scan(&p.ID, &p.TenantID, &p.FullName, &p.Email, &p.Role, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, p)
	}
	return members, rows.Err()
}

func (s *Service) UpdateMember(ctx context.Context, tenantID, userID uuid.UUID, role models.Role, status models.ProfileStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users_profile SET role = $1, status = $2
		 WHERE id = $3 AND tenant_id = $4 AND role <> 'owner'`,
		role, status, userID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
