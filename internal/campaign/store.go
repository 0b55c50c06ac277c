package campaign

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/petdesk/internal/models"
)

type Store interface {
	Clients(ctx context.Context, tenantID uuid.UUID) ([]models.Client, error)
	Insert(ctx context.Context, c *models.Campaign) error
	List(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.Campaign, error)
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Clients(ctx context.Context, tenantID uuid.UUID) ([]models.Client, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, nome, whatsapp, email, last_purchase, tipo_campanha, created_at, updated_at
		 FROM clients WHERE tenant_id = $1 ORDER BY nome`, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list campaign clients: %w", err)
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Nome, &c.WhatsApp, &c.Email, &c.LastPurchase, &c.TipoCampanha, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *PGStore) Insert(ctx context.Context, c *models.Campaign) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO campaigns (tenant_id, nome, mensagem, media_type, media_url, criterios, dias_inatividade, total_clientes, status, erro, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at`,
		c.TenantID, c.Nome, c.Mensagem, c.MediaType, c.MediaURL, c.Criterios, c.DiasInatividade,
		c.TotalClientes, c.Status, c.Erro, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.Campaign, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, nome, mensagem, media_type, media_url, criterios, dias_inatividade,
		        total_clientes, status, erro, created_by, created_at
		 FROM campaigns WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`, tenantID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Nome, &c.Mensagem, &c.MediaType, &c.MediaURL, &c.Criterios,
			&c.DiasInatividade, &c.TotalClientes, &c.Status, &c.Erro, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var _ Store = (*PGStore)(nil)
