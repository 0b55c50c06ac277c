package fiscal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

type Store interface {
	Config(ctx context.Context, tenantID uuid.UUID) (*models.FiscalConfig, error)
	Sale(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error)
	// ReserveNumber hands out the next invoice number for the tenant's
	// NFC-e series. A reserved number is never returned again.
	ReserveNumber(ctx context.Context, tenantID uuid.UUID) (serie int, numero int64, err error)
	Insert(ctx context.Context, n *models.NotaFiscal) error
	Get(ctx context.Context, tenantID, id uuid.UUID) (*models.NotaFiscal, error)
	Update(ctx context.Context, n *models.NotaFiscal) error
	List(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.NotaFiscal, error)
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const notaColumns = `id, tenant_id, sale_id, tipo, numero, serie, referencia, status, chave, protocolo,
	xml_url, pdf_url, xml_cancelamento_url, erro_sefaz, valor_total, created_at, updated_at`

func scanNota(row pgx.Row, n *models.NotaFiscal) error {
	return row.Scan(&n.ID, &n.TenantID, &n.SaleID, &n.Tipo, &n.Numero, &n.Serie, &n.Referencia, &n.Status,
		&n.Chave, &n.Protocolo, &n.XMLURL, &n.PDFURL, &n.XMLCancURL, &n.ErroSefaz, &n.ValorTotal, &n.CreatedAt, &n.UpdatedAt)
}

func (s *PGStore) Config(ctx context.Context, tenantID uuid.UUID) (*models.FiscalConfig, error) {
	var c models.FiscalConfig
	err := s.db.QueryRow(ctx,
		`SELECT tenant_id, cnpj, inscricao_estadual, regime_tributario, csc_id, csc_token,
		        serie_nfce, proximo_numero_nfce, ambiente
		 FROM fiscal_config WHERE tenant_id = $1`, tenantID,
	).Scan(&c.TenantID, &c.CNPJ, &c.InscricaoEstadual, &c.RegimeTributario, &c.CSCID, &c.CSCToken,
		&c.SerieNFCe, &c.ProximoNumero, &c.Ambiente)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tenant.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get fiscal config: %w", err)
	}
	return &c, nil
}

func (s *PGStore) Sale(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.QueryRow(ctx,
		`SELECT id, tenant_id, client_id, total, forma_pagamento, created_at
		 FROM sales WHERE id = $1 AND tenant_id = $2`, saleID, tenantID,
	).Scan(&sale.ID, &sale.TenantID, &sale.ClientID, &sale.Total, &sale.FormaPagamento, &sale.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tenant.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &sale, nil
}

func (s *PGStore) ReserveNumber(ctx context.Context, tenantID uuid.UUID) (int, int64, error) {
	var serie int
	var numero int64
	err := s.db.QueryRow(ctx,
		`UPDATE fiscal_config SET proximo_numero_nfce = proximo_numero_nfce + 1
		 WHERE tenant_id = $1
		 RETURNING serie_nfce, proximo_numero_nfce - 1`, tenantID,
	).Scan(&serie, &numero)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, tenant.ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("reserve invoice number: %w", err)
	}
	return serie, numero, nil
}

func (s *PGStore) Insert(ctx context.Context, n *models.NotaFiscal) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO notas_fiscais (tenant_id, sale_id, tipo, numero, serie, referencia, status, valor_total)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		n.TenantID, n.SaleID, n.Tipo, n.Numero, n.Serie, n.Referencia, n.Status, n.ValorTotal,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert nota fiscal: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.NotaFiscal, error) {
	var n models.NotaFiscal
	err := scanNota(s.db.QueryRow(ctx,
		"SELECT "+notaColumns+" FROM notas_fiscais WHERE id = $1 AND tenant_id = $2", id, tenantID,
	), &n)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tenant.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get nota fiscal: %w", err)
	}
	return &n, nil
}

func (s *PGStore) Update(ctx context.Context, n *models.NotaFiscal) error {
	err := s.db.QueryRow(ctx,
		`UPDATE notas_fiscais SET status = $1, chave = $2, protocolo = $3, xml_url = $4, pdf_url = $5,
		        xml_cancelamento_url = $6, erro_sefaz = $7, updated_at = now()
		 WHERE id = $8 AND tenant_id = $9
		 RETURNING updated_at`,
		n.Status, n.Chave, n.Protocolo, n.XMLURL, n.PDFURL, n.XMLCancURL, n.ErroSefaz, n.ID, n.TenantID,
	).Scan(&n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return tenant.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update nota fiscal: %w", err)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.NotaFiscal, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		"SELECT "+notaColumns+" FROM notas_fiscais WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2",
		tenantID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notas fiscais: %w", err)
	}
	defer rows.Close()

	var out []models.NotaFiscal
	for rows.Next() {
		var n models.NotaFiscal
		if err := scanNota(rows, &n); err != nil {
			return nil, fmt.Errorf("scan nota fiscal: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

var _ Store = (*PGStore)(nil)
