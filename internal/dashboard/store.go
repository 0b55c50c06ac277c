package dashboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/petdesk/internal/models"
)

type Store interface {
	Appointments(ctx context.Context, tenantID uuid.UUID, w Window) ([]models.Appointment, error)
	Stays(ctx context.Context, tenantID uuid.UUID, w Window) ([]models.HotelStay, error)
	Sales(ctx context.Context, tenantID uuid.UUID, w Window) ([]models.Sale, error)
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Appointments(ctx context.Context, tenantID uuid.UUID, w Window) ([]models.Appointment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, client_id, pet_id, servico, data_hora, status, preco, payment_status
		 FROM appointments
		 WHERE tenant_id = $1 AND data_hora >= $2 AND data_hora < $3`,
		tenantID, w.Start, w.End,
	)
	if err != nil {
		return nil, fmt.Errorf("query dashboard appointments: %w", err)
	}
	defer rows.Close()

	var out []models.Appointment
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(&a.ID, &a.TenantID, &a.ClientID, &a.PetID, &a.Servico, &a.DataHora, &a.Status, &a.Preco, &a.PaymentStatus); err != nil {
			return nil, fmt.Errorf("scan dashboard appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PGStore) Stays(ctx context.Context, tenantID uuid.UUID, w Window) ([]models.HotelStay, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, client_id, pet_id, check_in, check_out, status, preco_diaria, payment_status
		 FROM hotel_stays
		 WHERE tenant_id = $1 AND check_in < $3 AND check_out >= $2 AND status <> 'cancelado'`,
		tenantID, w.Start, w.End,
	)
	if err != nil {
		return nil, fmt.Errorf("query dashboard stays: %w", err)
	}
	defer rows.Close()

	var out []models.HotelStay
	for rows.Next() {
		var st models.HotelStay
		if err := rows.Scan(&st.ID, &st.TenantID, &st.ClientID, &st.PetID, &st.CheckIn, &st.CheckOut, &st.Status, &st.PrecoDiaria, &st.PaymentStatus); err != nil {
			return nil, fmt.Errorf("scan dashboard stay: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *PGStore) Sales(ctx context.Context, tenantID uuid.UUID, w Window) ([]models.Sale, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, client_id, total, forma_pagamento, created_at
		 FROM sales
		 WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3`,
		tenantID, w.Start, w.End,
	)
	if err != nil {
		return nil, fmt.Errorf("query dashboard sales: %w", err)
	}
	defer rows.Close()

	var out []models.Sale
	for rows.Next() {
		var sale models.Sale
		if err := rows.Scan(&sale.ID, &sale.TenantID, &sale.ClientID, &sale.Total, &sale.FormaPagamento, &sale.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dashboard sale: %w", err)
		}
		out = append(out, sale)
	}
	return out, rows.Err()
}
