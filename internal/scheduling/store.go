package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

type Store interface {
	ListClients(ctx context.Context, tenantID uuid.UUID, search string) ([]models.Client, error)
	GetClient(ctx context.Context, tenantID, id uuid.UUID) (*models.Client, error)
	InsertClient(ctx context.Context, c *models.Client) error
	UpdateClient(ctx context.Context, c *models.Client) error
	DeleteClient(ctx context.Context, tenantID, id uuid.UUID) error

	ListPets(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID) ([]models.Pet, error)
	GetPet(ctx context.Context, tenantID, id uuid.UUID) (*models.Pet, error)
	PetsByName(ctx context.Context, tenantID uuid.UUID, name string) ([]models.Pet, error)
	InsertPet(ctx context.Context, p *models.Pet) error
	UpdatePet(ctx context.Context, p *models.Pet) error
	DeletePet(ctx context.Context, tenantID, id uuid.UUID) error

	ListAppointments(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.Appointment, error)
	GetAppointment(ctx context.Context, tenantID, id uuid.UUID) (*models.Appointment, error)
	AppointmentByEvent(ctx context.Context, tenantID uuid.UUID, eventID string) (*models.Appointment, error)
	InsertAppointment(ctx context.Context, a *models.Appointment) error
	UpdateAppointment(ctx context.Context, a *models.Appointment) error
	DeleteAppointment(ctx context.Context, tenantID, id uuid.UUID) error

	ListStays(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.HotelStay, error)
	GetStay(ctx context.Context, tenantID, id uuid.UUID) (*models.HotelStay, error)
	StayByEvent(ctx context.Context, tenantID uuid.UUID, eventID string) (*models.HotelStay, error)
	InsertStay(ctx context.Context, s *models.HotelStay) error
	UpdateStay(ctx context.Context, s *models.HotelStay) error
	DeleteStay(ctx context.Context, tenantID, id uuid.UUID) error

	InsertSale(ctx context.Context, s *models.Sale) error
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return tenant.ErrNotFound
	}
	return err
}

func (s *PGStore) exec(ctx context.Context, what, sql string, args ...interface{}) error {
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

const clientColumns = `id, tenant_id, nome, whatsapp, email, last_purchase, tipo_campanha, created_at, updated_at`

func scanClient(row pgx.Row, c *models.Client) error {
	return row.Scan(&c.ID, &c.TenantID, &c.Nome, &c.WhatsApp, &c.Email, &c.LastPurchase, &c.TipoCampanha, &c.CreatedAt, &c.UpdatedAt)
}

func (s *PGStore) ListClients(ctx context.Context, tenantID uuid.UUID, search string) ([]models.Client, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+clientColumns+` FROM clients
		 WHERE tenant_id = $1 AND ($2 = '' OR nome ILIKE '%' || $2 || '%' OR whatsapp LIKE '%' || $2 || '%')
		 ORDER BY nome`, tenantID, search,
	)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []models.Client
	for rows.Next() {
		var c models.Client
		if err := scanClient(rows, &c); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) GetClient(ctx context.Context, tenantID, id uuid.UUID) (*models.Client, error) {
	var c models.Client
	err := scanClient(s.db.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE tenant_id = $1 AND id = $2`, tenantID, id), &c)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *PGStore) InsertClient(ctx context.Context, c *models.Client) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO clients (tenant_id, nome, whatsapp, email, tipo_campanha)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		c.TenantID, c.Nome, c.WhatsApp, c.Email, c.TipoCampanha,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (s *PGStore) UpdateClient(ctx context.Context, c *models.Client) error {
	return s.exec(ctx, "update client",
		`UPDATE clients SET nome = $3, whatsapp = $4, email = $5, updated_at = now()
		 WHERE tenant_id = $1 AND id = $2`,
		c.TenantID, c.ID, c.Nome, c.WhatsApp, c.Email)
}

func (s *PGStore) DeleteClient(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.exec(ctx, "delete client", `DELETE FROM clients WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

const petColumns = `id, tenant_id, client_id, nome, especie, raca, porte, pelagem, peso, created_at`

func scanPet(row pgx.Row, p *models.Pet) error {
	return row.Scan(&p.ID, &p.TenantID, &p.ClientID, &p.Nome, &p.Especie, &p.Raca, &p.Porte, &p.Pelagem, &p.Peso, &p.CreatedAt)
}

func (s *PGStore) queryPets(ctx context.Context, sql string, args ...interface{}) ([]models.Pet, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list pets: %w", err)
	}
	defer rows.Close()

	var out []models.Pet
	for rows.Next() {
		var p models.Pet
		if err := scanPet(rows, &p); err != nil {
			return nil, fmt.Errorf("scan pet: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) ListPets(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID) ([]models.Pet, error) {
	return s.queryPets(ctx,
		`SELECT `+petColumns+` FROM pets
		 WHERE tenant_id = $1 AND ($2::uuid IS NULL OR client_id = $2)
		 ORDER BY nome`, tenantID, clientID)
}

func (s *PGStore) PetsByName(ctx context.Context, tenantID uuid.UUID, name string) ([]models.Pet, error) {
	return s.queryPets(ctx,
		`SELECT `+petColumns+` FROM pets
		 WHERE tenant_id = $1 AND lower(nome) = lower($2)
		 ORDER BY created_at`, tenantID, name)
}

func (s *PGStore) GetPet(ctx context.Context, tenantID, id uuid.UUID) (*models.Pet, error) {
	var p models.Pet
	err := scanPet(s.db.QueryRow(ctx,
		`SELECT `+petColumns+` FROM pets WHERE tenant_id = $1 AND id = $2`, tenantID, id), &p)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *PGStore) InsertPet(ctx context.Context, p *models.Pet) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO pets (tenant_id, client_id, nome, especie, raca, porte, pelagem, peso)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		p.TenantID, p.ClientID, p.Nome, p.Especie, p.Raca, p.Porte, p.Pelagem, p.Peso,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pet: %w", err)
	}
	return nil
}

func (s *PGStore) UpdatePet(ctx context.Context, p *models.Pet) error {
	return s.exec(ctx, "update pet",
		`UPDATE pets SET nome = $3, especie = $4, raca = $5, porte = $6, pelagem = $7, peso = $8
		 WHERE tenant_id = $1 AND id = $2`,
		p.TenantID, p.ID, p.Nome, p.Especie, p.Raca, p.Porte, p.Pelagem, p.Peso)
}

func (s *PGStore) DeletePet(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.exec(ctx, "delete pet", `DELETE FROM pets WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

const appointmentColumns = `id, tenant_id, client_id, pet_id, servico, data_hora, status, kanban_status, preco,
	payment_status, google_event_id, created_at, updated_at`

func scanAppointment(row pgx.Row, a *models.Appointment) error {
	return row.Scan(&a.ID, &a.TenantID, &a.ClientID, &a.PetID, &a.Servico, &a.DataHora, &a.Status, &a.KanbanStatus,
		&a.Preco, &a.PaymentStatus, &a.GoogleEventID, &a.CreatedAt, &a.UpdatedAt)
}

func (s *PGStore) ListAppointments(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.Appointment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+appointmentColumns+` FROM appointments
		 WHERE tenant_id = $1 AND data_hora >= $2 AND data_hora < $3
		 ORDER BY data_hora`, tenantID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []models.Appointment
	for rows.Next() {
		var a models.Appointment
		if err := scanAppointment(rows, &a); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PGStore) GetAppointment(ctx context.Context, tenantID, id uuid.UUID) (*models.Appointment, error) {
	var a models.Appointment
	err := scanAppointment(s.db.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE tenant_id = $1 AND id = $2`, tenantID, id), &a)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *PGStore) AppointmentByEvent(ctx context.Context, tenantID uuid.UUID, eventID string) (*models.Appointment, error) {
	var a models.Appointment
	err := scanAppointment(s.db.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE tenant_id = $1 AND google_event_id = $2`, tenantID, eventID), &a)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *PGStore) InsertAppointment(ctx context.Context, a *models.Appointment) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO appointments (tenant_id, client_id, pet_id, servico, data_hora, status, kanban_status, preco, payment_status, google_event_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		a.TenantID, a.ClientID, a.PetID, a.Servico, a.DataHora, a.Status, a.KanbanStatus, a.Preco, a.PaymentStatus, a.GoogleEventID,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (s *PGStore) UpdateAppointment(ctx context.Context, a *models.Appointment) error {
	return s.exec(ctx, "update appointment",
		`UPDATE appointments
		 SET servico = $3, data_hora = $4, status = $5, kanban_status = $6, preco = $7,
		     payment_status = $8, google_event_id = $9, updated_at = now()
		 WHERE tenant_id = $1 AND id = $2`,
		a.TenantID, a.ID, a.Servico, a.DataHora, a.Status, a.KanbanStatus, a.Preco, a.PaymentStatus, a.GoogleEventID)
}

func (s *PGStore) DeleteAppointment(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.exec(ctx, "delete appointment", `DELETE FROM appointments WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

const stayColumns = `id, tenant_id, client_id, pet_id, check_in, check_out, status, preco_diaria, payment_status,
	google_event_id, created_at, updated_at`

func scanStay(row pgx.Row, st *models.HotelStay) error {
	return row.Scan(&st.ID, &st.TenantID, &st.ClientID, &st.PetID, &st.CheckIn, &st.CheckOut, &st.Status, &st.PrecoDiaria,
		&st.PaymentStatus, &st.GoogleEventID, &st.CreatedAt, &st.UpdatedAt)
}

// ListStays returns stays overlapping [from, to).
func (s *PGStore) ListStays(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.HotelStay, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+stayColumns+` FROM hotel_stays
		 WHERE tenant_id = $1 AND check_in < $3 AND check_out > $2
		 ORDER BY check_in`, tenantID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list stays: %w", err)
	}
	defer rows.Close()

	var out []models.HotelStay
	for rows.Next() {
		var st models.HotelStay
		if err := scanStay(rows, &st); err != nil {
			return nil, fmt.Errorf("scan stay: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *PGStore) GetStay(ctx context.Context, tenantID, id uuid.UUID) (*models.HotelStay, error) {
	var st models.HotelStay
	err := scanStay(s.db.QueryRow(ctx,
		`SELECT `+stayColumns+` FROM hotel_stays WHERE tenant_id = $1 AND id = $2`, tenantID, id), &st)
	if err != nil {
		return nil, notFound(err)
	}
	return &st, nil
}

func (s *PGStore) StayByEvent(ctx context.Context, tenantID uuid.UUID, eventID string) (*models.HotelStay, error) {
	var st models.HotelStay
	err := scanStay(s.db.QueryRow(ctx,
		`SELECT `+stayColumns+` FROM hotel_stays WHERE tenant_id = $1 AND google_event_id = $2`, tenantID, eventID), &st)
	if err != nil {
		return nil, notFound(err)
	}
	return &st, nil
}

func (s *PGStore) InsertStay(ctx context.Context, st *models.HotelStay) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO hotel_stays (tenant_id, client_id, pet_id, check_in, check_out, status, preco_diaria, payment_status, google_event_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		st.TenantID, st.ClientID, st.PetID, st.CheckIn, st.CheckOut, st.Status, st.PrecoDiaria, st.PaymentStatus, st.GoogleEventID,
	).Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert stay: %w", err)
	}
	return nil
}

func (s *PGStore) UpdateStay(ctx context.Context, st *models.HotelStay) error {
	return s.exec(ctx, "update stay",
		`UPDATE hotel_stays
		 SET check_in = $3, check_out = $4, status = $5, preco_diaria = $6, payment_status = $7,
		     google_event_id = $8, updated_at = now()
		 WHERE tenant_id = $1 AND id = $2`,
		st.TenantID, st.ID, st.CheckIn, st.CheckOut, st.Status, st.PrecoDiaria, st.PaymentStatus, st.GoogleEventID)
}

func (s *PGStore) DeleteStay(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.exec(ctx, "delete stay", `DELETE FROM hotel_stays WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

func (s *PGStore) InsertSale(ctx context.Context, sale *models.Sale) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO sales (tenant_id, client_id, total, forma_pagamento)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		sale.TenantID, sale.ClientID, sale.Total, sale.FormaPagamento,
	).Scan(&sale.ID, &sale.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}
