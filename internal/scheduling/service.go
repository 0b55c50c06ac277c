package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/realtime"
	"github.com/nikhilbhutani/petdesk/internal/segmentation"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
	"github.com/nikhilbhutani/petdesk/pkg/phone"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = tenant.ErrNotFound
	ErrInvalidTransition = errors.New("status change not allowed")
	ErrInvalidPhone      = errors.New("whatsapp number is not valid")
	ErrInvalidWindow     = errors.New("check_out must be after check_in")
	ErrPetNotOwned       = errors.New("pet does not belong to this client")
	ErrInvalidKanban     = errors.New("unknown kanban status")
	ErrInvalidPayment    = errors.New("unknown payment status")
	ErrEmptySale         = errors.New("sale total must be positive")
	ErrTerminal          = errors.New("record is already finished or cancelled")
)

// Notifier receives a coarse change event after every successful write.
type Notifier interface {
	Notify(ctx context.Context, tenantID uuid.UUID, table string, typ realtime.EventType, id uuid.UUID)
}

type PurchaseRecorder interface {
	RecordPurchase(ctx context.Context, tenantID, clientID uuid.UUID, at time.Time) (segmentation.Bucket, error)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, uuid.UUID, string, realtime.EventType, uuid.UUID) {}

type Service struct {
	store     Store
	notifier  Notifier
	purchases PurchaseRecorder
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithPurchaseRecorder(p PurchaseRecorder) Option {
	return func(s *Service) { s.purchases = p }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, notifier: nopNotifier{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clients

type ClientInput struct {
	Nome     string  `json:"nome" validate:"required,max=120"`
	WhatsApp string  `json:"whatsapp" validate:"required"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

func (s *Service) ListClients(ctx context.Context, tenantID uuid.UUID, search string) ([]models.Client, error) {
	return s.store.ListClients(ctx, tenantID, strings.TrimSpace(search))
}

func (s *Service) GetClient(ctx context.Context, tenantID, id uuid.UUID) (*models.Client, error) {
	return s.store.GetClient(ctx, tenantID, id)
}

// CreateClient stores a new client as nunca_comprou.
func (s *Service) CreateClient(ctx context.Context, tenantID uuid.UUID, in ClientInput) (*models.Client, error) {
	number := phone.Normalize(in.WhatsApp)
	if number == "" {
		return nil, ErrInvalidPhone
	}
	bucket := segmentation.NeverPurchased
	c := &models.Client{
		TenantID:     tenantID,
		Nome:         strings.TrimSpace(in.Nome),
		WhatsApp:     number,
		Email:        in.Email,
		TipoCampanha: &bucket,
	}
	if err := s.store.InsertClient(ctx, c); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, tenantID, realtime.TableClients, realtime.Insert, c.ID)
	return c, nil
}

func (s *Service) UpdateClient(ctx context.Context, tenantID, id uuid.UUID, in ClientInput) (*models.Client, error) {
	number := phone.Normalize(in.WhatsApp)
	if number == "" {
		return nil, ErrInvalidPhone
	}
	c, err := s.store.GetClient(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	c.Nome = strings.TrimSpace(in.Nome)
	c.WhatsApp = number
	c.Email = in.Email
	if err := s.store.UpdateClient(ctx, c); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, tenantID, realtime.TableClients, realtime.Update, c.ID)
	return c, nil
}

func (s *Service) DeleteClient(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.store.DeleteClient(ctx, tenantID, id); err != nil {
		return err
	}
	s.notifier.Notify(ctx, tenantID, realtime.TableClients, realtime.Delete, id)
	return nil
}

// Pets

type PetInput struct {
	ClientID uuid.UUID        `json:"client_id" validate:"required"`
	Nome     string           `json:"nome" validate:"required,max=80"`
	Especie  string           `json:"especie" validate:"omitempty,max=40"`
	Raca     string           `json:"raca" validate:"omitempty,max=80"`
	Porte    string           `json:"porte" validate:"omitempty,oneof=pequeno medio grande gigante"`
	Pelagem  string           `json:"pelagem" validate:"omitempty,max=40"`
	Peso     *decimal.Decimal `json:"peso"`
}

func (s *Service) ListPets(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID) ([]models.Pet, error) {
	return s.store.ListPets(ctx, tenantID, clientID)
}

func (s *Service) GetPet(ctx context.Context, tenantID, id uuid.UUID) (*models.Pet, error) {
	return s.store.GetPet(ctx, tenantID, id)
}

func (s *Service) CreatePet(ctx context.Context, tenantID uuid.UUID, in PetInput) (*models.Pet, error) {
	if _, err := s.store.GetClient(ctx, tenantID, in.ClientID); err != nil {
		return nil, err
	}
	p := &models.Pet{TenantID: tenantID, ClientID: in.ClientID}
	applyPet(p, in)
	if err := s.store.InsertPet(ctx, p); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, tenantID, realtime.TablePets, realtime.Insert, p.ID)
	return p, nil
}

func (s *Service) UpdatePet(ctx context.Context, tenantID, id uuid.UUID, in PetInput) (*models.Pet, error) {
	p, err := s.store.GetPet(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	applyPet(p, in)
	if err := s.store.UpdatePet(ctx, p); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, tenantID, realtime.TablePets, realtime.Update, p.ID)
	return p, nil
}

func applyPet(p *models.Pet, in PetInput) {
	p.Nome = strings.TrimSpace(in.Nome)
	p.Especie = in.Especie
	if p.Especie == "" {
		p.Especie = "cachorro"
	}
	p.Raca = in.Raca
	p.Porte = in.Porte
	p.Pelagem = in.Pelagem
	p.Peso = in.Peso
}

func (s *Service) DeletePet(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.store.DeletePet(ctx, tenantID, id); err != nil {
		return err
	}
	s.notifier.Notify(ctx, tenantID, realtime.TablePets, realtime.Delete, id)
	return nil
}

// FindPetByName matches a pet name case-insensitively. When several pets
// share the name the oldest one wins.
func (s *Service) FindPetByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Pet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}
	pets, err := s.store.PetsByName(ctx, tenantID, name)
	if err != nil {
		return nil, err
	}
	if len(pets) == 0 {
		return nil, ErrNotFound
	}
	return &pets[0], nil
}

// checkOwnership loads the pet and confirms it belongs to clientID.
func (s *Service) checkOwnership(ctx context.Context, tenantID, clientID, petID uuid.UUID) error {
	pet, err := s.store.GetPet(ctx, tenantID, petID)
	if err != nil {
		return err
	}
	if pet.ClientID != clientID {
		return ErrPetNotOwned
	}
	return nil
}

// Appointments

type AppointmentInput struct {
	ClientID      uuid.UUID       `json:"client_id" validate:"required"`
	PetID         uuid.UUID       `json:"pet_id" validate:"required"`
	Servico       string          `json:"servico" validate:"required,max=120"`
	DataHora      time.Time       `json:"data_hora" validate:"required"`
	Preco         decimal.Decimal `json:"preco"`
	GoogleEventID *string         `json:"google_event_id,omitempty"`
}

// AppointmentPatch changes an appointment's details. Nil fields are kept.
type AppointmentPatch struct {
	Servico       *string               `json:"servico" validate:"omitempty,max=120"`
	DataHora      *time.Time            `json:"data_hora"`
	Preco         *decimal.Decimal      `json:"preco"`
	PaymentStatus *models.PaymentStatus `json:"payment_status"`
	GoogleEventID *string               `json:"google_event_id"`
}

func (s *Service) ListAppointments(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.Appointment, error) {
	return s.store.ListAppointments(ctx, tenantID, from, to)
}

func (s *Service) GetAppointment(ctx context.Context, tenantID, id uuid.UUID) (*models.Appointment, error) {
	return s.store.GetAppointment(ctx, tenantID, id)
}

func (s *Service) AppointmentByEvent(ctx context.Context, tenantID uuid.UUID, eventID string) (*models.Appointment, error) {
	return s.store.AppointmentByEvent(ctx, tenantID, eventID)
}

func (s *Service) CreateAppointment(ctx context.Context, tenantID uuid.UUID, in AppointmentInput) (*models.Appointment, error) {
	if err := s.checkOwnership(ctx, tenantID, in.ClientID, in.PetID); err != nil {
		return nil, err
	}
	waiting := models.KanbanWaiting
	a := &models.Appointment{
		TenantID:      tenantID,
		ClientID:      in.ClientID,
		PetID:         in.PetID,
		Servico:       strings.TrimSpace(in.Servico),
		DataHora:      in.DataHora,
		Status:        models.AppointmentScheduled,
		KanbanStatus:  &waiting,
		Preco:         in.Preco,
		PaymentStatus: models.PaymentPending,
		GoogleEventID: in.GoogleEventID,
	}
	if err := s.store.InsertAppointment(ctx, a); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, tenantID, realtime.TableAppointments, realtime.Insert, a.ID)
	return a, nil
}

func (s *Service) UpdateAppointment(ctx context.Context, tenantID, id uuid.UUID, p AppointmentPatch) (*models.Appointment, error) {
	if p.PaymentStatus != nil && !validPayment(*p.PaymentStatus) {
		return nil, ErrInvalidPayment
	}
	a, err := s.store.GetAppointment(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if p.Servico != nil {
		a.Servico = strings.TrimSpace(*p.Servico)
	}
	if p.DataHora != nil {
		a.DataHora = *p.DataHora
	}
	if p.Preco != nil {
		a.Preco = *p.Preco
	}
	if p.PaymentStatus != nil {
		a.PaymentStatus = *p.PaymentStatus
	}
	if p.GoogleEventID != nil {
		a.GoogleEventID = p.GoogleEventID
	}
	return a, s.saveAppointment(ctx, a)
}

// SetAppointmentStatus moves an appointment along its state machine.
// Cancelling is allowed from any state that is not terminal.
func (s *Service) SetAppointmentStatus(ctx context.Context, tenantID, id uuid.UUID, to models.AppointmentStatus) (*models.Appointment, error) {
	a, err := s.store.GetAppointment(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !CanMoveAppointment(a.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}
	a.Status = to
	if to == models.AppointmentFinished {
		ready := models.KanbanReady
		a.KanbanStatus = &ready
	}
	return a, s.saveAppointment(ctx, a)
}

// SetKanban moves the card on the grooming board. It does not touch the
// appointment status.
func (s *Service) SetKanban(ctx context.Context, tenantID, id uuid.UUID, k models.KanbanStatus) (*models.Appointment, error) {
	if !validKanban(k) {
		return nil, ErrInvalidKanban
	}
	a, err := s.store.GetAppointment(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if a.Status == models.AppointmentCancelled {
		return nil, ErrTerminal
	}
	a.KanbanStatus = &k
	return a, s.saveAppointment(ctx, a)
}

func (s *Service) saveAppointment(ctx context.Context, a *models.Appointment) error {
	if err := s.store.UpdateAppointment(ctx, a); err != nil {
		return err
	}
	s.notifier.Notify(ctx, a.TenantID, realtime.TableAppointments, realtime.Update, a.ID)
	return nil
}

func (s *Service) DeleteAppointment(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.store.DeleteAppointment(ctx, tenantID, id); err != nil {
		return err
	}
	s.notifier.Notify(ctx, tenantID, realtime.TableAppointments, realtime.Delete, id)
	return nil
}

// Hotel stays

type StayInput struct {
	ClientID      uuid.UUID       `json:"client_id" validate:"required"`
	PetID         uuid.UUID       `json:"pet_id" validate:"required"`
	CheckIn       time.Time       `json:"check_in" validate:"required"`
	CheckOut      time.Time       `json:"check_out" validate:"required"`
	PrecoDiaria   decimal.Decimal `json:"preco_diaria"`
	GoogleEventID *string         `json:"google_event_id,omitempty"`
}

type StayPatch struct {
	CheckIn       *time.Time            `json:"check_in"`
	CheckOut      *time.Time            `json:"check_out"`
	PrecoDiaria   *decimal.Decimal      `json:"preco_diaria"`
	PaymentStatus *models.PaymentStatus `json:"payment_status"`
	GoogleEventID *string               `json:"google_event_id"`
}

func (s *Service) ListStays(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.HotelStay, error) {
	return s.store.ListStays(ctx, tenantID, from, to)
}

func (s *Service) GetStay(ctx context.Context, tenantID, id uuid.UUID) (*models.HotelStay, error) {
	return s.store.GetStay(ctx, tenantID, id)
}

func (s *Service) StayByEvent(ctx context.Context, tenantID uuid.UUID, eventID string) (*models.HotelStay, error) {
	return s.store.StayByEvent(ctx, tenantID, eventID)
}

func (s *Service) CreateStay(ctx context.Context, tenantID uuid.UUID, in StayInput) (*models.HotelStay, error) {
	if !in.CheckOut.After(in.CheckIn) {
		return nil, ErrInvalidWindow
	}
	if err := s.checkOwnership(ctx, tenantID, in.ClientID, in.PetID); err != nil {
		return nil, err
	}
	st := &models.HotelStay{
		TenantID:      tenantID,
		ClientID:      in.ClientID,
		PetID:         in.PetID,
		CheckIn:       in.CheckIn,
		CheckOut:      in.CheckOut,
		Status:        models.StayReserved,
		PrecoDiaria:   in.PrecoDiaria,
		PaymentStatus: models.PaymentPending,
		GoogleEventID: in.GoogleEventID,
	}
	if err := s.store.InsertStay(ctx, st); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, tenantID, realtime.TableHotelStays, realtime.Insert, st.ID)
	return st, nil
}

func (s *Service) UpdateStay(ctx context.Context, tenantID, id uuid.UUID, p StayPatch) (*models.HotelStay, error) {
	if p.PaymentStatus != nil && !validPayment(*p.PaymentStatus) {
		return nil, ErrInvalidPayment
	}
	st, err := s.store.GetStay(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if p.CheckIn != nil {
		st.CheckIn = *p.CheckIn
	}
	if p.CheckOut != nil {
		st.CheckOut = *p.CheckOut
	}
	if !st.CheckOut.After(st.CheckIn) {
		return nil, ErrInvalidWindow
	}
	if p.PrecoDiaria != nil {
		st.PrecoDiaria = *p.PrecoDiaria
	}
	if p.PaymentStatus != nil {
		st.PaymentStatus = *p.PaymentStatus
	}
	if p.GoogleEventID != nil {
		st.GoogleEventID = p.GoogleEventID
	}
	return st, s.saveStay(ctx, st)
}

func (s *Service) SetStayStatus(ctx context.Context, tenantID, id uuid.UUID, to models.StayStatus) (*models.HotelStay, error) {
	st, err := s.store.GetStay(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !CanMoveStay(st.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, st.Status, to)
	}
	st.Status = to
	return st, s.saveStay(ctx, st)
}

func (s *Service) saveStay(ctx context.Context, st *models.HotelStay) error {
	if err := s.store.UpdateStay(ctx, st); err != nil {
		return err
	}
	s.notifier.Notify(ctx, st.TenantID, realtime.TableHotelStays, realtime.Update, st.ID)
	return nil
}

func (s *Service) DeleteStay(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.store.DeleteStay(ctx, tenantID, id); err != nil {
		return err
	}
	s.notifier.Notify(ctx, tenantID, realtime.TableHotelStays, realtime.Delete, id)
	return nil
}

// Sales

type SaleInput struct {
	ClientID       *uuid.UUID      `json:"client_id"`
	Total          decimal.Decimal `json:"total"`
	FormaPagamento string          `json:"forma_pagamento" validate:"required,oneof=dinheiro credito debito pix"`
}

// RegisterSale records a sale. A sale tied to a client also updates the
// client's last purchase and campaign bucket.
func (s *Service) RegisterSale(ctx context.Context, tenantID uuid.UUID, in SaleInput) (*models.Sale, error) {
	if !in.Total.IsPositive() {
		return nil, ErrEmptySale
	}
	if in.ClientID != nil {
		if _, err := s.store.GetClient(ctx, tenantID, *in.ClientID); err != nil {
			return nil, err
		}
	}

	sale := &models.Sale{
		TenantID:       tenantID,
		ClientID:       in.ClientID,
		Total:          in.Total.Round(2),
		FormaPagamento: in.FormaPagamento,
	}
	if err := s.store.InsertSale(ctx, sale); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, tenantID, realtime.TableSales, realtime.Insert, sale.ID)

	if sale.ClientID != nil && s.purchases != nil {
		bucket, err := s.purchases.RecordPurchase(ctx, tenantID, *sale.ClientID, sale.CreatedAt)
		if err != nil {
			// The sale stands. Recalculation never reads sales, so last_purchase
			// stays behind until the client's next recorded purchase.
			slog.Error("record purchase failed", "tenant_id", tenantID, "client_id", *sale.ClientID, "error", err)
		} else {
			slog.Debug("client purchase recorded", "client_id", *sale.ClientID, "bucket", bucket)
			s.notifier.Notify(ctx, tenantID, realtime.TableClients, realtime.Update, *sale.ClientID)
		}
	}
	return sale, nil
}
