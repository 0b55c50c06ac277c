package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "agendado"
	AppointmentInService AppointmentStatus = "em_atendimento"
	AppointmentFinished  AppointmentStatus = "finalizado"
	AppointmentCancelled AppointmentStatus = "cancelado"
)

type StayStatus string

const (
	StayReserved   StayStatus = "reservado"
	StayCheckedIn  StayStatus = "hospedado"
	StayCheckedOut StayStatus = "check_out_realizado"
	StayCancelled  StayStatus = "cancelado"
)

// KanbanStatus tracks where an appointment is in the grooming workflow,
// independently of its primary status.
type KanbanStatus string

const (
	KanbanWaiting  KanbanStatus = "aguardando"
	KanbanBath     KanbanStatus = "banho"
	KanbanGrooming KanbanStatus = "tosa"
	KanbanDrying   KanbanStatus = "secagem"
	KanbanReady    KanbanStatus = "pronto"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pendente"
	PaymentPaid    PaymentStatus = "pago"
)

type Appointment struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	TenantID      uuid.UUID         `json:"tenant_id" db:"tenant_id"`
	ClientID      uuid.UUID         `json:"client_id" db:"client_id"`
	PetID         uuid.UUID         `json:"pet_id" db:"pet_id"`
	Servico       string            `json:"servico" db:"servico"`
	DataHora      time.Time         `json:"data_hora" db:"data_hora"`
	Status        AppointmentStatus `json:"status" db:"status"`
	KanbanStatus  *KanbanStatus     `json:"kanban_status,omitempty" db:"kanban_status"`
	Preco         decimal.Decimal   `json:"preco" db:"preco"`
	PaymentStatus PaymentStatus     `json:"payment_status" db:"payment_status"`
	GoogleEventID *string           `json:"google_event_id,omitempty" db:"google_event_id"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}

type HotelStay struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	TenantID      uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	ClientID      uuid.UUID       `json:"client_id" db:"client_id"`
	PetID         uuid.UUID       `json:"pet_id" db:"pet_id"`
	CheckIn       time.Time       `json:"check_in" db:"check_in"`
	CheckOut      time.Time       `json:"check_out" db:"check_out"`
	Status        StayStatus      `json:"status" db:"status"`
	PrecoDiaria   decimal.Decimal `json:"preco_diaria" db:"preco_diaria"`
	PaymentStatus PaymentStatus   `json:"payment_status" db:"payment_status"`
	GoogleEventID *string         `json:"google_event_id,omitempty" db:"google_event_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

type Sale struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	TenantID       uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	ClientID       *uuid.UUID      `json:"client_id,omitempty" db:"client_id"`
	Total          decimal.Decimal `json:"total" db:"total"`
	FormaPagamento string          `json:"forma_pagamento" db:"forma_pagamento"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
