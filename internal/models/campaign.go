package models

import (
	"time"

	"github.com/google/uuid"
)

type CampaignStatus string

const (
	// CampaignSent means the workflow engine accepted the payload. Delivery
	// to each recipient is not tracked here.
	CampaignSent   CampaignStatus = "enviada"
	CampaignFailed CampaignStatus = "falhou"
)

type Campaign struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	TenantID        uuid.UUID      `json:"tenant_id" db:"tenant_id"`
	Nome            string         `json:"nome" db:"nome"`
	Mensagem        string         `json:"mensagem" db:"mensagem"`
	MediaType       *string        `json:"media_type,omitempty" db:"media_type"`
	MediaURL        *string        `json:"media_url,omitempty" db:"media_url"`
	Criterios       []string       `json:"criterios" db:"criterios"`
	DiasInatividade *int           `json:"dias_inatividade,omitempty" db:"dias_inatividade"`
	TotalClientes   int            `json:"total_clientes" db:"total_clientes"`
	Status          CampaignStatus `json:"status" db:"status"`
	Erro            *string        `json:"erro,omitempty" db:"erro"`
	CreatedBy       *uuid.UUID     `json:"created_by,omitempty" db:"created_by"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}
