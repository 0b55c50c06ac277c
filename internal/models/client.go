package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CampaignType is the marketing segment stored in clients.tipo_campanha.
type CampaignType string

const (
	CampaignNeverPurchased CampaignType = "nunca_comprou"
	CampaignFirstPurchase  CampaignType = "primeira_compra"
	CampaignActive         CampaignType = "ativo"
	CampaignInactive       CampaignType = "inativo"
)

type Client struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	TenantID     uuid.UUID     `json:"tenant_id" db:"tenant_id"`
	Nome         string        `json:"nome" db:"nome"`
	WhatsApp     string        `json:"whatsapp" db:"whatsapp"`
	Email        *string       `json:"email,omitempty" db:"email"`
	LastPurchase *time.Time    `json:"last_purchase,omitempty" db:"last_purchase"`
	TipoCampanha *CampaignType `json:"tipo_campanha,omitempty" db:"tipo_campanha"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

type Pet struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	TenantID  uuid.UUID        `json:"tenant_id" db:"tenant_id"`
	ClientID  uuid.UUID        `json:"client_id" db:"client_id"`
	Nome      string           `json:"nome" db:"nome"`
	Especie   string           `json:"especie" db:"especie"`
	Raca      string           `json:"raca,omitempty" db:"raca"`
	Porte     string           `json:"porte,omitempty" db:"porte"`
	Pelagem   string           `json:"pelagem,omitempty" db:"pelagem"`
	Peso      *decimal.Decimal `json:"peso,omitempty" db:"peso"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
