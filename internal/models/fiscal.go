package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type NotaTipo string

const (
	NotaNFCe NotaTipo = "nfce"
	NotaNFe  NotaTipo = "nfe"
)

type NotaStatus string

const (
	NotaProcessando NotaStatus = "processando"
	NotaAutorizada  NotaStatus = "autorizada"
	NotaRejeitada   NotaStatus = "rejeitada"
	NotaCancelada   NotaStatus = "cancelada"
)

type NotaFiscal struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	TenantID   uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	SaleID     uuid.UUID       `json:"sale_id" db:"sale_id"`
	Tipo       NotaTipo        `json:"tipo" db:"tipo"`
	Numero     int64           `json:"numero" db:"numero"`
	Serie      int             `json:"serie" db:"serie"`
	Referencia string          `json:"referencia" db:"referencia"`
	Status     NotaStatus      `json:"status" db:"status"`
	Chave      *string         `json:"chave,omitempty" db:"chave"`
	Protocolo  *string         `json:"protocolo,omitempty" db:"protocolo"`
	XMLURL     *string         `json:"xml_url,omitempty" db:"xml_url"`
	PDFURL     *string         `json:"pdf_url,omitempty" db:"pdf_url"`
	XMLCancURL *string         `json:"xml_cancelamento_url,omitempty" db:"xml_cancelamento_url"`
	ErroSefaz  *string         `json:"erro_sefaz,omitempty" db:"erro_sefaz"`
	ValorTotal decimal.Decimal `json:"valor_total" db:"valor_total"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

type FiscalEnvironment string

const (
	FiscalHomologacao FiscalEnvironment = "homologacao"
	FiscalProducao    FiscalEnvironment = "producao"
)

type FiscalConfig struct {
	TenantID          uuid.UUID         `json:"tenant_id" db:"tenant_id"`
	CNPJ              string            `json:"cnpj" db:"cnpj"`
	InscricaoEstadual string            `json:"inscricao_estadual" db:"inscricao_estadual"`
	RegimeTributario  int               `json:"regime_tributario" db:"regime_tributario"`
	CSCID             string            `json:"csc_id" db:"csc_id"`
	CSCToken          string            `json:"-" db:"csc_token"`
	SerieNFCe         int               `json:"serie_nfce" db:"serie_nfce"`
	ProximoNumero     int64             `json:"proximo_numero_nfce" db:"proximo_numero_nfce"`
	Ambiente          FiscalEnvironment `json:"ambiente" db:"ambiente"`
}
