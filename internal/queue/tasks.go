package queue

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TypeCampaignRecalculate = "campaign:recalculate"
	TypeFiscalConsult       = "fiscal:consult"
)

type RecalculatePayload struct {
	TenantID string `json:"tenant_id"`
}

type FiscalConsultPayload struct {
	TenantID string `json:"tenant_id"`
	NotaID   string `json:"nota_id"`
	Attempt  int    `json:"attempt"`
}

func NewRecalculateTask(tenantID uuid.UUID) (*asynq.Task, error) {
	return newTask(TypeCampaignRecalculate, RecalculatePayload{TenantID: tenantID.String()})
}

func NewFiscalConsultTask(tenantID, notaID uuid.UUID, attempt int) (*asynq.Task, error) {
	return newTask(TypeFiscalConsult, FiscalConsultPayload{
		TenantID: tenantID.String(),
		NotaID:   notaID.String(),
		Attempt:  attempt,
	})
}

func newTask(taskType string, payload interface{}) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(taskType, data), nil
}

func ParseRecalculate(t *asynq.Task) (uuid.UUID, error) {
	var p RecalculatePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return uuid.Nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	id, err := uuid.Parse(p.TenantID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse tenant ID: %w", err)
	}
	return id, nil
}

func ParseFiscalConsult(t *asynq.Task) (tenantID, notaID uuid.UUID, attempt int, err error) {
	var p FiscalConsultPayload
	if err = json.Unmarshal(t.Payload(), &p); err != nil {
		return uuid.Nil, uuid.Nil, 0, fmt.Errorf("unmarshal payload: %w", err)
	}
	if tenantID, err = uuid.Parse(p.TenantID); err != nil {
		return uuid.Nil, uuid.Nil, 0, fmt.Errorf("parse tenant ID: %w", err)
	}
	if notaID, err = uuid.Parse(p.NotaID); err != nil {
		return uuid.Nil, uuid.Nil, 0, fmt.Errorf("parse nota ID: %w", err)
	}
	return tenantID, notaID, p.Attempt, nil
}
