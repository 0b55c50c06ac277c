package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/nikhilbhutani/petdesk/internal/queue"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

type Consulter interface {
	ConsultPending(ctx context.Context, tenantID, notaID uuid.UUID, attempt int) error
}

// FiscalConsultWorker polls the provider for an invoice still processando.
// The service schedules the next attempt itself, so a provider failure is
// retried by asynq only for the current attempt.
type FiscalConsultWorker struct {
	fiscal Consulter
}

func NewFiscalConsultWorker(fiscal Consulter) *FiscalConsultWorker {
	return &FiscalConsultWorker{fiscal: fiscal}
}

func (w *FiscalConsultWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	tenantID, notaID, attempt, err := queue.ParseFiscalConsult(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	err = w.fiscal.ConsultPending(ctx, tenantID, notaID, attempt)
	if errors.Is(err, tenant.ErrNotFound) {
		slog.Warn("invoice vanished before consult", "tenant_id", tenantID, "nota_id", notaID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("consult invoice %s: %w", notaID, err)
	}
	return nil
}
