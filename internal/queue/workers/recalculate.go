package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/nikhilbhutani/petdesk/internal/queue"
	"github.com/nikhilbhutani/petdesk/internal/segmentation"
)

type Recalculator interface {
	Recalculate(ctx context.Context, tenantID uuid.UUID, trigger string) (*segmentation.Summary, error)
}

// RecalculateWorker reclassifies every client of a tenant.
type RecalculateWorker struct {
	engine Recalculator
}

func NewRecalculateWorker(engine Recalculator) *RecalculateWorker {
	return &RecalculateWorker{engine: engine}
}

func (w *RecalculateWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	tenantID, err := queue.ParseRecalculate(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	slog.Info("recalculating client segments", "tenant_id", tenantID)

	sum, err := w.engine.Recalculate(ctx, tenantID, "worker")
	if err != nil {
		return fmt.Errorf("recalculate tenant %s: %w", tenantID, err)
	}

	slog.Info("client segments recalculated",
		"tenant_id", tenantID,
		"total", sum.Total,
		"updated", sum.Updated,
	)
	return nil
}
