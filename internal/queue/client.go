package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/nikhilbhutani/petdesk/internal/config"
)

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(RedisOpt(cfg)),
	}
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueRecalculate queues a segment recalculation. Duplicate requests for
// the same tenant within a minute collapse into one task.
func (c *Client) EnqueueRecalculate(ctx context.Context, tenantID uuid.UUID) error {
	task, err := NewRecalculateTask(tenantID)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Unique(time.Minute),
	)
}

// ScheduleConsult polls the fiscal provider for a note after delay.
func (c *Client) ScheduleConsult(ctx context.Context, tenantID, notaID uuid.UUID, attempt int, delay time.Duration) error {
	task, err := NewFiscalConsultTask(tenantID, notaID, attempt)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task,
		asynq.ProcessIn(delay),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
		asynq.Queue("critical"),
	)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return nil
}
