package segmentation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/audit"
	"github.com/nikhilbhutani/petdesk/internal/metrics"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

var ErrNotTenantAdmin = errors.New("tenant admin role required")

// SettingsInvalidator drops cached tenant settings after the threshold
// changes.
type SettingsInvalidator interface {
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

type Summary struct {
	Threshold int            `json:"dias_inatividade"`
	Total     int            `json:"total"`
	Updated   int            `json:"updated"`
	Counts    map[Bucket]int `json:"counts"`
}

type Engine struct {
	store    Store
	loc      *time.Location
	now      func() time.Time
	settings SettingsInvalidator
	audit    audit.Logger
	metrics  *metrics.Metrics
}

type Option func(*Engine)

func WithSettingsInvalidator(si SettingsInvalidator) Option {
	return func(e *Engine) { e.settings = si }
}

func WithAudit(l audit.Logger) Option {
	return func(e *Engine) { e.audit = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine builds an engine that counts calendar days in loc. A nil loc
// means UTC.
func NewEngine(store Store, loc *time.Location, opts ...Option) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	e := &Engine{store: store, loc: loc, now: time.Now, audit: audit.Nop{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Location() *time.Location {
	return e.loc
}

func (e *Engine) Classify(lastPurchase *time.Time, threshold int) Bucket {
	return Classify(lastPurchase, threshold, e.now(), e.loc)
}

// Recalculate reclassifies every client of the tenant against the stored
// threshold. Clients marked primeira_compra keep that bucket, and a client
// whose row changed after it was read keeps whatever the change wrote.
func (e *Engine) Recalculate(ctx context.Context, tenantID uuid.UUID, trigger string) (*Summary, error) {
	threshold, err := e.store.Threshold(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	clients, err := e.store.Clients(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	sum := &Summary{Threshold: threshold, Total: len(clients), Counts: map[Bucket]int{}}
	var updates []BucketUpdate
	for _, c := range clients {
		if c.Bucket != nil && *c.Bucket == FirstPurchase {
			sum.Counts[FirstPurchase]++
			continue
		}
		b := Classify(c.LastPurchase, threshold, now, e.loc)
		sum.Counts[b]++
		if c.Bucket == nil || *c.Bucket != b {
			updates = append(updates, BucketUpdate{ClientID: c.ID, Bucket: b, From: c.Bucket, SeenPurchase: c.LastPurchase})
		}
	}

	updated, err := e.store.UpdateBuckets(ctx, tenantID, updates)
	if err != nil {
		return nil, err
	}
	sum.Updated = updated
	if skipped := len(updates) - updated; skipped > 0 {
		slog.Info("client segments changed during recalculation", "tenant_id", tenantID, "skipped", skipped)
	}

	e.metrics.Recalculation(trigger)
	slog.Info("client segments recalculated",
		"tenant_id", tenantID, "threshold", threshold, "total", sum.Total, "updated", sum.Updated, "trigger", trigger)
	return sum, nil
}

// UpdateThreshold validates and stores a new threshold, then recalculates.
// An out-of-range value never reaches the store.
func (e *Engine) UpdateThreshold(ctx context.Context, sess *tenant.Session, days int) (*Summary, error) {
	if err := ValidateThreshold(days); err != nil {
		return nil, err
	}
	if !sess.IsTenantAdmin() {
		return nil, ErrNotTenantAdmin
	}
	tenantID := sess.TenantID()

	if err := e.store.SaveThreshold(ctx, tenantID, days); err != nil {
		return nil, err
	}
	if e.settings != nil {
		e.settings.Invalidate(ctx, tenantID)
	}
	if err := e.audit.Log(ctx, audit.LogEntry{
		Action:       audit.ActionThresholdChanged,
		ResourceType: "tenant_settings",
		Details:      map[string]interface{}{"dias_inatividade": days},
	}); err != nil {
		slog.Warn("audit log failed", "action", audit.ActionThresholdChanged, "error", err)
	}

	return e.Recalculate(ctx, tenantID, "threshold")
}

// RecordPurchase stamps a purchase on a client. The first purchase ever
// marks primeira_compra; later ones mark ativo.
func (e *Engine) RecordPurchase(ctx context.Context, tenantID, clientID uuid.UUID, at time.Time) (Bucket, error) {
	c, err := e.store.Client(ctx, tenantID, clientID)
	if err != nil {
		return "", err
	}

	b := Active
	if c.LastPurchase == nil {
		b = FirstPurchase
	}
	if c.LastPurchase != nil && c.LastPurchase.After(at) {
		at = *c.LastPurchase
	}

	if err := e.store.SetPurchase(ctx, tenantID, clientID, at, b); err != nil {
		return "", err
	}
	return b, nil
}

// Segments reports how many clients sit in each stored bucket.
func (e *Engine) Segments(ctx context.Context, tenantID uuid.UUID) (map[Bucket]int, error) {
	counts, err := e.store.Counts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, b := range []Bucket{NeverPurchased, FirstPurchase, Active, Inactive} {
		if _, ok := counts[b]; !ok {
			counts[b] = 0
		}
	}
	return counts, nil
}

func (e *Engine) Threshold(ctx context.Context, tenantID uuid.UUID) (int, error) {
	return e.store.Threshold(ctx, tenantID)
}
