// Package realtime fans row-change notifications out to browsers. Events
// carry no row data; subscribers refetch whatever list they display.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/metrics"
	"github.com/redis/go-redis/v9"
)

type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
)

const (
	TableClients      = "clients"
	TablePets         = "pets"
	TableAppointments = "appointments"
	TableHotelStays   = "hotel_stays"
	TableSales        = "sales"
	TableNotas        = "notas_fiscais"
	TableCampaigns    = "campaigns"
)

var tables = []string{TableClients, TablePets, TableAppointments, TableHotelStays, TableSales, TableNotas, TableCampaigns}

var ErrUnknownTable = errors.New("unknown realtime table")

type Event struct {
	Table string    `json:"table"`
	Type  EventType `json:"type"`
	ID    uuid.UUID `json:"id"`
	At    time.Time `json:"at"`
}

func Channel(tenantID uuid.UUID, table string) string {
	return "realtime:" + tenantID.String() + ":" + table
}

// ParseTables reads a comma separated table list. Empty input selects every
// table.
func ParseTables(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), tables...), nil
	}
	var out []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !known(t) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTable, t)
		}
		out = append(out, t)
	}
	return out, nil
}

func known(table string) bool {
	for _, t := range tables {
		if t == table {
			return true
		}
	}
	return false
}

type Hub struct {
	rdb     *redis.Client
	metrics *metrics.Metrics
	buffer  int
	now     func() time.Time
}

func NewHub(rdb *redis.Client, m *metrics.Metrics) *Hub {
	return &Hub{rdb: rdb, metrics: m, buffer: 64, now: time.Now}
}

func (h *Hub) Publish(ctx context.Context, tenantID uuid.UUID, table string, typ EventType, id uuid.UUID) error {
	data, err := json.Marshal(Event{Table: table, Type: typ, ID: id, At: h.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal realtime event: %w", err)
	}
	if err := h.rdb.Publish(ctx, Channel(tenantID, table), data).Err(); err != nil {
		return fmt.Errorf("publish realtime event: %w", err)
	}
	return nil
}

// Notify is Publish for callers that must not fail because of a
// notification.
func (h *Hub) Notify(ctx context.Context, tenantID uuid.UUID, table string, typ EventType, id uuid.UUID) {
	if h == nil {
		return
	}
	if err := h.Publish(ctx, tenantID, table, typ, id); err != nil {
		slog.Warn("realtime notify failed", "tenant_id", tenantID, "table", table, "error", err)
	}
}

// Subscribe returns once Redis has confirmed the subscription. The channel
// is closed when ctx ends. Slow readers lose events rather than block the
// reader goroutine.
func (h *Hub) Subscribe(ctx context.Context, tenantID uuid.UUID, tables []string) (<-chan Event, error) {
	channels := make([]string, len(tables))
	for i, t := range tables {
		channels[i] = Channel(tenantID, t)
	}

	ps := h.rdb.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe realtime: %w", err)
	}

	out := make(chan Event, h.buffer)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					slog.Warn("bad realtime payload", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- ev:
				default:
					slog.Warn("realtime subscriber is slow, dropping event", "tenant_id", tenantID, "table", ev.Table)
				}
			}
		}
	}()
	return out, nil
}
