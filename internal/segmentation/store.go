package segmentation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

// ClientSegment is the slice of a client row segmentation works on.
type ClientSegment struct {
	ID           uuid.UUID
	LastPurchase *time.Time
	Bucket       *Bucket
}

// BucketUpdate moves a client to Bucket only while its row still holds
// From and SeenPurchase, the values the new bucket was derived from.
type BucketUpdate struct {
	ClientID     uuid.UUID
	Bucket       Bucket
	From         *Bucket
	SeenPurchase *time.Time
}

type Store interface {
	Threshold(ctx context.Context, tenantID uuid.UUID) (int, error)
	SaveThreshold(ctx context.Context, tenantID uuid.UUID, days int) error
	Clients(ctx context.Context, tenantID uuid.UUID) ([]ClientSegment, error)
	Client(ctx context.Context, tenantID, clientID uuid.UUID) (*ClientSegment, error)
	// UpdateBuckets applies the updates whose guard still holds and returns
	// how many rows changed.
	UpdateBuckets(ctx context.Context, tenantID uuid.UUID, updates []BucketUpdate) (int, error)
	SetPurchase(ctx context.Context, tenantID, clientID uuid.UUID, at time.Time, bucket Bucket) error
	Counts(ctx context.Context, tenantID uuid.UUID) (map[Bucket]int, error)
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Threshold(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var days int
	err := s.db.QueryRow(ctx,
		"SELECT dias_inatividade FROM tenant_settings WHERE tenant_id = $1", tenantID,
	).Scan(&days)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultThreshold, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load threshold: %w", err)
	}
	return days, nil
}

func (s *PGStore) SaveThreshold(ctx context.Context, tenantID uuid.UUID, days int) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE tenant_settings SET dias_inatividade = $1, updated_at = now() WHERE tenant_id = $2",
		days, tenantID,
	)
	if err != nil {
		return fmt.Errorf("save threshold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

func (s *PGStore) Clients(ctx context.Context, tenantID uuid.UUID) ([]ClientSegment, error) {
	rows, err := s.db.Query(ctx,
		"SELECT id, last_purchase, tipo_campanha FROM clients WHERE tenant_id = $1", tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list client segments: %w", err)
	}
	defer rows.Close()

	var out []ClientSegment
	for rows.Next() {
		var c ClientSegment
		if err := rows.Scan(&c.ID, &c.LastPurchase, &c.Bucket); err != nil {
			return nil, fmt.Errorf("scan client segment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) Client(ctx context.Context, tenantID, clientID uuid.UUID) (*ClientSegment, error) {
	var c ClientSegment
	err := s.db.QueryRow(ctx,
		"SELECT id, last_purchase, tipo_campanha FROM clients WHERE id = $1 AND tenant_id = $2",
		clientID, tenantID,
	).Scan(&c.ID, &c.LastPurchase, &c.Bucket)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tenant.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client segment: %w", err)
	}
	return &c, nil
}

// UpdateBuckets writes all changed buckets in one round trip. A row touched
// since it was read, typically by a purchase, is left alone.
func (s *PGStore) UpdateBuckets(ctx context.Context, tenantID uuid.UUID, updates []BucketUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(
			`UPDATE clients SET tipo_campanha = $1, updated_at = now()
			 WHERE id = $2 AND tenant_id = $3
			   AND tipo_campanha IS NOT DISTINCT FROM $4::text
			   AND last_purchase IS NOT DISTINCT FROM $5::timestamptz`,
			u.Bucket, u.ClientID, tenantID, u.From, u.SeenPurchase,
		)
	}
	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	changed := 0
	for range updates {
		tag, err := br.Exec()
		if err != nil {
			return changed, fmt.Errorf("update client buckets: %w", err)
		}
		changed += int(tag.RowsAffected())
	}
	return changed, nil
}

func (s *PGStore) SetPurchase(ctx context.Context, tenantID, clientID uuid.UUID, at time.Time, bucket Bucket) error {
	_, err := s.db.Exec(ctx,
		`UPDATE clients SET last_purchase = $1, tipo_campanha = $2, updated_at = now()
		 WHERE id = $3 AND tenant_id = $4`,
		at, bucket, clientID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}
	return nil
}

func (s *PGStore) Counts(ctx context.Context, tenantID uuid.UUID) (map[Bucket]int, error) {
	rows, err := s.db.Query(ctx,
		`SELECT COALESCE(tipo_campanha, 'nunca_comprou'), COUNT(*)
		 FROM clients WHERE tenant_id = $1 GROUP BY 1`, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("count segments: %w", err)
	}
	defer rows.Close()

	counts := map[Bucket]int{}
	for rows.Next() {
		var b Bucket
		var n int
		if err := rows.Scan(&b, &n); err != nil {
			return nil, fmt.Errorf("scan segment count: %w", err)
		}
		counts[b] += n
	}
	return counts, rows.Err()
}

var _ Store = (*PGStore)(nil)
