package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

const (
	ActionPlanChanged        = "tenant.plan_changed"
	ActionModuleToggled      = "tenant.module_toggled"
	ActionInviteCreated      = "invite.created"
	ActionInviteRevoked      = "invite.revoked"
	ActionMemberUpdated      = "member.updated"
	ActionThresholdChanged   = "segmentation.threshold_changed"
	ActionCampaignDispatched = "campaign.dispatched"
	ActionNotaEmitted        = "nota_fiscal.emitted"
	ActionNotaCancelled      = "nota_fiscal.cancelled"
	ActionCalendarConnected  = "calendar.connected"
)

// Logger records admin actions. Services depend on this rather than on the
// Postgres-backed Service so tests can pass Nop.
type Logger interface {
	Log(ctx context.Context, entry LogEntry) error
}

type Nop struct{}

func (Nop) Log(context.Context, LogEntry) error { return nil }

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type LogEntry struct {
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	Details      map[string]interface{}
	IPAddress    string
}

// Log writes an entry attributed to the session in ctx. Entries without a
// tenant are dropped.
func (s *Service) Log(ctx context.Context, entry LogEntry) error {
	sess := tenant.FromContext(ctx)
	tenantID := sess.TenantID()
	if tenantID == uuid.Nil {
		slog.Debug("audit entry without tenant skipped", "action", entry.Action)
		return nil
	}

	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	var ip *netip.Addr
	if entry.IPAddress != "" {
		parsed, err := netip.ParseAddr(entry.IPAddress)
		if err == nil {
			ip = &parsed
		}
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO audit_logs (tenant_id, user_id, action, resource_type, resource_id, details, ip_address)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tenantID, tenant.UserIDFromContext(ctx), entry.Action, entry.ResourceType, entry.ResourceID, details, ip,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	return nil
}

type AuditQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	Action    string
	Limit     int
	Offset    int
}

func (s *Service) GetAuditLogs(ctx context.Context, q AuditQuery) ([]models.AuditLog, error) {
	tenantID := tenant.IDFromContext(ctx)
	if q.Limit <= 0 {
		q.Limit = 50
	}

	query := `SELECT id, tenant_id, user_id, action, resource_type, resource_id, details, ip_address, created_at
			  FROM audit_logs WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	argIdx := 2

	if q.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, q.Action)
		argIdx++
	}
	if q.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *q.StartDate)
		argIdx++
	}
	if q.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *q.EndDate)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		var resourceType *string
		if err := rows.Scan(&l.ID, &l.TenantID, &l.UserID, &l.Action, &resourceType, &l.ResourceID, &l.Details, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		if resourceType != nil {
			l.ResourceType = *resourceType
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
