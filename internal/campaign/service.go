package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/audit"
	"github.com/nikhilbhutani/petdesk/internal/metrics"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/segmentation"
	"github.com/nikhilbhutani/petdesk/internal/storage"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
	"github.com/nikhilbhutani/petdesk/internal/webhook"
)

const dispatchEvent = "campaign.dispatch"

type Sender interface {
	Send(ctx context.Context, url, event string, payload interface{}) (*webhook.Delivery, error)
}

type Config struct {
	WebhookURL  string
	MediaBucket string
}

type Preview struct {
	Total   int    `json:"total"`
	CanSend bool   `json:"can_send"`
	Hint    string `json:"hint,omitempty"`
}

type Service struct {
	store   Store
	sender  Sender
	storage storage.Storage
	cfg     Config
	loc     *time.Location
	now     func() time.Time
	audit   audit.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithStorage(st storage.Storage) Option {
	return func(s *Service) { s.storage = st }
}

func WithAudit(l audit.Logger) Option {
	return func(s *Service) { s.audit = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, sender Sender, cfg Config, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{store: store, sender: sender, cfg: cfg, loc: loc, now: time.Now, audit: audit.Nop{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) recipients(ctx context.Context, tenantID uuid.UUID, criteria []Criterion, dias int) ([]models.Client, error) {
	clients, err := s.store.Clients(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return Filter(clients, criteria, dias, s.now(), s.loc), nil
}

// Preview counts who a campaign would reach. It never fails for an empty
// selection; CanSend reports whether dispatch would be allowed.
func (s *Service) Preview(ctx context.Context, tenantID uuid.UUID, criteria []Criterion, dias int) (*Preview, error) {
	if len(criteria) == 0 {
		return &Preview{}, nil
	}
	if hasCriterion(criteria, CriterionInactive) {
		if err := segmentation.ValidateThreshold(dias); err != nil {
			return nil, err
		}
	}

	matched, err := s.recipients(ctx, tenantID, criteria, dias)
	if err != nil {
		return nil, err
	}
	p := &Preview{Total: len(matched), CanSend: len(matched) > 0}
	if !p.CanSend {
		p.Hint = NoMatchHint
	}
	return p, nil
}

// Dispatch hands the campaign to the workflow engine in one POST. There is
// no retry and no idempotency key, so a caller retrying after a timeout may
// send twice.
func (s *Service) Dispatch(ctx context.Context, sess *tenant.Session, req *Request) (*models.Campaign, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !sess.HasProfile() {
		return nil, tenant.ErrNoTenant
	}
	if s.cfg.WebhookURL == "" {
		return nil, ErrNotConfigured
	}
	tenantID := sess.TenantID()

	matched, err := s.recipients(ctx, tenantID, req.Criterios, req.DiasInatividade)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, ErrNoRecipients
	}

	payload := buildPayload(req, matched)
	_, sendErr := s.sender.Send(ctx, s.cfg.WebhookURL, dispatchEvent, payload)

	c := s.history(sess, req, payload.TotalClientes, sendErr)
	if err := s.store.Insert(ctx, c); err != nil {
		slog.Error("campaign history not recorded", "tenant_id", tenantID, "error", err)
	}

	switch {
	case errors.Is(sendErr, webhook.ErrRejected):
		s.metrics.Dispatch("rejected", 0)
		return c, fmt.Errorf("%w: %v", ErrWebhookRejected, sendErr)
	case sendErr != nil:
		s.metrics.Dispatch("error", 0)
		return c, fmt.Errorf("dispatch campaign: %w", sendErr)
	}

	s.metrics.Dispatch("sent", payload.TotalClientes)
	if err := s.audit.Log(ctx, audit.LogEntry{
		Action:       audit.ActionCampaignDispatched,
		ResourceType: "campaign",
		ResourceID:   &c.ID,
		Details:      map[string]interface{}{"recipients": payload.TotalClientes, "criterios": req.Criterios},
	}); err != nil {
		slog.Warn("audit log failed", "action", audit.ActionCampaignDispatched, "error", err)
	}
	slog.Info("campaign dispatched", "tenant_id", tenantID, "campaign", req.Campanha, "recipients", payload.TotalClientes)
	return c, nil
}

func (s *Service) history(sess *tenant.Session, req *Request, total int, sendErr error) *models.Campaign {
	criterios := make([]string, len(req.Criterios))
	for i, c := range req.Criterios {
		criterios[i] = string(c)
	}
	userID := sess.UserID
	c := &models.Campaign{
		TenantID:      sess.TenantID(),
		Nome:          req.Campanha,
		Mensagem:      req.Mensagem,
		MediaURL:      req.MediaURL,
		Criterios:     criterios,
		TotalClientes: total,
		Status:        models.CampaignSent,
		CreatedBy:     &userID,
		CreatedAt:     s.now(),
	}
	if req.MediaType != nil {
		mt := string(*req.MediaType)
		c.MediaType = &mt
	}
	if hasCriterion(req.Criterios, CriterionInactive) {
		d := req.DiasInatividade
		c.DiasInatividade = &d
	}
	if sendErr != nil {
		msg := sendErr.Error()
		c.Status = models.CampaignFailed
		c.Erro = &msg
	}
	return c
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.Campaign, error) {
	return s.store.List(ctx, tenantID, limit)
}

// UploadMedia stores a campaign attachment and returns its public URL and
// the media type the workflow engine expects.
func (s *Service) UploadMedia(ctx context.Context, tenantID uuid.UUID, filename, contentType string, data io.Reader) (MediaType, string, error) {
	if s.storage == nil {
		return "", "", errors.New("media storage is not configured")
	}
	mt := mediaTypeFor(contentType)
	ext := strings.ToLower(path.Ext(filename))
	objectPath := fmt.Sprintf("%s/%s%s", tenantID, uuid.NewString(), ext)

	if err := s.storage.Upload(ctx, s.cfg.MediaBucket, objectPath, data, contentType); err != nil {
		return "", "", fmt.Errorf("upload campaign media: %w", err)
	}
	return mt, s.storage.GetPublicURL(s.cfg.MediaBucket, objectPath), nil
}

func mediaTypeFor(contentType string) MediaType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return MediaImage
	case strings.HasPrefix(contentType, "video/"):
		return MediaVideo
	default:
		return MediaDocument
	}
}
