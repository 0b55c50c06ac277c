package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/audit"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

var (
	ErrNameRequired       = errors.New("company name is required")
	ErrInviteCodeRequired = errors.New("invite code is required")
	ErrProfileInactive    = errors.New("profile is inactive")
	ErrNotTenantAdmin     = errors.New("tenant admin role required")
	ErrInvalidRole        = errors.New("invalid role")
	ErrNotFound           = tenant.ErrNotFound
)

// ProcedureError is a business-rule rejection raised by a provisioning
// procedure. Message is shown to the user as-is.
type ProcedureError struct {
	Procedure string
	Message   string
}

func (e *ProcedureError) Error() string {
	return e.Message
}

// Result is the outcome of a provisioning call. Error carries the
// procedure's rejection message when Success is false.
type Result struct {
	Success  bool      `json:"success"`
	TenantID uuid.UUID `json:"tenant_id,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type InviteCheck struct {
	Valid      bool        `json:"valid"`
	TenantName string      `json:"tenant_name,omitempty"`
	Role       models.Role `json:"role,omitempty"`
}

type Service struct {
	store Store
	audit audit.Logger
	now   func() time.Time
}

func NewService(store Store, auditLog audit.Logger) *Service {
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	return &Service{store: store, audit: auditLog, now: time.Now}
}

// Resolve builds the session for an authenticated user. A user without a
// profile gets a session with HasProfile false rather than an error.
func (s *Service) Resolve(ctx context.Context, userID uuid.UUID, email string) (*tenant.Session, error) {
	sess := &tenant.Session{UserID: userID, Email: email}

	profile, err := s.store.Profile(ctx, userID)
	if errors.Is(err, tenant.ErrNotFound) {
		return sess, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve profile: %w", err)
	}
	if profile.Status == models.ProfileInactive {
		return nil, ErrProfileInactive
	}
	sess.Profile = profile

	if profile.TenantID == nil {
		return sess, nil
	}

	t, err := s.store.Tenant(ctx, *profile.TenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant: %w", err)
	}
	sess.Tenant = t
	return sess, nil
}

func (s *Service) CreateTenantWithOwner(ctx context.Context, userID uuid.UUID, name string) (Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{}, ErrNameRequired
	}

	id, err := s.store.CreateTenantWithOwner(ctx, userID, name)
	if res, ok := rejected(err); ok {
		return res, nil
	}
	if err != nil {
		return Result{}, err
	}

	slog.Info("tenant created", "tenant_id", id, "user_id", userID)
	return Result{Success: true, TenantID: id}, nil
}

func (s *Service) AcceptInvite(ctx context.Context, userID uuid.UUID, code string) (Result, error) {
	code = normalizeCode(code)
	if code == "" {
		return Result{}, ErrInviteCodeRequired
	}

	id, err := s.store.AcceptInvite(ctx, userID, code)
	if res, ok := rejected(err); ok {
		return res, nil
	}
	if err != nil {
		return Result{}, err
	}

	slog.Info("invite accepted", "tenant_id", id, "user_id", userID)
	return Result{Success: true, TenantID: id}, nil
}

// ValidateInviteCode answers whether code can be redeemed now. Unknown,
// expired and already used codes all report Valid false.
func (s *Service) ValidateInviteCode(ctx context.Context, code string) (InviteCheck, error) {
	code = normalizeCode(code)
	if code == "" {
		return InviteCheck{}, nil
	}

	name, role, err := s.store.PendingInvite(ctx, code)
	if errors.Is(err, tenant.ErrNotFound) {
		return InviteCheck{}, nil
	}
	if err != nil {
		return InviteCheck{}, err
	}
	return InviteCheck{Valid: true, TenantName: name, Role: role}, nil
}

func rejected(err error) (Result, bool) {
	var pe *ProcedureError
	if errors.As(err, &pe) {
		return Result{Success: false, Error: pe.Message}, true
	}
	return Result{}, false
}
