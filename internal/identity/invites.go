package identity

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/audit"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
)

const (
	defaultInviteTTL = 7 * 24 * time.Hour
	maxInviteTTL     = 30 * 24 * time.Hour
)

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateInviteCode returns a 10 character code from 50 random bits.
func GenerateInviteCode() (string, error) {
	b := make([]byte, 7)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invite code: %w", err)
	}
	return codeEncoding.EncodeToString(b)[:10], nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *Service) CreateInvite(ctx context.Context, sess *tenant.Session, role models.Role, ttl time.Duration) (*models.Invite, error) {
	if !sess.IsTenantAdmin() {
		return nil, ErrNotTenantAdmin
	}
	if !role.Valid() || role == models.RoleOwner {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if ttl <= 0 {
		ttl = defaultInviteTTL
	}
	if ttl > maxInviteTTL {
		ttl = maxInviteTTL
	}

	code, err := GenerateInviteCode()
	if err != nil {
		return nil, err
	}

	createdBy := sess.UserID
	inv := &models.Invite{
		TenantID:   sess.TenantID(),
		InviteCode: code,
		Role:       role,
		ExpiresAt:  s.now().Add(ttl),
		Status:     models.InvitePending,
		CreatedBy:  &createdBy,
	}
	if err := s.store.InsertInvite(ctx, inv); err != nil {
		return nil, err
	}

	s.record(ctx, audit.ActionInviteCreated, "invite", inv.ID, map[string]interface{}{"role": role})
	return inv, nil
}

func (s *Service) ListInvites(ctx context.Context, sess *tenant.Session) ([]models.Invite, error) {
	if !sess.IsTenantAdmin() {
		return nil, ErrNotTenantAdmin
	}
	return s.store.ListInvites(ctx, sess.TenantID())
}

func (s *Service) RevokeInvite(ctx context.Context, sess *tenant.Session, inviteID uuid.UUID) error {
	if !sess.IsTenantAdmin() {
		return ErrNotTenantAdmin
	}
	if err := s.store.RevokeInvite(ctx, sess.TenantID(), inviteID); err != nil {
		return err
	}
	s.record(ctx, audit.ActionInviteRevoked, "invite", inviteID, nil)
	return nil
}

func (s *Service) ListMembers(ctx context.Context, sess *tenant.Session) ([]models.UserProfile, error) {
	if !sess.IsTenantAdmin() {
		return nil, ErrNotTenantAdmin
	}
	return s.store.ListMembers(ctx, sess.TenantID())
}

// UpdateMember changes another member's role or status. Owners cannot be
// demoted and nobody can be promoted to owner.
func (s *Service) UpdateMember(ctx context.Context, sess *tenant.Session, userID uuid.UUID, role models.Role, status models.ProfileStatus) error {
	if !sess.IsTenantAdmin() {
		return ErrNotTenantAdmin
	}
	if !role.Valid() || role == models.RoleOwner {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if err := s.store.UpdateMember(ctx, sess.TenantID(), userID, role, status); err != nil {
		return err
	}
	s.record(ctx, audit.ActionMemberUpdated, "user_profile", userID, map[string]interface{}{
		"role":   role,
		"status": status,
	})
	return nil
}

func (s *Service) record(ctx context.Context, action, resourceType string, id uuid.UUID, details map[string]interface{}) {
	if err := s.audit.Log(ctx, audit.LogEntry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   &id,
		Details:      details,
	}); err != nil {
		slog.Warn("audit log failed", "action", action, "error", err)
	}
}
