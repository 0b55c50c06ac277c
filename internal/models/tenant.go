package models

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Invite struct {
	ID         uuid.UUID    `json:"id" db:"id"`
	TenantID   uuid.UUID    `json:"tenant_id" db:"tenant_id"`
	InviteCode string       `json:"invite_code" db:"invite_code"`
	Role       Role         `json:"role" db:"role"`
	ExpiresAt  time.Time    `json:"expires_at" db:"expires_at"`
	Status     InviteStatus `json:"status" db:"status"`
	CreatedBy  *uuid.UUID   `json:"created_by,omitempty" db:"created_by"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRevoked  InviteStatus = "revoked"
)

// Acceptable reports whether the invite can still be redeemed at now.
func (i *Invite) Acceptable(now time.Time) bool {
	return i.Status == InvitePending && i.ExpiresAt.After(now)
}
