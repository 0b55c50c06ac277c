package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// IsAdmin is true for the roles allowed to change tenant configuration.
func (r Role) IsAdmin() bool {
	return r == RoleOwner || r == RoleAdmin
}

type ProfileStatus string

const (
	ProfileActive   ProfileStatus = "active"
	ProfileInactive ProfileStatus = "inactive"
	ProfilePending  ProfileStatus = "pending"
)

// UserProfile is keyed by the auth provider's user id. TenantID stays nil
// until the user creates or joins a tenant.
type UserProfile struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	TenantID  *uuid.UUID    `json:"tenant_id,omitempty" db:"tenant_id"`
	FullName  string        `json:"full_name,omitempty" db:"full_name"`
	Email     string        `json:"email" db:"email"`
	Role      Role          `json:"role" db:"role"`
	Status    ProfileStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

type APIKey struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	TenantID   uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	UserID     *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	KeyHash    string     `json:"-" db:"key_hash"`
	Name       string     `json:"name" db:"name"`
	Scopes     []string   `json:"scopes" db:"scopes"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
