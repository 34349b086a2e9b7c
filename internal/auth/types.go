package auth

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User is a team member account. Lookups on the request path are always
// filtered to active, unlocked accounts; the full record is only visible
// through team management.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	IsActive     bool       `json:"is_active"`
	IsLocked     bool       `json:"is_locked"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	LockedAt     *time.Time `json:"locked_at,omitempty"`
	LockedBy     *uuid.UUID `json:"locked_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Role bundles permission keys. Permissions is a deduplicated, sorted set;
// keys are not validated against the catalog (unknown keys are honored).
type Role struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Permissions []string   `json:"permissions"`
	IsActive    bool       `json:"is_active"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Permission is one grantable capability from the code-defined catalog.
type Permission struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// UserWithRoles is a user joined with its assigned roles and the derived
// effective permission set, as rendered by the team pages.
type UserWithRoles struct {
	User
	Roles       []Role   `json:"roles"`
	Permissions []string `json:"permissions"`
}

// AuditEntry is an append-only record of a privileged mutation.
type AuditEntry struct {
	ID           uuid.UUID       `json:"id"`
	ActorID      uuid.UUID       `json:"actor_id"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   *uuid.UUID      `json:"resource_id,omitempty"`
	OldValues    json.RawMessage `json:"old_values,omitempty"`
	NewValues    json.RawMessage `json:"new_values,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Session tracks an issued login. It is written for bookkeeping only; token
// validity is decided by signature and expiry, sessions are never consulted.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Audit actions recorded by team and CRM mutations.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionLock   = "lock"
	ActionUnlock = "unlock"
)
