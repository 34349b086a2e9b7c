package auth

import (
	"context"

	"github.com/google/uuid"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users() UserStore
	Roles() RoleStore
	Sessions() SessionStore
	Audit() AuditStore
}

// UserUpdate is a full-replace update of a user's editable fields.
// PasswordHash is applied only when non-nil.
type UserUpdate struct {
	Email        string
	FirstName    string
	LastName     string
	IsActive     bool
	PasswordHash *string
}

// UserStore manages team member accounts and their role assignments.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	// Find returns the user regardless of status; team management needs
	// locked and inactive accounts too.
	Find(ctx context.Context, id uuid.UUID) (*User, error)
	// FindActive returns the user only if active and unlocked. Identity
	// resolution and login use this path exclusively.
	FindActive(ctx context.Context, id uuid.UUID) (*User, error)
	FindActiveByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, id uuid.UUID, upd UserUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetLocked(ctx context.Context, id uuid.UUID, lockedBy *uuid.UUID) error
	ClearLocked(ctx context.Context, id uuid.UUID) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error

	// ReplaceRoles deletes every existing assignment for the user and
	// inserts one row per role id, atomically. Unknown role ids are
	// skipped, not errored.
	ReplaceRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID, assignedBy uuid.UUID) error
	RolesForUser(ctx context.Context, userID uuid.UUID) ([]Role, error)
	// PermissionsForUser returns the deduplicated, sorted union of
	// permission keys across the user's active assigned roles.
	PermissionsForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// RoleStore manages roles.
type RoleStore interface {
	Create(ctx context.Context, role *Role) error
	Find(ctx context.Context, id uuid.UUID) (*Role, error)
	List(ctx context.Context, activeOnly bool) ([]*Role, error)
	Update(ctx context.Context, role *Role) error
	// Delete fails with ErrConflict while any user is assigned the role.
	Delete(ctx context.Context, id uuid.UUID) error
	AssignedUserCount(ctx context.Context, id uuid.UUID) (int64, error)
}

// SessionStore tracks issued logins. Session rows are bookkeeping only and
// are never consulted during token verification.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
}

// AuditStore appends immutable entries.
type AuditStore interface {
	Append(ctx context.Context, entry *AuditEntry) error
}
