package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const minPasswordLength = 6

// Service provides team management and login on top of a Store. Every
// mutating operation takes the acting identity, checks the required
// permission before any side effect, and records an audit entry after the
// mutation. Audit failures are logged and swallowed, never surfaced.
type Service struct {
	store  Store
	tokens *TokenService
	log    zerolog.Logger
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, tokens *TokenService, log zerolog.Logger, opts ...ServiceOption) *Service {
	svc := &Service{store: store, tokens: tokens, log: log, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreateUserInput carries the team user form. RoleIDs are raw form values;
// malformed ids are skipped, not errored.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	IsActive  bool
	RoleIDs   []string
}

// UpdateUserInput is a full-replace update. An empty Password leaves the
// stored hash untouched.
type UpdateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	IsActive  bool
	RoleIDs   []string
}

// Login authenticates credentials against an active, unlocked account and
// issues a signed token. A session row is written and last_login touched as
// bookkeeping; both are best-effort and never fail the login.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, *User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", time.Time{}, nil, ErrUnauthenticated
	}
	user, err := s.store.Users().FindActiveByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, nil, ErrUnauthenticated
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return "", time.Time{}, nil, ErrUnauthenticated
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return "", time.Time{}, nil, err
	}

	session := &Session{ID: uuid.New(), UserID: user.ID, ExpiresAt: expiresAt}
	if err := s.store.Sessions().Create(ctx, session); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("session record failed")
	}
	if err := s.store.Users().TouchLastLogin(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("last_login update failed")
	}
	return token, expiresAt, user, nil
}

// Register creates a self-service account with no roles assigned.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (*User, error) {
	user, err := s.newUser(email, password, firstName, lastName, true)
	if err != nil {
		return nil, err
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser creates a team member and assigns the given roles.
func (s *Service) CreateUser(ctx context.Context, actor *Identity, in CreateUserInput) (*User, error) {
	if err := actor.Require(PermTeamWrite); err != nil {
		return nil, err
	}
	user, err := s.newUser(in.Email, in.Password, in.FirstName, in.LastName, in.IsActive)
	if err != nil {
		return nil, err
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.store.Users().ReplaceRoles(ctx, user.ID, parseRoleIDs(in.RoleIDs), actor.User.ID); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor.User.ID, ActionCreate, "user", &user.ID, nil, map[string]any{
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"is_active":  user.IsActive,
	})
	return user, nil
}

// UpdateUser replaces a user's editable fields and its role assignments
// wholesale.
func (s *Service) UpdateUser(ctx context.Context, actor *Identity, id uuid.UUID, in UpdateUserInput) error {
	if err := actor.Require(PermTeamWrite); err != nil {
		return err
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: valid email is required", ErrInvalidRequest)
	}
	upd := UserUpdate{
		Email:     email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		IsActive:  in.IsActive,
	}
	if pw := strings.TrimSpace(in.Password); pw != "" {
		if len(pw) < minPasswordLength {
			return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRequest, minPasswordLength)
		}
		hash, err := HashPassword(pw)
		if err != nil {
			return err
		}
		upd.PasswordHash = &hash
	}
	if err := s.store.Users().Update(ctx, id, upd); err != nil {
		return err
	}
	if err := s.store.Users().ReplaceRoles(ctx, id, parseRoleIDs(in.RoleIDs), actor.User.ID); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.User.ID, ActionUpdate, "user", &id, nil, map[string]any{
		"email":      upd.Email,
		"first_name": upd.FirstName,
		"last_name":  upd.LastName,
		"is_active":  upd.IsActive,
	})
	return nil
}

// LockUser locks an account. An identity may never lock itself, regardless
// of permission.
func (s *Service) LockUser(ctx context.Context, actor *Identity, id uuid.UUID) error {
	if err := actor.Require(PermTeamWrite); err != nil {
		return err
	}
	if actor.User.ID == id {
		return fmt.Errorf("%w: cannot lock your own account", ErrInvalidRequest)
	}
	lockedBy := actor.User.ID
	if err := s.store.Users().SetLocked(ctx, id, &lockedBy); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.User.ID, ActionLock, "user", &id, nil, map[string]any{"locked": true})
	return nil
}

// UnlockUser clears an account lock.
func (s *Service) UnlockUser(ctx context.Context, actor *Identity, id uuid.UUID) error {
	if err := actor.Require(PermTeamWrite); err != nil {
		return err
	}
	if err := s.store.Users().ClearLocked(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.User.ID, ActionUnlock, "user", &id, nil, map[string]any{"locked": false})
	return nil
}

// DeleteUser removes an account; role assignments cascade. An identity may
// never delete itself.
func (s *Service) DeleteUser(ctx context.Context, actor *Identity, id uuid.UUID) error {
	if err := actor.Require(PermTeamDelete); err != nil {
		return err
	}
	if actor.User.ID == id {
		return fmt.Errorf("%w: cannot delete your own account", ErrInvalidRequest)
	}
	user, err := s.store.Users().Find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Users().Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.User.ID, ActionDelete, "user", &id, map[string]any{
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	}, nil)
	return nil
}

// ListUsers returns all users joined with their roles and effective
// permissions, ordered by name.
func (s *Service) ListUsers(ctx context.Context, actor *Identity) ([]UserWithRoles, error) {
	if err := actor.Require(PermTeamRead); err != nil {
		return nil, err
	}
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]UserWithRoles, 0, len(users))
	for _, u := range users {
		joined, err := s.userWithRoles(ctx, u)
		if err != nil {
			return nil, err
		}
		result = append(result, joined)
	}
	return result, nil
}

// GetUser returns one user joined with roles and permissions.
func (s *Service) GetUser(ctx context.Context, actor *Identity, id uuid.UUID) (UserWithRoles, error) {
	if err := actor.Require(PermTeamRead); err != nil {
		return UserWithRoles{}, err
	}
	user, err := s.store.Users().Find(ctx, id)
	if err != nil {
		return UserWithRoles{}, err
	}
	return s.userWithRoles(ctx, user)
}

func (s *Service) userWithRoles(ctx context.Context, user *User) (UserWithRoles, error) {
	roles, err := s.store.Users().RolesForUser(ctx, user.ID)
	if err != nil {
		return UserWithRoles{}, err
	}
	perms := make([]string, 0)
	for _, role := range roles {
		if role.IsActive {
			perms = append(perms, role.Permissions...)
		}
	}
	return UserWithRoles{User: *user, Roles: roles, Permissions: dedupeKeys(perms)}, nil
}

// RoleInput carries the role form.
type RoleInput struct {
	Name        string
	Description string
	Permissions []string
	IsActive    bool
}

// CreateRole persists a role. Permission keys are deduplicated but not
// validated against the catalog.
func (s *Service) CreateRole(ctx context.Context, actor *Identity, in RoleInput) (*Role, error) {
	if err := actor.Require(PermTeamManageRoles); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidRequest)
	}
	createdBy := actor.User.ID
	role := &Role{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Permissions: dedupeKeys(in.Permissions),
		IsActive:    in.IsActive,
		CreatedBy:   &createdBy,
	}
	if err := s.store.Roles().Create(ctx, role); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor.User.ID, ActionCreate, "role", &role.ID, nil, map[string]any{
		"name":        role.Name,
		"description": role.Description,
		"permissions": role.Permissions,
		"is_active":   role.IsActive,
	})
	return role, nil
}

// UpdateRole fully replaces a role's name, description, permission set and
// active flag.
func (s *Service) UpdateRole(ctx context.Context, actor *Identity, id uuid.UUID, in RoleInput) (*Role, error) {
	if err := actor.Require(PermTeamManageRoles); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidRequest)
	}
	role := &Role{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Permissions: dedupeKeys(in.Permissions),
		IsActive:    in.IsActive,
	}
	if err := s.store.Roles().Update(ctx, role); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor.User.ID, ActionUpdate, "role", &id, nil, map[string]any{
		"name":        role.Name,
		"description": role.Description,
		"permissions": role.Permissions,
		"is_active":   role.IsActive,
	})
	return role, nil
}

// DeleteRole hard-deletes a role. Deletion is refused with ErrConflict
// while any user is assigned the role.
func (s *Service) DeleteRole(ctx context.Context, actor *Identity, id uuid.UUID) error {
	if err := actor.Require(PermTeamManageRoles); err != nil {
		return err
	}
	assigned, err := s.store.Roles().AssignedUserCount(ctx, id)
	if err != nil {
		return err
	}
	if assigned > 0 {
		return fmt.Errorf("%w: role is assigned to %d user(s)", ErrConflict, assigned)
	}
	role, err := s.store.Roles().Find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Roles().Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.User.ID, ActionDelete, "role", &id, map[string]any{
		"name":        role.Name,
		"description": role.Description,
		"permissions": role.Permissions,
	}, nil)
	return nil
}

// ListRoles returns roles ordered by name.
func (s *Service) ListRoles(ctx context.Context, actor *Identity, activeOnly bool) ([]*Role, error) {
	if err := actor.Require(PermTeamManageRoles); err != nil {
		return nil, err
	}
	return s.store.Roles().List(ctx, activeOnly)
}

func (s *Service) newUser(email, password, firstName, lastName string, isActive bool) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidRequest)
	}
	if len(strings.TrimSpace(password)) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRequest, minPasswordLength)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		IsActive:     isActive,
	}, nil
}

// recordAudit appends an audit entry, logging and swallowing failures so
// the triggering operation never aborts on audit problems.
func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, action, resourceType string, resourceID *uuid.UUID, oldValues, newValues map[string]any) {
	entry := &AuditEntry{
		ID:           uuid.New(),
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		CreatedAt:    s.now().UTC(),
	}
	if oldValues != nil {
		if raw, err := json.Marshal(oldValues); err == nil {
			entry.OldValues = raw
		}
	}
	if newValues != nil {
		if raw, err := json.Marshal(newValues); err == nil {
			entry.NewValues = raw
		}
	}
	if err := s.store.Audit().Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("action", action).
			Str("resource_type", resourceType).
			Msg("audit append failed")
	}
}

// parseRoleIDs filters raw form values down to well-formed role ids.
// Malformed entries are dropped silently per the team form contract.
func parseRoleIDs(raw []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		id, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
