package auth

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*User
	roles     map[uuid.UUID]*Role
	userRoles map[uuid.UUID][]uuid.UUID
	sessions  []*Session
	audit     []*AuditEntry
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[uuid.UUID]*User),
		roles:     make(map[uuid.UUID]*Role),
		userRoles: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *memStore) Users() UserStore       { return (*memUsers)(m) }
func (m *memStore) Roles() RoleStore       { return (*memRoles)(m) }
func (m *memStore) Sessions() SessionStore { return (*memSessions)(m) }
func (m *memStore) Audit() AuditStore      { return (*memAudit)(m) }

func (m *memStore) lastAudit() *AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.audit) == 0 {
		return nil
	}
	return m.audit[len(m.audit)-1]
}

type memUsers memStore

func (m *memUsers) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrConflict
		}
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	clone := *u
	m.users[u.ID] = &clone
	return nil
}

func (m *memUsers) Find(ctx context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *memUsers) FindActive(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := m.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsActive || u.IsLocked {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *memUsers) FindActiveByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && u.IsActive && !u.IsLocked {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) List(ctx context.Context) ([]*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstName < out[j].FirstName })
	return out, nil
}

func (m *memUsers) Update(ctx context.Context, id uuid.UUID, upd UserUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Email = upd.Email
	u.FirstName = upd.FirstName
	u.LastName = upd.LastName
	u.IsActive = upd.IsActive
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memUsers) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	delete(m.userRoles, id)
	return nil
}

func (m *memUsers) SetLocked(ctx context.Context, id uuid.UUID, lockedBy *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	u.IsLocked = true
	u.LockedAt = &now
	u.LockedBy = lockedBy
	return nil
}

func (m *memUsers) ClearLocked(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsLocked = false
	u.LockedAt = nil
	u.LockedBy = nil
	return nil
}

func (m *memUsers) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	u.LastLogin = &now
	return nil
}

func (m *memUsers) ReplaceRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID, assignedBy uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]uuid.UUID, 0, len(roleIDs))
	for _, id := range roleIDs {
		if _, ok := m.roles[id]; ok {
			kept = append(kept, id)
		}
	}
	m.userRoles[userID] = kept
	return nil
}

func (m *memUsers) RolesForUser(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var roles []Role
	for _, id := range m.userRoles[userID] {
		if role, ok := m.roles[id]; ok {
			roles = append(roles, *role)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (m *memUsers) PermissionsForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for _, id := range m.userRoles[userID] {
		role, ok := m.roles[id]
		if !ok || !role.IsActive {
			continue
		}
		keys = append(keys, role.Permissions...)
	}
	return dedupeKeys(keys), nil
}

type memRoles memStore

func (m *memRoles) Create(ctx context.Context, role *Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.roles {
		if existing.Name == role.Name {
			return ErrConflict
		}
	}
	now := time.Now().UTC()
	role.CreatedAt, role.UpdatedAt = now, now
	clone := *role
	m.roles[role.ID] = &clone
	return nil
}

func (m *memRoles) Find(ctx context.Context, id uuid.UUID) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *role
	return &clone, nil
}

func (m *memRoles) List(ctx context.Context, activeOnly bool) ([]*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Role, 0, len(m.roles))
	for _, role := range m.roles {
		if activeOnly && !role.IsActive {
			continue
		}
		clone := *role
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memRoles) Update(ctx context.Context, role *Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.roles[role.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = role.Name
	existing.Description = role.Description
	existing.Permissions = role.Permissions
	existing.IsActive = role.IsActive
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memRoles) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return ErrNotFound
	}
	for _, assigned := range m.userRoles {
		for _, roleID := range assigned {
			if roleID == id {
				return ErrConflict
			}
		}
	}
	delete(m.roles, id)
	return nil
}

func (m *memRoles) AssignedUserCount(ctx context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, assigned := range m.userRoles {
		for _, roleID := range assigned {
			if roleID == id {
				count++
			}
		}
	}
	return count, nil
}

type memSessions memStore

func (m *memSessions) Create(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CreatedAt = time.Now().UTC()
	clone := *s
	m.sessions = append(m.sessions, &clone)
	return nil
}

type memAudit memStore

func (m *memAudit) Append(ctx context.Context, entry *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *entry
	m.audit = append(m.audit, &clone)
	return nil
}
