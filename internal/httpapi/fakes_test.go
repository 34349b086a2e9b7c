package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"habb.tech/allo/internal/auth"
	"habb.tech/allo/internal/crm"
)

// fakeStore is a minimal in-memory auth.Store for handler tests.
type fakeStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*auth.User
	roles     map[uuid.UUID]*auth.Role
	userRoles map[uuid.UUID][]uuid.UUID
	audit     []*auth.AuditEntry
	sessions  []*auth.Session
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[uuid.UUID]*auth.User),
		roles:     make(map[uuid.UUID]*auth.Role),
		userRoles: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeStore) Users() auth.UserStore       { return (*fakeUsers)(f) }
func (f *fakeStore) Roles() auth.RoleStore       { return (*fakeRoles)(f) }
func (f *fakeStore) Sessions() auth.SessionStore { return (*fakeSessions)(f) }
func (f *fakeStore) Audit() auth.AuditStore      { return (*fakeAudit)(f) }

// addUser seeds a user with one active role holding the given permissions.
func (f *fakeStore) addUser(email, passwordHash string, perms []string) *auth.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := &auth.User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, IsActive: true}
	f.users[user.ID] = user
	if len(perms) > 0 {
		role := &auth.Role{ID: uuid.New(), Name: "role:" + email, Permissions: perms, IsActive: true}
		f.roles[role.ID] = role
		f.userRoles[user.ID] = []uuid.UUID{role.ID}
	}
	return user
}

type fakeUsers fakeStore

func (f *fakeUsers) Create(ctx context.Context, u *auth.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return auth.ErrConflict
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUsers) Find(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindActive(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	u, err := f.Find(ctx, id)
	if err != nil || !u.IsActive || u.IsLocked {
		return nil, auth.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindActiveByEmail(ctx context.Context, email string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email && u.IsActive && !u.IsLocked {
			return u, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (f *fakeUsers) List(ctx context.Context) ([]*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*auth.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) Update(ctx context.Context, id uuid.UUID, upd auth.UserUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.Email, u.FirstName, u.LastName, u.IsActive = upd.Email, upd.FirstName, upd.LastName, upd.IsActive
	return nil
}

func (f *fakeUsers) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUsers) SetLocked(ctx context.Context, id uuid.UUID, lockedBy *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.IsLocked = true
	u.LockedBy = lockedBy
	return nil
}

func (f *fakeUsers) ClearLocked(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.IsLocked = false
	u.LockedBy = nil
	return nil
}

func (f *fakeUsers) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		now := time.Now().UTC()
		u.LastLogin = &now
	}
	return nil
}

func (f *fakeUsers) ReplaceRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID, assignedBy uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := make([]uuid.UUID, 0, len(roleIDs))
	for _, id := range roleIDs {
		if _, ok := f.roles[id]; ok {
			kept = append(kept, id)
		}
	}
	f.userRoles[userID] = kept
	return nil
}

func (f *fakeUsers) RolesForUser(ctx context.Context, userID uuid.UUID) ([]auth.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var roles []auth.Role
	for _, id := range f.userRoles[userID] {
		if role, ok := f.roles[id]; ok {
			roles = append(roles, *role)
		}
	}
	return roles, nil
}

func (f *fakeUsers) PermissionsForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for _, id := range f.userRoles[userID] {
		if role, ok := f.roles[id]; ok && role.IsActive {
			keys = append(keys, role.Permissions...)
		}
	}
	return keys, nil
}

type fakeRoles fakeStore

func (f *fakeRoles) Create(ctx context.Context, role *auth.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.roles {
		if existing.Name == role.Name {
			return auth.ErrConflict
		}
	}
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRoles) Find(ctx context.Context, id uuid.UUID) (*auth.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.roles[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return role, nil
}

func (f *fakeRoles) List(ctx context.Context, activeOnly bool) ([]*auth.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*auth.Role, 0, len(f.roles))
	for _, role := range f.roles {
		if activeOnly && !role.IsActive {
			continue
		}
		out = append(out, role)
	}
	return out, nil
}

func (f *fakeRoles) Update(ctx context.Context, role *auth.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[role.ID]; !ok {
		return auth.ErrNotFound
	}
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRoles) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[id]; !ok {
		return auth.ErrNotFound
	}
	delete(f.roles, id)
	return nil
}

func (f *fakeRoles) AssignedUserCount(ctx context.Context, id uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, assigned := range f.userRoles {
		for _, roleID := range assigned {
			if roleID == id {
				count++
			}
		}
	}
	return count, nil
}

type fakeSessions fakeStore

func (f *fakeSessions) Create(ctx context.Context, s *auth.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, s)
	return nil
}

type fakeAudit fakeStore

func (f *fakeAudit) Append(ctx context.Context, entry *auth.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audit = append(f.audit, entry)
	return nil
}

// fakeCustomers is a minimal in-memory crm.Store.
type fakeCustomers struct {
	mu        sync.Mutex
	customers map[uuid.UUID]*crm.Customer
}

func newFakeCustomers() *fakeCustomers {
	return &fakeCustomers{customers: make(map[uuid.UUID]*crm.Customer)}
}

func (f *fakeCustomers) Create(ctx context.Context, c *crm.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customers[c.ID] = c
	return nil
}

func (f *fakeCustomers) Find(ctx context.Context, id uuid.UUID) (*crm.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return c, nil
}

func (f *fakeCustomers) List(ctx context.Context) ([]*crm.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*crm.Customer, 0, len(f.customers))
	for _, c := range f.customers {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCustomers) Update(ctx context.Context, c *crm.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.customers[c.ID]; !ok {
		return auth.ErrNotFound
	}
	f.customers[c.ID] = c
	return nil
}

func (f *fakeCustomers) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.customers[id]; !ok {
		return auth.ErrNotFound
	}
	delete(f.customers, id)
	return nil
}
