package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"habb.tech/allo/internal/auth"
)

type userStore struct{ db *sql.DB }

var _ auth.UserStore = (*userStore)(nil)

const userColumns = `id, email, password_hash, first_name, last_name,
	is_active, is_locked, last_login, locked_at, locked_by, created_at, updated_at`

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser is the single row-to-User mapping used by every lookup path, so
// null handling cannot diverge between them.
func scanUser(row rowScanner) (*auth.User, error) {
	var (
		u         auth.User
		lastLogin sql.NullTime
		lockedAt  sql.NullTime
		lockedBy  sql.Null[uuid.UUID]
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.IsActive, &u.IsLocked, &lastLogin, &lockedAt, &lockedBy, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	if lockedAt.Valid {
		t := lockedAt.Time
		u.LockedAt = &t
	}
	if lockedBy.Valid {
		id := lockedBy.V
		u.LockedBy = &id
	}
	return &u, nil
}

func (s *userStore) Create(ctx context.Context, u *auth.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, email, password_hash, first_name, last_name, is_active)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at, updated_at
	`, u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsActive)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrConflict
		}
		return err
	}
	return nil
}

func (s *userStore) Find(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id)
	return scanUser(row)
}

func (s *userStore) FindActive(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1 and is_active = true and is_locked = false`, id)
	return scanUser(row)
}

func (s *userStore) FindActiveByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email = $1 and is_active = true and is_locked = false`, email)
	return scanUser(row)
}

func (s *userStore) List(ctx context.Context) ([]*auth.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users order by first_name, last_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *userStore) Update(ctx context.Context, id uuid.UUID, upd auth.UserUpdate) error {
	var (
		res sql.Result
		err error
	)
	if upd.PasswordHash != nil {
		res, err = s.db.ExecContext(ctx, `
			update users
			set email = $1, first_name = $2, last_name = $3, is_active = $4,
				password_hash = $5, updated_at = now()
			where id = $6
		`, upd.Email, upd.FirstName, upd.LastName, upd.IsActive, *upd.PasswordHash, id)
	} else {
		res, err = s.db.ExecContext(ctx, `
			update users
			set email = $1, first_name = $2, last_name = $3, is_active = $4, updated_at = now()
			where id = $5
		`, upd.Email, upd.FirstName, upd.LastName, upd.IsActive, id)
	}
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrConflict
		}
		return err
	}
	return requireAffected(res)
}

func (s *userStore) Delete(ctx context.Context, id uuid.UUID) error {
	// user_roles and sessions cascade on delete.
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *userStore) SetLocked(ctx context.Context, id uuid.UUID, lockedBy *uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		update users set is_locked = true, locked_at = now(), locked_by = $1 where id = $2
	`, lockedBy, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *userStore) ClearLocked(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		update users set is_locked = false, locked_at = null, locked_by = null where id = $1
	`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *userStore) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `update users set last_login = now() where id = $1`, id)
	return err
}

// ReplaceRoles swaps a user's assignments inside one transaction so no
// reader can observe the user with zero roles mid-replace. Unknown role ids
// insert zero rows via the select and are skipped.
func (s *userStore) ReplaceRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID, assignedBy uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from user_roles where user_id = $1`, userID); err != nil {
		return err
	}
	for _, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx, `
			insert into user_roles (user_id, role_id, assigned_by)
			select $1, id, $3 from roles where id = $2
			on conflict do nothing
		`, userID, roleID, assignedBy); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *userStore) RolesForUser(ctx context.Context, userID uuid.UUID) ([]auth.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.name, r.description, r.permissions, r.is_active, r.created_by, r.created_at, r.updated_at
		from roles r
		join user_roles ur on ur.role_id = r.id
		where ur.user_id = $1
		order by r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	return roles, rows.Err()
}

func (s *userStore) PermissionsForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select distinct jsonb_array_elements_text(r.permissions) as permission
		from roles r
		join user_roles ur on r.id = ur.role_id
		where ur.user_id = $1 and r.is_active = true
		order by permission
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		perms = append(perms, key)
	}
	return perms, rows.Err()
}

func requireAffected(res sql.Result) error {
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}
