package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"habb.tech/allo/internal/auth"
)

type roleStore struct{ db *sql.DB }

var _ auth.RoleStore = (*roleStore)(nil)

// scanRole maps a role row; permissions are stored as a JSONB array.
func scanRole(row rowScanner) (*auth.Role, error) {
	var (
		role     auth.Role
		desc     sql.NullString
		rawPerms []byte
		created  sql.Null[uuid.UUID]
	)
	err := row.Scan(&role.ID, &role.Name, &desc, &rawPerms, &role.IsActive,
		&created, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		role.Description = desc.String
	}
	role.Permissions = []string{}
	if len(rawPerms) > 0 {
		if err := json.Unmarshal(rawPerms, &role.Permissions); err != nil {
			return nil, fmt.Errorf("decode permissions: %w", err)
		}
	}
	if created.Valid {
		id := created.V
		role.CreatedBy = &id
	}
	return &role, nil
}

func (s *roleStore) Create(ctx context.Context, role *auth.Role) error {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		insert into roles (id, name, description, permissions, is_active, created_by)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at, updated_at
	`, role.ID, role.Name, nullIfEmpty(role.Description), perms, role.IsActive, role.CreatedBy)
	if err := row.Scan(&role.CreatedAt, &role.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrConflict
		}
		return err
	}
	return nil
}

func (s *roleStore) Find(ctx context.Context, id uuid.UUID) (*auth.Role, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, description, permissions, is_active, created_by, created_at, updated_at
		from roles
		where id = $1
	`, id)
	return scanRole(row)
}

func (s *roleStore) List(ctx context.Context, activeOnly bool) ([]*auth.Role, error) {
	query := `
		select id, name, description, permissions, is_active, created_by, created_at, updated_at
		from roles
		order by name`
	if activeOnly {
		query = `
		select id, name, description, permissions, is_active, created_by, created_at, updated_at
		from roles
		where is_active = true
		order by name`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*auth.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (s *roleStore) Update(ctx context.Context, role *auth.Role) error {
	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		update roles
		set name = $1, description = $2, permissions = $3, is_active = $4, updated_at = now()
		where id = $5
	`, role.Name, nullIfEmpty(role.Description), perms, role.IsActive, role.ID)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrConflict
		}
		return err
	}
	return requireAffected(res)
}

func (s *roleStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `delete from roles where id = $1`, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return auth.ErrConflict
		}
		return err
	}
	return requireAffected(res)
}

func (s *roleStore) AssignedUserCount(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`select count(*) from user_roles where role_id = $1`, id).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
