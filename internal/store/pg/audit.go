package pg

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"habb.tech/allo/internal/auth"
)

type auditStore struct{ db *sql.DB }

var _ auth.AuditStore = (*auditStore)(nil)

func (s *auditStore) Append(ctx context.Context, entry *auth.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	var oldValues, newValues any
	if len(entry.OldValues) > 0 {
		oldValues = []byte(entry.OldValues)
	}
	if len(entry.NewValues) > 0 {
		newValues = []byte(entry.NewValues)
	}
	row := s.db.QueryRowContext(ctx, `
		insert into audit_logs (id, actor_id, action, resource_type, resource_id, old_values, new_values)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning created_at
	`, entry.ID, entry.ActorID, entry.Action, entry.ResourceType, entry.ResourceID, oldValues, newValues)
	return row.Scan(&entry.CreatedAt)
}
