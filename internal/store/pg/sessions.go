package pg

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"habb.tech/allo/internal/auth"
)

type sessionStore struct{ db *sql.DB }

var _ auth.SessionStore = (*sessionStore)(nil)

func (s *sessionStore) Create(ctx context.Context, sess *auth.Session) error {
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into sessions (id, user_id, expires_at)
		values ($1, $2, $3)
		returning created_at
	`, sess.ID, sess.UserID, sess.ExpiresAt)
	return row.Scan(&sess.CreatedAt)
}
