package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"docbook/internal/domain"
)

const sessionColumns = `id, user_id, refresh_token, user_agent, ip, expires_at, created_at`

type SessionRepo struct {
	db DB
}

func NewSessionRepository(db DB) *SessionRepo {
	return &SessionRepo{db: db}
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertSession(ctx context.Context, db execer, s domain.Session) error {
	query := `INSERT INTO sessions (` + sessionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := db.Exec(ctx, query, s.ID, s.UserID, s.RefreshToken, s.UserAgent, s.IP, s.ExpiresAt, s.CreatedAt); err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

// Open stores a new login session and drops the user's sessions that
// already expired, so the table does not grow with abandoned logins.
func (r *SessionRepo) Open(ctx context.Context, session domain.Session) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND expires_at <= $2`,
		session.UserID, session.CreatedAt,
	); err != nil {
		return fmt.Errorf("ошибка очистки истекших сессий: %w", err)
	}

	if err := insertSession(ctx, tx, session); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка подтверждения транзакции: %w", err)
	}
	return nil
}

func (r *SessionRepo) FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE refresh_token = $1`

	var s domain.Session
	err := r.db.QueryRow(ctx, query, refreshToken).Scan(
		&s.ID, &s.UserID, &s.RefreshToken, &s.UserAgent, &s.IP, &s.ExpiresAt, &s.CreatedAt,
	)
	if err != nil {
		if nf := notFound(err, "сессия не найдена"); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("ошибка получения сессии: %w", err)
	}

	return &s, nil
}

// Rotate replaces the session oldID with next in one transaction. Only one
// of two concurrent refreshes with the same token gets to delete the old
// row; the other receives ErrNotFound.
func (r *SessionRepo) Rotate(ctx context.Context, oldID string, next domain.Session) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, oldID)
	if err != nil {
		return fmt.Errorf("ошибка удаления сессии: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("сессия уже использована: %w", domain.ErrNotFound)
	}

	if err := insertSession(ctx, tx, next); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка подтверждения транзакции: %w", err)
	}
	return nil
}

func (r *SessionRepo) Revoke(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("ошибка удаления сессии: %w", err)
	}
	return nil
}

// RevokeAll ends every session of the user and reports how many were removed.
func (r *SessionRepo) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления сессий пользователя: %w", err)
	}
	return tag.RowsAffected(), nil
}
