package repository

import (
	"context"
	"fmt"
	"time"

	"docbook/internal/domain"
)

type AuthLogRepo struct {
	db DB
}

func NewAuthLogRepository(db DB) *AuthLogRepo {
	return &AuthLogRepo{
		db: db,
	}
}

func (r *AuthLogRepo) Create(ctx context.Context, log domain.AuthLog) error {
	query := `
		INSERT INTO auth_logs (user_id, login, event, success, details, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	createdAt := log.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.Exec(ctx, query,
		log.UserID,
		log.Login,
		log.Event,
		log.Success,
		log.Details,
		log.IP,
		log.UserAgent,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка записи журнала авторизации: %w", err)
	}

	return nil
}

func authLogConditions(filter domain.AuthLogFilter) *conditions {
	c := &conditions{}
	if filter.UserID != nil {
		c.add("user_id = $%d", *filter.UserID)
	}
	if filter.Event != nil {
		c.add("event = $%d", *filter.Event)
	}
	if filter.Success != nil {
		c.add("success = $%d", *filter.Success)
	}
	if filter.StartDate != nil {
		c.add("created_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		c.add("created_at <= $%d", *filter.EndDate)
	}
	return c
}

func (r *AuthLogRepo) List(ctx context.Context, filter domain.AuthLogFilter) ([]domain.AuthLog, error) {
	c := authLogConditions(filter)
	query := paginate(`
		SELECT id, user_id, login, event, success, details, ip, user_agent, created_at
		FROM auth_logs`+c.where()+` ORDER BY created_at DESC, id DESC`, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала авторизации: %w", err)
	}
	defer rows.Close()

	logs := make([]domain.AuthLog, 0)
	for rows.Next() {
		var log domain.AuthLog
		if err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.Login,
			&log.Event,
			&log.Success,
			&log.Details,
			&log.IP,
			&log.UserAgent,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи журнала: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", err)
	}

	return logs, nil
}

func (r *AuthLogRepo) CountByFilter(ctx context.Context, filter domain.AuthLogFilter) (int, error) {
	c := authLogConditions(filter)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM auth_logs`+c.where(), c.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета записей журнала: %w", err)
	}

	return count, nil
}
