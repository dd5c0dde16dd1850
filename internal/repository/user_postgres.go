package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"docbook/internal/domain"
)

const userColumns = `id, first_name, last_name, email, phone, password_hash, role, status, is_verified, created_at, updated_at`

type UserRepo struct {
	db DB
}

func NewUserRepository(db DB) *UserRepo {
	return &UserRepo{
		db: db,
	}
}

func (r *UserRepo) Create(ctx context.Context, dto domain.CreateUserDTO) (int64, error) {
	query := `
		INSERT INTO users (first_name, last_name, email, phone, password_hash, role, status, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(
		ctx,
		query,
		dto.FirstName,
		dto.LastName,
		dto.Email,
		dto.Phone,
		dto.PasswordHash,
		dto.Role,
		dto.Status,
		false,
		time.Now(),
	).Scan(&id)

	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("пользователь с таким email или телефоном: %w", domain.ErrAlreadyExists)
		}
		return 0, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	return id, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, "id = $1", id, fmt.Sprintf("пользователь с id %d", id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "LOWER(email) = LOWER($1)", email, fmt.Sprintf("пользователь с email %s", email))
}

func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.getOne(ctx, "phone = $1", phone, fmt.Sprintf("пользователь с телефоном %s", phone))
}

func (r *UserRepo) getOne(ctx context.Context, cond string, arg any, what string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + cond

	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if nf := notFound(err, what); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}

	return user, nil
}

func (r *UserRepo) Update(ctx context.Context, id int64, dto domain.UpdateUserDTO) error {
	var sets []string
	var args []any

	if dto.FirstName != nil {
		args = append(args, *dto.FirstName)
		sets = append(sets, fmt.Sprintf("first_name = $%d", len(args)))
	}
	if dto.LastName != nil {
		args = append(args, *dto.LastName)
		sets = append(sets, fmt.Sprintf("last_name = $%d", len(args)))
	}
	if dto.Phone != nil {
		args = append(args, *dto.Phone)
		sets = append(sets, fmt.Sprintf("phone = $%d", len(args)))
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, time.Now())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("пользователь с таким телефоном: %w", domain.ErrAlreadyExists)
		}
		return fmt.Errorf("ошибка обновления пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("пользователь с id %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.exec(ctx, id, "ошибка обновления пароля",
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		passwordHash, time.Now(), id)
}

func (r *UserRepo) UpdateStatus(ctx context.Context, id int64, status domain.UserStatus) error {
	return r.exec(ctx, id, "ошибка обновления статуса пользователя",
		`UPDATE users SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), id)
}

func (r *UserRepo) MarkVerified(ctx context.Context, id int64) error {
	return r.exec(ctx, id, "ошибка подтверждения пользователя",
		`UPDATE users SET is_verified = TRUE, updated_at = $1 WHERE id = $2`,
		time.Now(), id)
}

func (r *UserRepo) exec(ctx context.Context, id int64, failure, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", failure, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("пользователь с id %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func userConditions(filter domain.UserFilter) *conditions {
	c := &conditions{}
	if filter.Role != nil {
		c.add("role = $%d", *filter.Role)
	}
	if filter.Status != nil {
		c.add("status = $%d", *filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		c.add("(first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d OR email ILIKE $%[1]d OR phone ILIKE $%[1]d)", "%"+search+"%")
	}
	return c
}

func (r *UserRepo) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	c := userConditions(filter)
	query := paginate(`SELECT `+userColumns+` FROM users`+c.where()+` ORDER BY created_at DESC, id DESC`, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", err)
	}

	return users, nil
}

func (r *UserRepo) CountByFilter(ctx context.Context, filter domain.UserFilter) (int, error) {
	c := userConditions(filter)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+c.where(), c.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета пользователей: %w", err)
	}

	return count, nil
}

func (r *UserRepo) CountByRole(ctx context.Context) (map[domain.UserRole]int, error) {
	counts := make(map[domain.UserRole]int)
	err := groupCount(ctx, r.db, `SELECT role, COUNT(*) FROM users GROUP BY role`, func(key string, n int) {
		counts[domain.UserRole(key)] = n
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета пользователей по ролям: %w", err)
	}
	return counts, nil
}

func (r *UserRepo) CountByStatus(ctx context.Context) (map[domain.UserStatus]int, error) {
	counts := make(map[domain.UserStatus]int)
	err := groupCount(ctx, r.db, `SELECT status, COUNT(*) FROM users GROUP BY status`, func(key string, n int) {
		counts[domain.UserStatus(key)] = n
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета пользователей по статусам: %w", err)
	}
	return counts, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func groupCount(ctx context.Context, db DB, query string, put func(key string, n int)) error {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		put(key, n)
	}

	return rows.Err()
}
