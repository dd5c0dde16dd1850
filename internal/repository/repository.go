package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"docbook/internal/domain"
	"docbook/internal/slots"
)

// DB is implemented by *pgxpool.Pool and by pgxmock pools in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repositories struct {
	User        UserRepository
	Session     SessionRepository
	AuthLog     AuthLogRepository
	Doctor      DoctorRepository
	Appointment AppointmentRepository
}

func NewRepositories(db DB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Session:     NewSessionRepository(db),
		AuthLog:     NewAuthLogRepository(db),
		Doctor:      NewDoctorRepository(db),
		Appointment: NewAppointmentRepository(db),
	}
}

type UserRepository interface {
	Create(ctx context.Context, user domain.CreateUserDTO) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	Update(ctx context.Context, id int64, user domain.UpdateUserDTO) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateStatus(ctx context.Context, id int64, status domain.UserStatus) error
	MarkVerified(ctx context.Context, id int64) error
	List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	CountByFilter(ctx context.Context, filter domain.UserFilter) (int, error)
	CountByRole(ctx context.Context) (map[domain.UserRole]int, error)
	CountByStatus(ctx context.Context) (map[domain.UserStatus]int, error)
}

type SessionRepository interface {
	Open(ctx context.Context, session domain.Session) error
	FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)
	// Rotate returns ErrNotFound when oldID was already consumed.
	Rotate(ctx context.Context, oldID string, next domain.Session) error
	Revoke(ctx context.Context, id string) error
	RevokeAll(ctx context.Context, userID int64) (int64, error)
}

type AuthLogRepository interface {
	Create(ctx context.Context, log domain.AuthLog) error
	List(ctx context.Context, filter domain.AuthLogFilter) ([]domain.AuthLog, error)
	CountByFilter(ctx context.Context, filter domain.AuthLogFilter) (int, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, userID int64, doctor domain.CreateDoctorDTO) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Doctor, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Doctor, error)
	Update(ctx context.Context, id int64, doctor domain.UpdateDoctorDTO) error
	// UpdateSchedule stores a schedule produced by Week.Persist.
	UpdateSchedule(ctx context.Context, id int64, schedule slots.Schedule) error
	UpdatePhoto(ctx context.Context, id int64, photoURL string) error
	List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, error)
	CountByFilter(ctx context.Context, filter domain.DoctorFilter) (int, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, appointment domain.Appointment) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	// UpdateStatus moves an appointment from one status to another; it
	// fails with ErrInvalidStatus when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id int64, from, to domain.AppointmentStatus, declineReason string) error
	BookedSlots(ctx context.Context, doctorID int64, date time.Time) ([]int, error)
	List(ctx context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error)
	CountByFilter(ctx context.Context, filter domain.AppointmentFilter) (int, error)
	CountByStatus(ctx context.Context) (map[domain.AppointmentStatus]int, error)
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// notFound maps pgx.ErrNoRows to a wrapped domain.ErrNotFound and returns nil
// for any other error.
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}

// conditions collects WHERE fragments with sequential placeholders.
type conditions struct {
	parts []string
	args  []any
}

func (c *conditions) add(expr string, arg any) {
	c.args = append(c.args, arg)
	c.parts = append(c.parts, fmt.Sprintf(expr, len(c.args)))
}

func (c *conditions) where() string {
	if len(c.parts) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.parts, " AND ")
}

func paginate(query string, limit, offset int) string {
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", offset)
	}
	return query
}
