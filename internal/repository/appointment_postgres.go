package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"docbook/internal/domain"
)

const appointmentSelect = `
	SELECT a.id, a.patient_id, a.doctor_id, a.date, a.slot_number, a.start_time, a.end_time,
	       a.status, a.reason, a.decline_reason, a.created_at, a.updated_at,
	       pu.first_name || ' ' || pu.last_name AS patient_name, pu.phone AS patient_phone,
	       du.first_name || ' ' || du.last_name AS doctor_name
	FROM appointments a
	JOIN users pu ON a.patient_id = pu.id
	JOIN doctors d ON a.doctor_id = d.id
	JOIN users du ON d.user_id = du.id
`

type AppointmentRepo struct {
	db DB
}

func NewAppointmentRepository(db DB) *AppointmentRepo {
	return &AppointmentRepo{
		db: db,
	}
}

// Create inserts a pending appointment. A concurrent booking of the same
// doctor, date and slot loses on the partial unique index and gets
// ErrSlotTaken.
func (r *AppointmentRepo) Create(ctx context.Context, a domain.Appointment) (int64, error) {
	query := `
		INSERT INTO appointments (patient_id, doctor_id, date, slot_number, start_time, end_time, status, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`

	status := a.Status
	if status == "" {
		status = domain.AppointmentStatusPending
	}

	var id int64
	err := r.db.QueryRow(ctx, query,
		a.PatientID,
		a.DoctorID,
		a.Date,
		a.SlotNumber,
		a.StartTime,
		a.EndTime,
		status,
		a.Reason,
		time.Now(),
	).Scan(&id)

	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrSlotTaken
		}
		return 0, fmt.Errorf("ошибка создания записи: %w", err)
	}

	return id, nil
}

func (r *AppointmentRepo) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	appointment, err := scanAppointment(r.db.QueryRow(ctx, appointmentSelect+" WHERE a.id = $1", id))
	if err != nil {
		if nf := notFound(err, fmt.Sprintf("запись с id %d", id)); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}

	return appointment, nil
}

func (r *AppointmentRepo) UpdateStatus(ctx context.Context, id int64, from, to domain.AppointmentStatus, declineReason string) error {
	query := `
		UPDATE appointments
		SET status = $1, decline_reason = COALESCE(NULLIF($2, ''), decline_reason), updated_at = $3
		WHERE id = $4 AND status = $5
	`

	tag, err := r.db.Exec(ctx, query, to, declineReason, time.Now(), id, from)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса записи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("запись %d не в статусе %s: %w", id, from, domain.ErrInvalidStatus)
	}

	return nil
}

// BookedSlots returns the slot numbers held on date by pending or approved
// appointments.
func (r *AppointmentRepo) BookedSlots(ctx context.Context, doctorID int64, date time.Time) ([]int, error) {
	query := `
		SELECT slot_number
		FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND status IN ($3, $4)
		ORDER BY slot_number
	`

	rows, err := r.db.Query(ctx, query, doctorID, date,
		domain.AppointmentStatusPending, domain.AppointmentStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения занятых слотов: %w", err)
	}
	defer rows.Close()

	booked := make([]int, 0)
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("ошибка сканирования слота: %w", err)
		}
		booked = append(booked, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", err)
	}

	return booked, nil
}

func appointmentConditions(filter domain.AppointmentFilter) *conditions {
	c := &conditions{}
	if filter.PatientID != nil {
		c.add("a.patient_id = $%d", *filter.PatientID)
	}
	if filter.DoctorID != nil {
		c.add("a.doctor_id = $%d", *filter.DoctorID)
	}
	if filter.Status != nil {
		c.add("a.status = $%d", *filter.Status)
	}
	if filter.StartDate != nil {
		c.add("a.date >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		c.add("a.date <= $%d", *filter.EndDate)
	}
	return c
}

func (r *AppointmentRepo) List(ctx context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error) {
	c := appointmentConditions(filter)
	query := paginate(appointmentSelect+c.where()+" ORDER BY a.date DESC, a.slot_number DESC", filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	appointments := make([]domain.Appointment, 0)
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования результатов: %w", err)
		}
		appointments = append(appointments, *appointment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", err)
	}

	return appointments, nil
}

func (r *AppointmentRepo) CountByFilter(ctx context.Context, filter domain.AppointmentFilter) (int, error) {
	c := appointmentConditions(filter)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM appointments a`+c.where(), c.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета записей: %w", err)
	}

	return count, nil
}

func (r *AppointmentRepo) CountByStatus(ctx context.Context) (map[domain.AppointmentStatus]int, error) {
	counts := make(map[domain.AppointmentStatus]int)
	err := groupCount(ctx, r.db, `SELECT status, COUNT(*) FROM appointments GROUP BY status`, func(key string, n int) {
		counts[domain.AppointmentStatus(key)] = n
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета записей по статусам: %w", err)
	}
	return counts, nil
}

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var a domain.Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&a.SlotNumber,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.Reason,
		&a.DeclineReason,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.PatientName,
		&a.PatientPhone,
		&a.DoctorName,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
