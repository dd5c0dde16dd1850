package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"docbook/internal/domain"
	"docbook/internal/slots"
)

const doctorSelect = `
	SELECT d.id, d.user_id, d.specialization, d.bio, d.experience_years, d.consultation_fee,
	       d.photo_url, d.schedule, d.created_at, d.updated_at,
	       u.id, u.first_name, u.last_name, u.email, u.phone, u.role, u.status, u.is_verified, u.created_at, u.updated_at
	FROM doctors d
	JOIN users u ON d.user_id = u.id
`

type DoctorRepo struct {
	db DB
}

func NewDoctorRepository(db DB) *DoctorRepo {
	return &DoctorRepo{
		db: db,
	}
}

func (r *DoctorRepo) Create(ctx context.Context, userID int64, dto domain.CreateDoctorDTO) (int64, error) {
	query := `
		INSERT INTO doctors (user_id, specialization, bio, experience_years, consultation_fee, schedule, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query,
		userID,
		dto.Specialization,
		dto.Bio,
		dto.ExperienceYears,
		dto.ConsultationFee,
		[]byte("[]"),
		time.Now(),
	).Scan(&id)

	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("профиль врача для пользователя %d: %w", userID, domain.ErrAlreadyExists)
		}
		return 0, fmt.Errorf("ошибка создания профиля врача: %w", err)
	}

	return id, nil
}

func (r *DoctorRepo) GetByID(ctx context.Context, id int64) (*domain.Doctor, error) {
	return r.getOne(ctx, "d.id = $1", id, fmt.Sprintf("врач с id %d", id))
}

func (r *DoctorRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Doctor, error) {
	return r.getOne(ctx, "d.user_id = $1", userID, fmt.Sprintf("профиль врача пользователя %d", userID))
}

func (r *DoctorRepo) getOne(ctx context.Context, cond string, arg any, what string) (*domain.Doctor, error) {
	doctor, err := scanDoctor(r.db.QueryRow(ctx, doctorSelect+" WHERE "+cond, arg))
	if err != nil {
		if nf := notFound(err, what); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("ошибка получения врача: %w", err)
	}
	return doctor, nil
}

// Update writes the profile fields of dto. The Schedule field is ignored;
// schedules go through UpdateSchedule.
func (r *DoctorRepo) Update(ctx context.Context, id int64, dto domain.UpdateDoctorDTO) error {
	var sets []string
	var args []any

	if dto.Specialization != nil {
		args = append(args, *dto.Specialization)
		sets = append(sets, fmt.Sprintf("specialization = $%d", len(args)))
	}
	if dto.Bio != nil {
		args = append(args, *dto.Bio)
		sets = append(sets, fmt.Sprintf("bio = $%d", len(args)))
	}
	if dto.ExperienceYears != nil {
		args = append(args, *dto.ExperienceYears)
		sets = append(sets, fmt.Sprintf("experience_years = $%d", len(args)))
	}
	if dto.ConsultationFee != nil {
		args = append(args, *dto.ConsultationFee)
		sets = append(sets, fmt.Sprintf("consultation_fee = $%d", len(args)))
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, time.Now())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf("UPDATE doctors SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	return r.exec(ctx, id, "ошибка обновления профиля врача", query, args...)
}

func (r *DoctorRepo) UpdateSchedule(ctx context.Context, id int64, schedule slots.Schedule) error {
	if schedule == nil {
		schedule = slots.Schedule{}
	}

	raw, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("ошибка сериализации расписания: %w", err)
	}

	return r.exec(ctx, id, "ошибка сохранения расписания",
		`UPDATE doctors SET schedule = $1, updated_at = $2 WHERE id = $3`,
		raw, time.Now(), id)
}

func (r *DoctorRepo) UpdatePhoto(ctx context.Context, id int64, photoURL string) error {
	return r.exec(ctx, id, "ошибка обновления фото врача",
		`UPDATE doctors SET photo_url = $1, updated_at = $2 WHERE id = $3`,
		photoURL, time.Now(), id)
}

func (r *DoctorRepo) exec(ctx context.Context, id int64, failure, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", failure, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("врач с id %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// doctorConditions always restricts to active accounts: pending and blocked
// doctors are not listed to patients.
func doctorConditions(filter domain.DoctorFilter) *conditions {
	c := &conditions{}
	c.add("u.status = $%d", domain.UserStatusActive)
	if filter.Specialization != nil {
		c.add("d.specialization ILIKE $%d", *filter.Specialization)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		c.add("(u.first_name ILIKE $%[1]d OR u.last_name ILIKE $%[1]d OR d.specialization ILIKE $%[1]d)", "%"+search+"%")
	}
	return c
}

func (r *DoctorRepo) List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, error) {
	c := doctorConditions(filter)
	query := paginate(doctorSelect+c.where()+" ORDER BY u.last_name, u.first_name, d.id", filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка врачей: %w", err)
	}
	defer rows.Close()

	doctors := make([]domain.Doctor, 0)
	for rows.Next() {
		doctor, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования врача: %w", err)
		}
		doctors = append(doctors, *doctor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", err)
	}

	return doctors, nil
}

func (r *DoctorRepo) CountByFilter(ctx context.Context, filter domain.DoctorFilter) (int, error) {
	c := doctorConditions(filter)

	var count int
	query := `SELECT COUNT(*) FROM doctors d JOIN users u ON d.user_id = u.id` + c.where()
	if err := r.db.QueryRow(ctx, query, c.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета врачей: %w", err)
	}

	return count, nil
}

func scanDoctor(row pgx.Row) (*domain.Doctor, error) {
	var doctor domain.Doctor
	var schedule []byte

	err := row.Scan(
		&doctor.ID,
		&doctor.UserID,
		&doctor.Specialization,
		&doctor.Bio,
		&doctor.ExperienceYears,
		&doctor.ConsultationFee,
		&doctor.PhotoURL,
		&schedule,
		&doctor.CreatedAt,
		&doctor.UpdatedAt,
		&doctor.User.ID,
		&doctor.User.FirstName,
		&doctor.User.LastName,
		&doctor.User.Email,
		&doctor.User.Phone,
		&doctor.User.Role,
		&doctor.User.Status,
		&doctor.User.IsVerified,
		&doctor.User.CreatedAt,
		&doctor.User.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doctor.Schedule = slots.Schedule{}
	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &doctor.Schedule); err != nil {
			return nil, fmt.Errorf("ошибка чтения расписания врача %d: %w", doctor.ID, err)
		}
		if doctor.Schedule == nil {
			doctor.Schedule = slots.Schedule{}
		}
	}

	return &doctor, nil
}
