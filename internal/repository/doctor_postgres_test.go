package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docbook/internal/domain"
	"docbook/internal/slots"
)

var doctorColumns = []string{
	"id", "user_id", "specialization", "bio", "experience_years", "consultation_fee",
	"photo_url", "schedule", "created_at", "updated_at",
	"u_id", "first_name", "last_name", "email", "phone", "role", "status", "is_verified", "u_created_at", "u_updated_at",
}

func TestDoctorRepo_GetByID_DecodesSchedule(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	schedule := []byte(`[{"day":"Monday","slots":[{"slotNumber":1,"startTime":"09:00","endTime":"09:15","isAvailable":true}]}]`)

	mock.ExpectQuery(`WHERE d.id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(doctorColumns).AddRow(
			int64(3), int64(8), "Cardiology", "", 12, 50.0, "", schedule, now, now,
			int64(8), "Bob", "Stone", "bob@example.com", "+15550002222", domain.UserRoleDoctor, domain.UserStatusActive, true, now, now,
		))

	doctor, err := NewDoctorRepository(mock).GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Bob", doctor.User.FirstName)
	require.Len(t, doctor.Schedule, 1)
	assert.Equal(t, slots.Monday, doctor.Schedule[0].Day)
	assert.Equal(t, 1, doctor.Schedule[0].Slots[0].SlotNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDoctorRepo_UpdateSchedule(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	week := slots.InitializeWeek(nil).Toggle(slots.Monday, 1)

	mock.ExpectExec("UPDATE doctors SET schedule").
		WithArgs([]byte(`[{"day":"Monday","slots":[{"slotNumber":1,"startTime":"09:00","endTime":"09:15","isAvailable":true}]}]`), pgxmock.AnyArg(), int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = NewDoctorRepository(mock).UpdateSchedule(context.Background(), 3, week.Persist())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDoctorRepo_UpdateSchedule_Missing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE doctors SET schedule").
		WithArgs([]byte(`[]`), pgxmock.AnyArg(), int64(404)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewDoctorRepository(mock).UpdateSchedule(context.Background(), 404, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDoctorRepo_Update_NoFields(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	err = NewDoctorRepository(mock).Update(context.Background(), 3, domain.UpdateDoctorDTO{})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDoctorRepo_List_OnlyActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	specialization := "Cardiology"

	mock.ExpectQuery(`WHERE u.status = \$1 AND d.specialization ILIKE \$2`).
		WithArgs(domain.UserStatusActive, specialization).
		WillReturnRows(pgxmock.NewRows(doctorColumns))

	doctors, err := NewDoctorRepository(mock).List(context.Background(), domain.DoctorFilter{Specialization: &specialization})
	require.NoError(t, err)
	assert.Empty(t, doctors)
	assert.NoError(t, mock.ExpectationsWereMet())
}
