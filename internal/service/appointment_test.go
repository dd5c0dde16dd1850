package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docbook/internal/domain"
	"docbook/internal/slots"
)

const nextMonday = "2026-10-19"

func slotNumbersOf(result *slots.AvailabilityResult) []int {
	out := make([]int, 0, len(result.AvailableSlots))
	for _, s := range result.AvailableSlots {
		out = append(out, s.SlotNumber)
	}
	return out
}

func TestAppointmentService_AvailableSlotsExcludesBooked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, doctorID := f.addDoctor(t, 1, 2, 3)
	patientID := f.addPatient(t)

	_, err := f.services.Appointment.Book(ctx, patientID, domain.CreateAppointmentDTO{
		DoctorID: doctorID, Date: nextMonday, SlotNumber: 2,
	})
	require.NoError(t, err)

	result, err := f.services.Appointment.AvailableSlots(ctx, doctorID, nextMonday)
	require.NoError(t, err)

	assert.Equal(t, slots.Monday, result.DayOfWeek)
	assert.Equal(t, []int{1, 3}, slotNumbersOf(result))
	assert.Equal(t, "09:00", result.AvailableSlots[0].StartTime)
	assert.Equal(t, "09:30", result.AvailableSlots[1].StartTime)
}

func TestAppointmentService_AvailableSlotsNoHours(t *testing.T) {
	f := newFixture(t)
	_, doctorID := f.addDoctor(t, 1)

	result, err := f.services.Appointment.AvailableSlots(context.Background(), doctorID, "2026-10-20")
	require.NoError(t, err)

	assert.Equal(t, slots.Tuesday, result.DayOfWeek)
	assert.NotNil(t, result.AvailableSlots)
	assert.Empty(t, result.AvailableSlots)
}

func TestAppointmentService_AvailableSlotsCachedUntilBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, doctorID := f.addDoctor(t, 1, 2)
	patientID := f.addPatient(t)

	first, err := f.services.Appointment.AvailableSlots(ctx, doctorID, nextMonday)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, slotNumbersOf(first))
	assert.True(t, f.redis.Exists("availability:1:"+nextMonday))

	_, err = f.services.Appointment.Book(ctx, patientID, domain.CreateAppointmentDTO{
		DoctorID: doctorID, Date: nextMonday, SlotNumber: 1,
	})
	require.NoError(t, err)
	assert.False(t, f.redis.Exists("availability:1:"+nextMonday))

	second, err := f.services.Appointment.AvailableSlots(ctx, doctorID, nextMonday)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, slotNumbersOf(second))
}

func TestAppointmentService_DateValidation(t *testing.T) {
	f := newFixture(t)
	_, doctorID := f.addDoctor(t, 1)

	tests := []struct {
		name string
		date string
		err  error
	}{
		{name: "malformed", date: "19.10.2026", err: domain.ErrInvalidDate},
		{name: "yesterday", date: "2026-10-16", err: domain.ErrOutsideHorizon},
		{name: "past horizon", date: "2026-10-25", err: domain.ErrOutsideHorizon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.services.Appointment.AvailableSlots(context.Background(), doctorID, tt.date)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	t.Run("today and last day allowed", func(t *testing.T) {
		for _, date := range []string{"2026-10-17", "2026-10-24"} {
			_, err := f.services.Appointment.AvailableSlots(context.Background(), doctorID, date)
			assert.NoError(t, err, date)
		}
	})
}

func TestAppointmentService_Book(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doctorUserID, doctorID := f.addDoctor(t, 1, 2, 3)
	patientID := f.addPatient(t)

	appointment, err := f.services.Appointment.Book(ctx, patientID, domain.CreateAppointmentDTO{
		DoctorID:   doctorID,
		Date:       nextMonday,
		SlotNumber: 3,
		StartTime:  "9:30 AM",
		Reason:     "checkup",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.AppointmentStatusPending, appointment.Status)
	assert.Equal(t, 3, appointment.SlotNumber)
	assert.Equal(t, "09:30", appointment.StartTime)
	assert.Equal(t, "09:45", appointment.EndTime)

	require.Len(t, f.notifier.events, 1)
	event := f.notifier.events[0]
	assert.Equal(t, appointment.ID, event.AppointmentID)
	assert.Equal(t, doctorUserID, event.DoctorUserID)
	assert.Equal(t, nextMonday, event.Date)
}

func TestAppointmentService_BookRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doctorUserID, doctorID := f.addDoctor(t, 1, 2)
	patientID := f.addPatient(t)
	other := f.addPatient(t)

	_, err := f.services.Appointment.Book(ctx, patientID, domain.CreateAppointmentDTO{DoctorID: doctorID, Date: nextMonday, SlotNumber: 1})
	require.NoError(t, err)

	t.Run("already booked", func(t *testing.T) {
		_, err := f.services.Appointment.Book(ctx, other, domain.CreateAppointmentDTO{DoctorID: doctorID, Date: nextMonday, SlotNumber: 1})
		assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	})

	t.Run("outside working hours", func(t *testing.T) {
		_, err := f.services.Appointment.Book(ctx, other, domain.CreateAppointmentDTO{DoctorID: doctorID, Date: nextMonday, SlotNumber: 30})
		assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	})

	t.Run("not in catalog", func(t *testing.T) {
		_, err := f.services.Appointment.Book(ctx, other, domain.CreateAppointmentDTO{DoctorID: doctorID, Date: nextMonday, SlotNumber: 99})
		assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	})

	t.Run("own calendar", func(t *testing.T) {
		_, err := f.services.Appointment.Book(ctx, doctorUserID, domain.CreateAppointmentDTO{DoctorID: doctorID, Date: nextMonday, SlotNumber: 2})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("unknown doctor", func(t *testing.T) {
		_, err := f.services.Appointment.Book(ctx, other, domain.CreateAppointmentDTO{DoctorID: 42, Date: nextMonday, SlotNumber: 2})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("blocked doctor", func(t *testing.T) {
		require.NoError(t, f.users.UpdateStatus(ctx, doctorUserID, domain.UserStatusBlocked))
		defer func() { _ = f.users.UpdateStatus(ctx, doctorUserID, domain.UserStatusActive) }()

		_, err := f.services.Appointment.Book(ctx, other, domain.CreateAppointmentDTO{DoctorID: doctorID, Date: nextMonday, SlotNumber: 2})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// slotStealer books the slot behind the service's back after availability
// was computed, the way a concurrent request would.
type slotStealer struct {
	*fakeAppointments
	stolen bool
}

func (s *slotStealer) BookedSlots(ctx context.Context, doctorID int64, date time.Time) ([]int, error) {
	booked, err := s.fakeAppointments.BookedSlots(ctx, doctorID, date)
	if !s.stolen {
		s.stolen = true
		_, _ = s.fakeAppointments.Create(ctx, domain.Appointment{
			PatientID: 999, DoctorID: doctorID, Date: date, SlotNumber: 1, Status: domain.AppointmentStatusPending,
		})
	}
	return booked, err
}

func TestAppointmentService_BookLosesRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, doctorID := f.addDoctor(t, 1)
	patientID := f.addPatient(t)

	svc := NewAppointmentService(&slotStealer{fakeAppointments: f.appointments}, f.doctors,
		noopAvailability{}, f.notifier, f.cfg.Booking, nil, func() time.Time { return fixtureNow }, zap.NewNop())

	_, err := svc.Book(ctx, patientID, domain.CreateAppointmentDTO{DoctorID: doctorID, Date: nextMonday, SlotNumber: 1})
	assert.ErrorIs(t, err, domain.ErrSlotTaken)
	assert.Empty(t, f.notifier.events)
}

func TestAppointmentService_Transitions(t *testing.T) {
	ctx := context.Background()

	book := func(t *testing.T, f *fixture, doctorID, patientID int64, slot int) *domain.Appointment {
		t.Helper()
		a, err := f.services.Appointment.Book(ctx, patientID, domain.CreateAppointmentDTO{DoctorID: doctorID, Date: nextMonday, SlotNumber: slot})
		require.NoError(t, err)
		return a
	}

	t.Run("approve then complete", func(t *testing.T) {
		f := newFixture(t)
		doctorUserID, doctorID := f.addDoctor(t, 1)
		patientID := f.addPatient(t)
		a := book(t, f, doctorID, patientID, 1)

		approved, err := f.services.Appointment.Approve(ctx, doctorUserID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AppointmentStatusApproved, approved.Status)

		completed, err := f.services.Appointment.Complete(ctx, doctorUserID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AppointmentStatusCompleted, completed.Status)

		_, err = f.services.Appointment.Cancel(ctx, patientID, a.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	})

	t.Run("decline frees the slot", func(t *testing.T) {
		f := newFixture(t)
		doctorUserID, doctorID := f.addDoctor(t, 1)
		patientID := f.addPatient(t)
		a := book(t, f, doctorID, patientID, 1)

		declined, err := f.services.Appointment.Decline(ctx, doctorUserID, a.ID, "on leave")
		require.NoError(t, err)
		assert.Equal(t, "on leave", declined.DeclineReason)

		result, err := f.services.Appointment.AvailableSlots(ctx, doctorID, nextMonday)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, slotNumbersOf(result))

		book(t, f, doctorID, f.addPatient(t), 1)
	})

	t.Run("cancel by patient only", func(t *testing.T) {
		f := newFixture(t)
		doctorUserID, doctorID := f.addDoctor(t, 1)
		patientID := f.addPatient(t)
		a := book(t, f, doctorID, patientID, 1)

		_, err := f.services.Appointment.Cancel(ctx, f.addPatient(t), a.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)

		_, err = f.services.Appointment.Cancel(ctx, doctorUserID, a.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)

		cancelled, err := f.services.Appointment.Cancel(ctx, patientID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AppointmentStatusCancelled, cancelled.Status)
		assert.Len(t, f.notifier.events, 2)
	})

	t.Run("other doctor cannot approve", func(t *testing.T) {
		f := newFixture(t)
		_, doctorID := f.addDoctor(t, 1)
		otherDoctorUserID, _ := f.addDoctor(t, 1)
		a := book(t, f, doctorID, f.addPatient(t), 1)

		_, err := f.services.Appointment.Approve(ctx, otherDoctorUserID, a.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("pending cannot complete", func(t *testing.T) {
		f := newFixture(t)
		doctorUserID, doctorID := f.addDoctor(t, 1)
		a := book(t, f, doctorID, f.addPatient(t), 1)

		_, err := f.services.Appointment.Complete(ctx, doctorUserID, a.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	})
}

func TestAppointmentService_AccessByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doctorUserID, doctorID := f.addDoctor(t, 1, 2)
	patientID := f.addPatient(t)
	stranger := f.addPatient(t)

	a, err := f.services.Appointment.Book(ctx, patientID, domain.CreateAppointmentDTO{DoctorID: doctorID, Date: nextMonday, SlotNumber: 1})
	require.NoError(t, err)

	_, err = f.services.Appointment.GetByID(ctx, patientID, domain.UserRolePatient, a.ID)
	assert.NoError(t, err)
	_, err = f.services.Appointment.GetByID(ctx, doctorUserID, domain.UserRoleDoctor, a.ID)
	assert.NoError(t, err)
	_, err = f.services.Appointment.GetByID(ctx, 100, domain.UserRoleAdmin, a.ID)
	assert.NoError(t, err)
	_, err = f.services.Appointment.GetByID(ctx, stranger, domain.UserRolePatient, a.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	list, total, err := f.services.Appointment.List(ctx, stranger, domain.UserRolePatient, domain.AppointmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)

	list, total, err = f.services.Appointment.List(ctx, doctorUserID, domain.UserRoleDoctor, domain.AppointmentFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
}
