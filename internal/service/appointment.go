package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"docbook/config"
	"docbook/internal/cache"
	"docbook/internal/domain"
	"docbook/internal/metrics"
	"docbook/internal/repository"
	"docbook/internal/slots"
)

type AppointmentServiceImpl struct {
	repo         repository.AppointmentRepository
	doctorRepo   repository.DoctorRepository
	availability AvailabilityCache
	notifier     Notifier
	booking      config.BookingConfig
	metrics      *metrics.Metrics
	now          func() time.Time
	logger       *zap.Logger
}

func NewAppointmentService(
	repo repository.AppointmentRepository,
	doctorRepo repository.DoctorRepository,
	availability AvailabilityCache,
	notifier Notifier,
	booking config.BookingConfig,
	m *metrics.Metrics,
	now func() time.Time,
	logger *zap.Logger,
) *AppointmentServiceImpl {
	if booking.Location == nil {
		booking.Location = time.UTC
	}
	return &AppointmentServiceImpl{
		repo:         repo,
		doctorRepo:   doctorRepo,
		availability: availability,
		notifier:     notifier,
		booking:      booking,
		metrics:      m,
		now:          now,
		logger:       logger,
	}
}

// parseBookingDate parses a YYYY-MM-DD date and checks it lies within
// today..today+HorizonDays in the booking time zone.
func (s *AppointmentServiceImpl) parseBookingDate(value string) (time.Time, error) {
	date, err := time.ParseInLocation(slots.DateLayout, value, s.booking.Location)
	if err != nil {
		return time.Time{}, domain.ErrInvalidDate
	}

	now := s.now().In(s.booking.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.booking.Location)
	last := today.AddDate(0, 0, s.booking.HorizonDays)

	if date.Before(today) || date.After(last) {
		return time.Time{}, fmt.Errorf("%s вне периода %s..%s: %w",
			value, today.Format(slots.DateLayout), last.Format(slots.DateLayout), domain.ErrOutsideHorizon)
	}

	return date, nil
}

func (s *AppointmentServiceImpl) activeDoctor(ctx context.Context, doctorID int64) (*domain.Doctor, error) {
	doctor, err := s.doctorRepo.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor.User.Status != domain.UserStatusActive {
		return nil, fmt.Errorf("врач с id %d: %w", doctorID, domain.ErrNotFound)
	}
	return doctor, nil
}

func (s *AppointmentServiceImpl) compute(ctx context.Context, doctor *domain.Doctor, date time.Time) (slots.AvailabilityResult, error) {
	booked, err := s.repo.BookedSlots(ctx, doctor.ID, date)
	if err != nil {
		s.logger.Error("ошибка получения занятых слотов", zap.Int64("doctorId", doctor.ID), zap.Error(err))
		return slots.AvailabilityResult{}, errors.New("ошибка при получении свободных слотов")
	}
	return slots.Bookable(doctor.Schedule, date, booked), nil
}

func (s *AppointmentServiceImpl) AvailableSlots(ctx context.Context, doctorID int64, date string) (*slots.AvailabilityResult, error) {
	day, err := s.parseBookingDate(date)
	if err != nil {
		return nil, err
	}

	doctor, err := s.activeDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	cached, err := s.availability.Get(ctx, doctorID, date)
	if err == nil {
		s.metrics.ObserveAvailabilityLookup(true)
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("ошибка чтения кэша доступности", zap.Int64("doctorId", doctorID), zap.Error(err))
	}
	s.metrics.ObserveAvailabilityLookup(false)

	result, err := s.compute(ctx, doctor, day)
	if err != nil {
		return nil, err
	}

	if err := s.availability.Set(ctx, doctorID, result); err != nil {
		s.logger.Warn("ошибка записи кэша доступности", zap.Int64("doctorId", doctorID), zap.Error(err))
	}

	return &result, nil
}

// Book creates a pending appointment for a slot from the bookable set. The
// slot is identified by number only; its times are taken from the catalog.
func (s *AppointmentServiceImpl) Book(ctx context.Context, patientID int64, dto domain.CreateAppointmentDTO) (*domain.Appointment, error) {
	date, err := s.parseBookingDate(dto.Date)
	if err != nil {
		return nil, err
	}

	doctor, err := s.activeDoctor(ctx, dto.DoctorID)
	if err != nil {
		return nil, err
	}

	if doctor.UserID == patientID {
		return nil, fmt.Errorf("запись к самому себе: %w", domain.ErrForbidden)
	}

	available, err := s.compute(ctx, doctor, date)
	if err != nil {
		s.metrics.ObserveBooking("error")
		return nil, err
	}

	if !available.Contains(dto.SlotNumber) {
		s.metrics.ObserveBooking("unavailable")
		return nil, fmt.Errorf("слот %d на %s: %w", dto.SlotNumber, dto.Date, domain.ErrSlotUnavailable)
	}

	slot, _ := slots.Lookup(dto.SlotNumber)
	if (dto.StartTime != "" && dto.StartTime != slot.StartTime) || (dto.EndTime != "" && dto.EndTime != slot.EndTime) {
		s.logger.Info("время слота в запросе не совпадает с каталогом",
			zap.Int("slotNumber", slot.SlotNumber),
			zap.String("startTime", dto.StartTime),
			zap.String("endTime", dto.EndTime))
	}

	id, err := s.repo.Create(ctx, domain.Appointment{
		PatientID:  patientID,
		DoctorID:   doctor.ID,
		Date:       date,
		SlotNumber: slot.SlotNumber,
		StartTime:  slot.StartTime,
		EndTime:    slot.EndTime,
		Status:     domain.AppointmentStatusPending,
		Reason:     dto.Reason,
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlotTaken) {
			s.metrics.ObserveBooking("taken")
			s.invalidate(ctx, doctor.ID, date)
			return nil, err
		}
		s.metrics.ObserveBooking("error")
		s.logger.Error("ошибка создания записи", zap.Error(err))
		return nil, errors.New("ошибка при создании записи")
	}

	s.metrics.ObserveBooking("created")
	s.invalidate(ctx, doctor.ID, date)

	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("ошибка получения созданной записи", zap.Int64("id", id), zap.Error(err))
		return nil, errors.New("ошибка при создании записи")
	}

	s.notify(appointment, doctor.UserID)

	s.logger.Info("создана запись",
		zap.Int64("id", id),
		zap.Int64("doctorId", doctor.ID),
		zap.Int64("patientId", patientID),
		zap.String("date", dto.Date),
		zap.Int("slotNumber", slot.SlotNumber))

	return appointment, nil
}

func (s *AppointmentServiceImpl) Approve(ctx context.Context, doctorUserID, id int64) (*domain.Appointment, error) {
	return s.transitionAsDoctor(ctx, doctorUserID, id, domain.AppointmentStatusApproved, "")
}

func (s *AppointmentServiceImpl) Decline(ctx context.Context, doctorUserID, id int64, reason string) (*domain.Appointment, error) {
	return s.transitionAsDoctor(ctx, doctorUserID, id, domain.AppointmentStatusDeclined, reason)
}

func (s *AppointmentServiceImpl) Complete(ctx context.Context, doctorUserID, id int64) (*domain.Appointment, error) {
	return s.transitionAsDoctor(ctx, doctorUserID, id, domain.AppointmentStatusCompleted, "")
}

func (s *AppointmentServiceImpl) Cancel(ctx context.Context, patientID, id int64) (*domain.Appointment, error) {
	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appointment.PatientID != patientID {
		return nil, domain.ErrForbidden
	}

	doctor, err := s.doctorRepo.GetByID(ctx, appointment.DoctorID)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, appointment, doctor, domain.AppointmentStatusCancelled, "")
}

func (s *AppointmentServiceImpl) transitionAsDoctor(ctx context.Context, doctorUserID, id int64, to domain.AppointmentStatus, reason string) (*domain.Appointment, error) {
	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	doctor, err := s.doctorRepo.GetByID(ctx, appointment.DoctorID)
	if err != nil {
		return nil, err
	}

	if doctor.UserID != doctorUserID {
		return nil, domain.ErrForbidden
	}

	return s.transition(ctx, appointment, doctor, to, reason)
}

func (s *AppointmentServiceImpl) transition(ctx context.Context, appointment *domain.Appointment, doctor *domain.Doctor, to domain.AppointmentStatus, reason string) (*domain.Appointment, error) {
	from := appointment.Status
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%s -> %s: %w", from, to, domain.ErrInvalidStatus)
	}

	if err := s.repo.UpdateStatus(ctx, appointment.ID, from, to, reason); err != nil {
		if errors.Is(err, domain.ErrInvalidStatus) {
			return nil, err
		}
		s.logger.Error("ошибка обновления статуса записи", zap.Int64("id", appointment.ID), zap.Error(err))
		return nil, errors.New("ошибка при обновлении записи")
	}

	s.metrics.ObserveTransition(string(to))

	if from.HoldsSlot() != to.HoldsSlot() {
		s.invalidate(ctx, appointment.DoctorID, appointment.Date)
	}

	appointment.Status = to
	if reason != "" {
		appointment.DeclineReason = reason
	}
	appointment.UpdatedAt = s.now()

	s.notify(appointment, doctor.UserID)

	s.logger.Info("статус записи изменен",
		zap.Int64("id", appointment.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	return appointment, nil
}

func (s *AppointmentServiceImpl) GetByID(ctx context.Context, userID int64, role domain.UserRole, id int64) (*domain.Appointment, error) {
	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch role {
	case domain.UserRoleAdmin:
		return appointment, nil
	case domain.UserRolePatient:
		if appointment.PatientID == userID {
			return appointment, nil
		}
	case domain.UserRoleDoctor:
		doctor, err := s.doctorRepo.GetByUserID(ctx, userID)
		if err == nil && doctor.ID == appointment.DoctorID {
			return appointment, nil
		}
	}

	return nil, domain.ErrForbidden
}

// List scopes the filter to the caller: patients see their own bookings and
// doctors the bookings made with them.
func (s *AppointmentServiceImpl) List(ctx context.Context, userID int64, role domain.UserRole, filter domain.AppointmentFilter) ([]domain.Appointment, int, error) {
	switch role {
	case domain.UserRolePatient:
		filter.PatientID = &userID
	case domain.UserRoleDoctor:
		doctor, err := s.doctorRepo.GetByUserID(ctx, userID)
		if err != nil {
			return nil, 0, err
		}
		filter.DoctorID = &doctor.ID
	case domain.UserRoleAdmin:
	default:
		return nil, 0, domain.ErrForbidden
	}

	appointments, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка получения списка записей", zap.Error(err))
		return nil, 0, errors.New("ошибка при получении списка записей")
	}

	total, err := s.repo.CountByFilter(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка подсчета записей", zap.Error(err))
		return nil, 0, errors.New("ошибка при получении списка записей")
	}

	return appointments, total, nil
}

func (s *AppointmentServiceImpl) invalidate(ctx context.Context, doctorID int64, date time.Time) {
	if err := s.availability.Invalidate(ctx, doctorID, date.Format(slots.DateLayout)); err != nil {
		s.logger.Warn("ошибка сброса кэша доступности", zap.Int64("doctorId", doctorID), zap.Error(err))
	}
}

func (s *AppointmentServiceImpl) notify(a *domain.Appointment, doctorUserID int64) {
	s.notifier.NotifyAppointment(domain.AppointmentEvent{
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		DoctorUserID:  doctorUserID,
		Date:          a.Date.Format(slots.DateLayout),
		SlotNumber:    a.SlotNumber,
		Status:        a.Status,
		OccurredAt:    s.now(),
	})
}
