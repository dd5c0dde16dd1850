package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"docbook/internal/cache"
	"docbook/internal/domain"
	"docbook/internal/metrics"
	"docbook/internal/repository"
	"docbook/internal/slots"
	"docbook/internal/storage"
)

const photoPrefix = "doctors"

type DoctorServiceImpl struct {
	repo         repository.DoctorRepository
	userRepo     repository.UserRepository
	drafts       DraftStore
	availability AvailabilityCache
	fileStorage  storage.FileStorage
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

func NewDoctorService(
	repo repository.DoctorRepository,
	userRepo repository.UserRepository,
	drafts DraftStore,
	availability AvailabilityCache,
	fileStorage storage.FileStorage,
	m *metrics.Metrics,
	logger *zap.Logger,
) *DoctorServiceImpl {
	return &DoctorServiceImpl{
		repo:         repo,
		userRepo:     userRepo,
		drafts:       drafts,
		availability: availability,
		fileStorage:  fileStorage,
		metrics:      m,
		logger:       logger,
	}
}

func (s *DoctorServiceImpl) List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, int, error) {
	doctors, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка получения списка врачей", zap.Error(err))
		return nil, 0, errors.New("ошибка при получении списка врачей")
	}

	total, err := s.repo.CountByFilter(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка подсчета врачей", zap.Error(err))
		return nil, 0, errors.New("ошибка при получении списка врачей")
	}

	return doctors, total, nil
}

func (s *DoctorServiceImpl) GetByID(ctx context.Context, id int64) (*domain.Doctor, error) {
	doctor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doctor.User.Status != domain.UserStatusActive {
		return nil, fmt.Errorf("врач с id %d: %w", id, domain.ErrNotFound)
	}
	return doctor, nil
}

func (s *DoctorServiceImpl) GetByUserID(ctx context.Context, userID int64) (*domain.Doctor, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *DoctorServiceImpl) CreateProfile(ctx context.Context, userID int64, dto domain.CreateDoctorDTO) (int64, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	if user.Role != domain.UserRoleDoctor {
		return 0, fmt.Errorf("профиль врача доступен только врачам: %w", domain.ErrForbidden)
	}

	id, err := s.repo.Create(ctx, userID, dto)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return 0, err
		}
		s.logger.Error("ошибка создания профиля врача", zap.Int64("userId", userID), zap.Error(err))
		return 0, errors.New("ошибка при создании профиля врача")
	}

	s.logger.Info("создан профиль врача", zap.Int64("doctorId", id), zap.Int64("userId", userID))

	return id, nil
}

// UpdateProfile applies profile fields and, when present, replaces the
// weekly schedule with the persisted form of the submitted week.
func (s *DoctorServiceImpl) UpdateProfile(ctx context.Context, userID int64, dto domain.UpdateDoctorDTO) error {
	doctor, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Update(ctx, doctor.ID, dto); err != nil {
		s.logger.Error("ошибка обновления профиля врача", zap.Int64("doctorId", doctor.ID), zap.Error(err))
		return errors.New("ошибка при обновлении профиля врача")
	}

	if dto.Schedule != nil {
		if _, err := s.storeSchedule(ctx, doctor.ID, slots.InitializeWeek(*dto.Schedule)); err != nil {
			return err
		}
	}

	return nil
}

func (s *DoctorServiceImpl) storeSchedule(ctx context.Context, doctorID int64, week slots.Week) (slots.Schedule, error) {
	schedule := week.Persist()

	if err := s.repo.UpdateSchedule(ctx, doctorID, schedule); err != nil {
		s.logger.Error("ошибка сохранения расписания", zap.Int64("doctorId", doctorID), zap.Error(err))
		return nil, errors.New("ошибка при сохранении расписания")
	}

	if err := s.drafts.Delete(ctx, doctorID); err != nil {
		s.logger.Warn("ошибка удаления черновика расписания", zap.Int64("doctorId", doctorID), zap.Error(err))
	}
	if err := s.availability.InvalidateDoctor(ctx, doctorID); err != nil {
		s.logger.Warn("ошибка сброса кэша доступности", zap.Int64("doctorId", doctorID), zap.Error(err))
	}

	s.logger.Info("расписание сохранено", zap.Int64("doctorId", doctorID), zap.Int("slots", schedule.SlotCount()))

	return schedule, nil
}

// editingWeek returns the doctor's draft, or the persisted schedule
// rehydrated into a full week when there is no draft.
func (s *DoctorServiceImpl) editingWeek(ctx context.Context, doctor *domain.Doctor) (slots.Week, bool, error) {
	week, err := s.drafts.Load(ctx, doctor.ID)
	if err == nil {
		return week, true, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Error("ошибка чтения черновика расписания", zap.Int64("doctorId", doctor.ID), zap.Error(err))
		return nil, false, errors.New("ошибка при получении расписания")
	}
	return doctor.Schedule.Week(), false, nil
}

func (s *DoctorServiceImpl) GetEditingWeek(ctx context.Context, userID int64) (*domain.ScheduleEditor, error) {
	doctor, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	week, draft, err := s.editingWeek(ctx, doctor)
	if err != nil {
		return nil, err
	}

	return &domain.ScheduleEditor{Week: week, Blocks: slots.Blocks(), Draft: draft}, nil
}

func (s *DoctorServiceImpl) ToggleSlot(ctx context.Context, userID int64, req domain.ToggleSlotRequest) (*domain.ScheduleEditor, error) {
	day, ok := slots.ParseWeekday(string(req.Day))
	if !ok {
		return nil, fmt.Errorf("день %q: %w", req.Day, domain.ErrInvalidSlot)
	}

	doctor, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	week, draft, err := s.editingWeek(ctx, doctor)
	if err != nil {
		return nil, err
	}

	// a stale editor may send a slot the catalog no longer has; Toggle ignores
	// it and so do we
	if _, ok := slots.Lookup(req.SlotNumber); !ok {
		s.logger.Info("пропущен неизвестный слот", zap.Int64("doctorId", doctor.ID), zap.Int("slot", req.SlotNumber))
		return &domain.ScheduleEditor{Week: week, Blocks: slots.Blocks(), Draft: draft}, nil
	}

	week = week.Toggle(day, req.SlotNumber)

	if err := s.drafts.Save(ctx, doctor.ID, week); err != nil {
		s.logger.Error("ошибка сохранения черновика расписания", zap.Int64("doctorId", doctor.ID), zap.Error(err))
		return nil, errors.New("ошибка при изменении расписания")
	}

	s.metrics.ObserveSlotToggle(string(day))

	return &domain.ScheduleEditor{Week: week, Blocks: slots.Blocks(), Draft: true}, nil
}

func (s *DoctorServiceImpl) SelectedSlots(ctx context.Context, userID int64, day slots.Weekday) ([]int, error) {
	doctor, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	week, _, err := s.editingWeek(ctx, doctor)
	if err != nil {
		return nil, err
	}

	return week.SelectedSlots(day), nil
}

func (s *DoctorServiceImpl) SubmitSchedule(ctx context.Context, userID int64) (slots.Schedule, error) {
	doctor, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	week, _, err := s.editingWeek(ctx, doctor)
	if err != nil {
		return nil, err
	}

	return s.storeSchedule(ctx, doctor.ID, week)
}

func (s *DoctorServiceImpl) DiscardDraft(ctx context.Context, userID int64) error {
	doctor, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.drafts.Delete(ctx, doctor.ID); err != nil {
		s.logger.Error("ошибка удаления черновика расписания", zap.Int64("doctorId", doctor.ID), zap.Error(err))
		return errors.New("ошибка при удалении черновика")
	}

	return nil
}

func (s *DoctorServiceImpl) UploadPhoto(ctx context.Context, userID int64, photo []byte, filename string) (string, error) {
	if s.fileStorage == nil {
		return "", domain.ErrStorageDisabled
	}

	doctor, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}

	url, err := s.fileStorage.UploadImage(ctx, photoPrefix, photo, filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotImage) || errors.Is(err, storage.ErrEmptyFile) {
			return "", fmt.Errorf("%s: %w", err.Error(), domain.ErrInvalidInput)
		}
		s.logger.Error("ошибка загрузки фото", zap.Int64("doctorId", doctor.ID), zap.Error(err))
		return "", errors.New("ошибка при загрузке фото")
	}

	if err := s.repo.UpdatePhoto(ctx, doctor.ID, url); err != nil {
		s.logger.Error("ошибка сохранения ссылки на фото", zap.Int64("doctorId", doctor.ID), zap.Error(err))
		_ = s.fileStorage.DeleteFile(ctx, url)
		return "", errors.New("ошибка при загрузке фото")
	}

	if doctor.PhotoURL != "" {
		if err := s.fileStorage.DeleteFile(ctx, doctor.PhotoURL); err != nil {
			s.logger.Warn("ошибка удаления старого фото", zap.String("url", doctor.PhotoURL), zap.Error(err))
		}
	}

	return url, nil
}

func (s *DoctorServiceImpl) DeletePhoto(ctx context.Context, userID int64) error {
	if s.fileStorage == nil {
		return domain.ErrStorageDisabled
	}

	doctor, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if doctor.PhotoURL == "" {
		return nil
	}

	if err := s.repo.UpdatePhoto(ctx, doctor.ID, ""); err != nil {
		s.logger.Error("ошибка удаления ссылки на фото", zap.Int64("doctorId", doctor.ID), zap.Error(err))
		return errors.New("ошибка при удалении фото")
	}

	if err := s.fileStorage.DeleteFile(ctx, doctor.PhotoURL); err != nil {
		s.logger.Warn("ошибка удаления фото из хранилища", zap.String("url", doctor.PhotoURL), zap.Error(err))
	}

	return nil
}
