package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"docbook/config"
	"docbook/internal/domain"
	"docbook/internal/repository"
	"docbook/pkg/validator"
)

type AdminServiceImpl struct {
	userRepo        repository.UserRepository
	sessions        repository.SessionRepository
	authLogRepo     repository.AuthLogRepository
	appointmentRepo repository.AppointmentRepository
	logger          *zap.Logger
}

func NewAdminService(
	userRepo repository.UserRepository,
	sessions repository.SessionRepository,
	authLogRepo repository.AuthLogRepository,
	appointmentRepo repository.AppointmentRepository,
	logger *zap.Logger,
) *AdminServiceImpl {
	return &AdminServiceImpl{
		userRepo:        userRepo,
		sessions:        sessions,
		authLogRepo:     authLogRepo,
		appointmentRepo: appointmentRepo,
		logger:          logger,
	}
}

// EnsureAdmin creates the configured administrator account if no user with
// that email exists yet.
func (s *AdminServiceImpl) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}

	email := validator.NormalizeEmail(cfg.Email)
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("ошибка поиска администратора: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("ошибка при хешировании пароля: %w", err)
	}

	id, err := s.userRepo.Create(ctx, domain.CreateUserDTO{
		FirstName:    "Admin",
		LastName:     "Docbook",
		Email:        email,
		Phone:        validator.NormalizePhone(cfg.Phone),
		PasswordHash: string(hash),
		Role:         domain.UserRoleAdmin,
		Status:       domain.UserStatusActive,
	})
	if err != nil {
		return fmt.Errorf("ошибка создания администратора: %w", err)
	}

	if err := s.userRepo.MarkVerified(ctx, id); err != nil {
		return fmt.Errorf("ошибка подтверждения администратора: %w", err)
	}

	s.logger.Info("создан администратор", zap.Int64("id", id), zap.String("email", email))

	return nil
}

func (s *AdminServiceImpl) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, int, error) {
	users, err := s.userRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка получения списка пользователей", zap.Error(err))
		return nil, 0, errors.New("ошибка при получении списка пользователей")
	}

	total, err := s.userRepo.CountByFilter(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка подсчета пользователей", zap.Error(err))
		return nil, 0, errors.New("ошибка при получении списка пользователей")
	}

	return users, total, nil
}

// SetUserStatus approves, blocks or unblocks an account. Blocking revokes
// every session of the user.
func (s *AdminServiceImpl) SetUserStatus(ctx context.Context, adminID, userID int64, dto domain.UpdateUserStatusDTO, client domain.ClientInfo) error {
	if !dto.Status.IsValid() {
		return fmt.Errorf("статус %q: %w", dto.Status, domain.ErrInvalidInput)
	}
	if adminID == userID {
		return fmt.Errorf("нельзя менять собственный статус: %w", domain.ErrForbidden)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.Status == dto.Status {
		return nil
	}

	if err := s.userRepo.UpdateStatus(ctx, userID, dto.Status); err != nil {
		s.logger.Error("ошибка обновления статуса пользователя", zap.Int64("userId", userID), zap.Error(err))
		return errors.New("ошибка при обновлении статуса")
	}

	if dto.Status == domain.UserStatusBlocked {
		revoked, err := s.sessions.RevokeAll(ctx, userID)
		if err != nil {
			s.logger.Error("ошибка отзыва сессий", zap.Int64("userId", userID), zap.Error(err))
		} else {
			s.logger.Info("сессии пользователя отозваны", zap.Int64("userId", userID), zap.Int64("count", revoked))
		}
	}

	details := fmt.Sprintf("%s -> %s by %d", user.Status, dto.Status, adminID)
	if dto.Reason != "" {
		details += ": " + dto.Reason
	}

	err = s.authLogRepo.Create(ctx, domain.AuthLog{
		UserID:    &userID,
		Login:     user.Email,
		Event:     domain.AuthEventStatusChange,
		Success:   true,
		Details:   details,
		IP:        client.IP,
		UserAgent: client.UserAgent,
	})
	if err != nil {
		s.logger.Warn("ошибка записи журнала авторизации", zap.Error(err))
	}

	s.logger.Info("статус пользователя изменен",
		zap.Int64("userId", userID),
		zap.String("from", string(user.Status)),
		zap.String("to", string(dto.Status)),
		zap.Int64("adminId", adminID))

	return nil
}

func (s *AdminServiceImpl) ListAuthLogs(ctx context.Context, filter domain.AuthLogFilter) ([]domain.AuthLog, int, error) {
	logs, err := s.authLogRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка получения журнала авторизации", zap.Error(err))
		return nil, 0, errors.New("ошибка при получении журнала")
	}

	total, err := s.authLogRepo.CountByFilter(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка подсчета записей журнала", zap.Error(err))
		return nil, 0, errors.New("ошибка при получении журнала")
	}

	return logs, total, nil
}

func (s *AdminServiceImpl) Stats(ctx context.Context) (*domain.Stats, error) {
	byRole, err := s.userRepo.CountByRole(ctx)
	if err != nil {
		s.logger.Error("ошибка получения статистики", zap.Error(err))
		return nil, errors.New("ошибка при получении статистики")
	}

	byStatus, err := s.userRepo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("ошибка получения статистики", zap.Error(err))
		return nil, errors.New("ошибка при получении статистики")
	}

	appointments, err := s.appointmentRepo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("ошибка получения статистики", zap.Error(err))
		return nil, errors.New("ошибка при получении статистики")
	}

	return &domain.Stats{
		UsersByRole:          byRole,
		UsersByStatus:        byStatus,
		AppointmentsByStatus: appointments,
	}, nil
}
