package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"docbook/internal/domain"
	"docbook/internal/repository"
	"docbook/pkg/validator"
)

type UserServiceImpl struct {
	repo   repository.UserRepository
	logger *zap.Logger
}

func NewUserService(repo repository.UserRepository, logger *zap.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

func (s *UserServiceImpl) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Info("ошибка получения пользователя по ID", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return user, nil
}

func (s *UserServiceImpl) Update(ctx context.Context, id int64, dto domain.UpdateUserDTO) error {
	if dto.FirstName != nil {
		if !validator.ValidateNamePart(*dto.FirstName) {
			return fmt.Errorf("некорректное имя: %w", domain.ErrInvalidInput)
		}
		name := validator.FormatName(*dto.FirstName)
		dto.FirstName = &name
	}

	if dto.LastName != nil {
		if !validator.ValidateNamePart(*dto.LastName) {
			return fmt.Errorf("некорректная фамилия: %w", domain.ErrInvalidInput)
		}
		name := validator.FormatName(*dto.LastName)
		dto.LastName = &name
	}

	if dto.Phone != nil {
		phone := validator.NormalizePhone(*dto.Phone)
		if !validator.ValidatePhone(phone) {
			return fmt.Errorf("некорректный номер телефона: %w", domain.ErrInvalidInput)
		}
		existing, err := s.repo.GetByPhone(ctx, phone)
		if err == nil && existing != nil && existing.ID != id {
			return fmt.Errorf("пользователь с таким телефоном: %w", domain.ErrAlreadyExists)
		}
		dto.Phone = &phone
	}

	if err := s.repo.Update(ctx, id, dto); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyExists) {
			return err
		}
		s.logger.Error("ошибка обновления пользователя", zap.Int64("id", id), zap.Error(err))
		return errors.New("ошибка при обновлении пользователя")
	}

	return nil
}

func (s *UserServiceImpl) UpdatePassword(ctx context.Context, id int64, dto domain.PasswordUpdateDTO) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.OldPassword)); err != nil {
		return domain.ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("ошибка при хешировании пароля", zap.Error(err))
		return errors.New("ошибка при обновлении пароля")
	}

	if err := s.repo.UpdatePassword(ctx, id, string(hashedPassword)); err != nil {
		s.logger.Error("ошибка обновления пароля", zap.Int64("id", id), zap.Error(err))
		return errors.New("ошибка при обновлении пароля")
	}

	return nil
}
