package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"docbook/config"
	"docbook/internal/cache"
	"docbook/internal/domain"
	"docbook/internal/metrics"
	"docbook/internal/repository"
	"docbook/pkg/auth"
	"docbook/pkg/validator"
)

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID int64           `json:"user_id"`
	Role   domain.UserRole `json:"role"`
}

type AuthServiceImpl struct {
	sessions    repository.SessionRepository
	userRepo    repository.UserRepository
	authLogRepo repository.AuthLogRepository
	otp         OTPStore
	sender      CodeSender
	jwtConfig   config.JWTConfig
	otpConfig   config.OTPConfig
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewAuthService(
	sessions repository.SessionRepository,
	userRepo repository.UserRepository,
	authLogRepo repository.AuthLogRepository,
	otp OTPStore,
	sender CodeSender,
	cfg *config.Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		sessions:    sessions,
		userRepo:    userRepo,
		authLogRepo: authLogRepo,
		otp:         otp,
		sender:      sender,
		jwtConfig:   cfg.JWT,
		otpConfig:   cfg.OTP,
		metrics:     m,
		logger:      logger,
	}
}

func (s *AuthServiceImpl) Register(ctx context.Context, dto domain.RegisterRequest, client domain.ClientInfo) (int64, error) {
	email := validator.NormalizeEmail(dto.Email)
	phone := validator.NormalizePhone(dto.Phone)

	if !validator.ValidateEmail(email) {
		return 0, fmt.Errorf("некорректный email: %w", domain.ErrInvalidInput)
	}
	if !validator.ValidatePhone(phone) {
		return 0, fmt.Errorf("некорректный номер телефона: %w", domain.ErrInvalidInput)
	}
	if !validator.ValidateNamePart(dto.FirstName) || !validator.ValidateNamePart(dto.LastName) {
		return 0, fmt.Errorf("некорректное имя или фамилия: %w", domain.ErrInvalidInput)
	}
	if dto.Role != domain.UserRolePatient && dto.Role != domain.UserRoleDoctor {
		return 0, fmt.Errorf("недопустимая роль %q: %w", dto.Role, domain.ErrInvalidInput)
	}

	if existing, err := s.userRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return 0, fmt.Errorf("пользователь с таким email: %w", domain.ErrAlreadyExists)
	}
	if existing, err := s.userRepo.GetByPhone(ctx, phone); err == nil && existing != nil {
		return 0, fmt.Errorf("пользователь с таким телефоном: %w", domain.ErrAlreadyExists)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("ошибка при хешировании пароля", zap.Error(err))
		return 0, errors.New("ошибка при регистрации пользователя")
	}

	// doctors wait for an administrator before they can sign in
	status := domain.UserStatusActive
	if dto.Role == domain.UserRoleDoctor {
		status = domain.UserStatusPending
	}

	userID, err := s.userRepo.Create(ctx, domain.CreateUserDTO{
		FirstName:    validator.FormatName(dto.FirstName),
		LastName:     validator.FormatName(dto.LastName),
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hashedPassword),
		Role:         dto.Role,
		Status:       status,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return 0, err
		}
		s.logger.Error("ошибка при создании пользователя", zap.Error(err))
		return 0, errors.New("ошибка при регистрации пользователя")
	}

	s.record(ctx, &userID, email, domain.AuthEventRegister, true, string(dto.Role), client)

	if err := s.issueOTP(ctx, email); err != nil {
		// the account exists, the user can request another code
		s.logger.Error("ошибка отправки кода подтверждения", zap.Int64("userId", userID), zap.Error(err))
	}

	return userID, nil
}

func (s *AuthServiceImpl) issueOTP(ctx context.Context, email string) error {
	code, err := auth.GenerateOTP()
	if err != nil {
		return err
	}

	hash, err := auth.HashSecret(code)
	if err != nil {
		return err
	}

	if err := s.otp.Save(ctx, email, hash); err != nil {
		return err
	}

	return s.sender.SendCode(ctx, email, code)
}

func (s *AuthServiceImpl) VerifyOTP(ctx context.Context, dto domain.VerifyOTPRequest, client domain.ClientInfo) error {
	email := validator.NormalizeEmail(dto.Email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.record(ctx, nil, email, domain.AuthEventOTPVerify, false, "unknown email", client)
		return domain.ErrInvalidOTP
	}

	if user.IsVerified {
		return nil
	}

	entry, err := s.otp.Get(ctx, email)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			s.record(ctx, &user.ID, email, domain.AuthEventOTPVerify, false, "no pending code", client)
			return domain.ErrInvalidOTP
		}
		s.logger.Error("ошибка чтения кода подтверждения", zap.Error(err))
		return errors.New("ошибка при проверке кода")
	}

	if entry.Attempts >= s.otpConfig.MaxAttempts {
		_ = s.otp.Delete(ctx, email)
		s.record(ctx, &user.ID, email, domain.AuthEventOTPVerify, false, "too many attempts", client)
		return domain.ErrTooManyAttempts
	}

	ok, err := auth.VerifySecret(dto.Code, entry.Hash)
	if err != nil {
		s.logger.Error("ошибка проверки хеша кода", zap.Error(err))
		return errors.New("ошибка при проверке кода")
	}

	if !ok {
		if _, err := s.otp.IncrAttempts(ctx, email); err != nil {
			s.logger.Warn("ошибка обновления счетчика попыток", zap.Error(err))
		}
		s.record(ctx, &user.ID, email, domain.AuthEventOTPVerify, false, "wrong code", client)
		return domain.ErrInvalidOTP
	}

	if err := s.userRepo.MarkVerified(ctx, user.ID); err != nil {
		s.logger.Error("ошибка подтверждения пользователя", zap.Int64("userId", user.ID), zap.Error(err))
		return errors.New("ошибка при проверке кода")
	}

	if err := s.otp.Delete(ctx, email); err != nil {
		s.logger.Warn("ошибка удаления кода подтверждения", zap.Error(err))
	}

	s.record(ctx, &user.ID, email, domain.AuthEventOTPVerify, true, "", client)

	return nil
}

func (s *AuthServiceImpl) ResendOTP(ctx context.Context, email string) error {
	email = validator.NormalizeEmail(email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("пользователь: %w", domain.ErrNotFound)
	}

	if user.IsVerified {
		return nil
	}

	allowed, err := s.otp.AcquireResend(ctx, email)
	if err != nil {
		s.logger.Error("ошибка проверки интервала отправки кода", zap.Int64("userId", user.ID), zap.Error(err))
		return errors.New("ошибка при отправке кода")
	}
	if !allowed {
		return fmt.Errorf("повторная отправка кода: %w", domain.ErrTooManyAttempts)
	}

	if err := s.issueOTP(ctx, email); err != nil {
		s.logger.Error("ошибка отправки кода подтверждения", zap.Int64("userId", user.ID), zap.Error(err))
		return errors.New("ошибка при отправке кода")
	}

	return nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, dto domain.LoginRequest, client domain.ClientInfo) (*domain.Tokens, error) {
	user, err := s.userRepo.GetByEmail(ctx, validator.NormalizeEmail(dto.Login))
	if err != nil {
		user, err = s.userRepo.GetByPhone(ctx, validator.NormalizePhone(dto.Login))
		if err != nil {
			s.logger.Info("пользователь не найден", zap.String("login", dto.Login))
			s.record(ctx, nil, dto.Login, domain.AuthEventLogin, false, "unknown login", client)
			return nil, domain.ErrInvalidCredentials
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.Password)); err != nil {
		s.record(ctx, &user.ID, dto.Login, domain.AuthEventLogin, false, "wrong password", client)
		return nil, domain.ErrInvalidCredentials
	}

	switch {
	case user.Status == domain.UserStatusBlocked:
		s.record(ctx, &user.ID, dto.Login, domain.AuthEventLogin, false, "blocked", client)
		return nil, domain.ErrAccountBlocked
	case !user.IsVerified:
		s.record(ctx, &user.ID, dto.Login, domain.AuthEventLogin, false, "not verified", client)
		return nil, domain.ErrNotVerified
	case user.Status == domain.UserStatusPending:
		s.record(ctx, &user.ID, dto.Login, domain.AuthEventLogin, false, "pending approval", client)
		return nil, domain.ErrAccountPending
	}

	tokens, err := s.openSession(ctx, user, client)
	if err != nil {
		return nil, errors.New("ошибка при аутентификации")
	}

	s.record(ctx, &user.ID, dto.Login, domain.AuthEventLogin, true, "", client)

	return tokens, nil
}

// issueSession mints a token pair and the session row that backs its refresh token.
func (s *AuthServiceImpl) issueSession(user *domain.User, client domain.ClientInfo) (*domain.Tokens, domain.Session, error) {
	tokens, err := s.generateTokens(user.ID, user.Role)
	if err != nil {
		s.logger.Error("ошибка генерации токенов", zap.Error(err))
		return nil, domain.Session{}, err
	}

	now := time.Now()
	return tokens, domain.Session{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		RefreshToken: tokens.RefreshToken,
		UserAgent:    client.UserAgent,
		IP:           client.IP,
		ExpiresAt:    now.Add(s.jwtConfig.RefreshTokenTTL),
		CreatedAt:    now,
	}, nil
}

func (s *AuthServiceImpl) openSession(ctx context.Context, user *domain.User, client domain.ClientInfo) (*domain.Tokens, error) {
	tokens, session, err := s.issueSession(user, client)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Open(ctx, session); err != nil {
		s.logger.Error("ошибка сохранения сессии", zap.Error(err))
		return nil, err
	}

	return tokens, nil
}

func (s *AuthServiceImpl) RefreshTokens(ctx context.Context, refreshToken string, client domain.ClientInfo) (*domain.Tokens, error) {
	session, err := s.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		s.logger.Info("сессия не найдена", zap.Error(err))
		return nil, domain.ErrInvalidToken
	}

	if session.ExpiresAt.Before(time.Now()) {
		_ = s.sessions.Revoke(ctx, session.ID)
		return nil, fmt.Errorf("refresh token истек: %w", domain.ErrInvalidToken)
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		s.logger.Error("пользователь не найден", zap.Int64("userId", session.UserID), zap.Error(err))
		return nil, domain.ErrInvalidToken
	}

	if user.Status != domain.UserStatusActive {
		_ = s.sessions.Revoke(ctx, session.ID)
		s.record(ctx, &user.ID, user.Email, domain.AuthEventRefresh, false, string(user.Status), client)
		return nil, domain.ErrAccountBlocked
	}

	tokens, next, err := s.issueSession(user, client)
	if err != nil {
		return nil, errors.New("ошибка при обновлении токенов")
	}

	if err := s.sessions.Rotate(ctx, session.ID, next); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("повторное использование refresh token", zap.Int64("userId", user.ID))
			s.record(ctx, &user.ID, user.Email, domain.AuthEventRefresh, false, "token reuse", client)
			return nil, domain.ErrInvalidToken
		}
		s.logger.Error("ошибка ротации сессии", zap.Error(err))
		return nil, errors.New("ошибка при обновлении токенов")
	}

	s.record(ctx, &user.ID, user.Email, domain.AuthEventRefresh, true, "", client)

	return tokens, nil
}

func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string, client domain.ClientInfo) error {
	session, err := s.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		s.logger.Info("сессия не найдена при выходе", zap.Error(err))
		return nil
	}

	if err := s.sessions.Revoke(ctx, session.ID); err != nil {
		s.logger.Error("ошибка удаления сессии", zap.Error(err))
		return errors.New("ошибка при выходе")
	}

	s.record(ctx, &session.UserID, "", domain.AuthEventLogout, true, "", client)

	return nil
}

// ParseToken validates the access token and rejects it once the account is
// blocked, so blocking takes effect before the token expires.
func (s *AuthServiceImpl) ParseToken(ctx context.Context, tokenString string) (int64, domain.UserRole, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.SigningKey), nil
	})
	if err != nil {
		return 0, "", fmt.Errorf("ошибка парсинга токена: %w", domain.ErrInvalidToken)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return 0, "", domain.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, "", fmt.Errorf("пользователь %d: %w", claims.UserID, domain.ErrInvalidToken)
		}
		s.logger.Error("ошибка проверки пользователя по токену", zap.Int64("userId", claims.UserID), zap.Error(err))
		return 0, "", errors.New("ошибка при проверке токена")
	}
	if user.Status == domain.UserStatusBlocked {
		return 0, "", domain.ErrAccountBlocked
	}

	return claims.UserID, claims.Role, nil
}

func (s *AuthServiceImpl) generateTokens(userID int64, role domain.UserRole) (*domain.Tokens, error) {
	accessToken, err := s.signToken(userID, role, s.jwtConfig.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("ошибка подписи access token: %w", err)
	}

	refreshToken, err := s.signToken(userID, role, s.jwtConfig.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("ошибка подписи refresh token: %w", err)
	}

	return &domain.Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *AuthServiceImpl) signToken(userID int64, role domain.UserRole, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
		Role:   role,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtConfig.SigningKey))
}

// record writes an auth log entry. Failures are logged and never surface to
// the caller.
func (s *AuthServiceImpl) record(ctx context.Context, userID *int64, login string, event domain.AuthEvent, success bool, details string, client domain.ClientInfo) {
	s.metrics.ObserveAuthEvent(string(event), success)

	err := s.authLogRepo.Create(ctx, domain.AuthLog{
		UserID:    userID,
		Login:     login,
		Event:     event,
		Success:   success,
		Details:   details,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.logger.Warn("ошибка записи журнала авторизации", zap.String("event", string(event)), zap.Error(err))
	}
}
