package service

import (
	"context"

	"go.uber.org/zap"

	"docbook/internal/cache"
)

type OTPStore interface {
	Save(ctx context.Context, email, hash string) error
	Get(ctx context.Context, email string) (*cache.OTPEntry, error)
	IncrAttempts(ctx context.Context, email string) (int, error)
	Delete(ctx context.Context, email string) error
	AcquireResend(ctx context.Context, email string) (bool, error)
}

// CodeSender delivers a verification code to the account owner.
type CodeSender interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogCodeSender writes codes to the log. It is the sender used when no mail
// delivery is configured, which makes it suitable for development only.
type LogCodeSender struct {
	logger *zap.Logger
}

func NewLogCodeSender(logger *zap.Logger) *LogCodeSender {
	return &LogCodeSender{logger: logger}
}

func (s *LogCodeSender) SendCode(_ context.Context, email, code string) error {
	s.logger.Info("код подтверждения", zap.String("email", email), zap.String("code", code))
	return nil
}
