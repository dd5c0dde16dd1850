package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPStore holds one pending verification code hash per email together with
// the number of failed attempts against it.
type OTPStore struct {
	client   redis.Cmdable
	ttl      time.Duration
	cooldown time.Duration
}

type OTPEntry struct {
	Hash     string
	Attempts int
}

func NewOTPStore(client redis.Cmdable, ttl, cooldown time.Duration) *OTPStore {
	return &OTPStore{client: client, ttl: ttl, cooldown: cooldown}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func otpKey(email string) string {
	return "otp:" + normalizeEmail(email)
}

func otpCooldownKey(email string) string {
	return "otp:cooldown:" + normalizeEmail(email)
}

// incrAttempts bumps the counter only while the code still exists, so an
// expired code is never recreated as a hash without TTL.
var incrAttempts = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`)

// Save replaces any pending code for email and resets its attempt counter.
func (s *OTPStore) Save(ctx context.Context, email, hash string) error {
	key := otpKey(email)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "hash", hash, "attempts", 0)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения кода подтверждения: %w", err)
	}

	return nil
}

// Get returns ErrMiss when no code is pending or it has expired.
func (s *OTPStore) Get(ctx context.Context, email string) (*OTPEntry, error) {
	values, err := s.client.HGetAll(ctx, otpKey(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения кода подтверждения: %w", err)
	}

	hash, ok := values["hash"]
	if !ok {
		return nil, ErrMiss
	}

	attempts, err := strconv.Atoi(values["attempts"])
	if err != nil {
		attempts = 0
	}

	return &OTPEntry{Hash: hash, Attempts: attempts}, nil
}

// IncrAttempts returns ErrMiss when the code has already expired.
func (s *OTPStore) IncrAttempts(ctx context.Context, email string) (int, error) {
	n, err := incrAttempts.Run(ctx, s.client, []string{otpKey(email)}).Int()
	if err != nil {
		return 0, fmt.Errorf("ошибка обновления счетчика попыток: %w", err)
	}
	if n < 0 {
		return 0, ErrMiss
	}
	return n, nil
}

// AcquireResend reserves the resend window for email. It reports false while
// an earlier resend is still cooling down.
func (s *OTPStore) AcquireResend(ctx context.Context, email string) (bool, error) {
	ok, err := s.client.SetNX(ctx, otpCooldownKey(email), 1, s.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка проверки интервала повторной отправки: %w", err)
	}
	return ok, nil
}

func (s *OTPStore) Delete(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, otpKey(email)).Err(); err != nil {
		return fmt.Errorf("ошибка удаления кода подтверждения: %w", err)
	}
	return nil
}
