package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docbook/internal/slots"
)

// AvailabilityCache memoizes bookable-slot answers per doctor and date.
// Entries are short-lived and dropped on any booking or schedule change.
type AvailabilityCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewAvailabilityCache(client redis.Cmdable, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func availabilityKey(doctorID int64, date string) string {
	return fmt.Sprintf("availability:%d:%s", doctorID, date)
}

// Get returns ErrMiss when nothing is cached.
func (c *AvailabilityCache) Get(ctx context.Context, doctorID int64, date string) (*slots.AvailabilityResult, error) {
	data, err := c.client.Get(ctx, availabilityKey(doctorID, date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("ошибка чтения кэша доступности: %w", err)
	}

	var result slots.AvailabilityResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("ошибка декодирования кэша доступности: %w", err)
	}
	if result.AvailableSlots == nil {
		result.AvailableSlots = []slots.TimeSlot{}
	}

	return &result, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, doctorID int64, result slots.AvailabilityResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("ошибка сериализации доступности: %w", err)
	}

	if err := c.client.Set(ctx, availabilityKey(doctorID, result.Date), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка записи кэша доступности: %w", err)
	}

	return nil
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, doctorID int64, date string) error {
	if err := c.client.Del(ctx, availabilityKey(doctorID, date)).Err(); err != nil {
		return fmt.Errorf("ошибка сброса кэша доступности: %w", err)
	}
	return nil
}

// InvalidateDoctor drops every cached date of a doctor, used after the
// weekly schedule changes.
func (c *AvailabilityCache) InvalidateDoctor(ctx context.Context, doctorID int64) error {
	pattern := fmt.Sprintf("availability:%d:*", doctorID)

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("ошибка поиска ключей доступности: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("ошибка сброса кэша доступности: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
