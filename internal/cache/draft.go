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

// DraftStore keeps a doctor's in-progress editing week between requests.
// A draft exists from the first toggle until submit, discard or TTL expiry.
type DraftStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewDraftStore(client redis.Cmdable, ttl time.Duration) *DraftStore {
	return &DraftStore{client: client, ttl: ttl}
}

func draftKey(doctorID int64) string {
	return fmt.Sprintf("schedule:draft:%d", doctorID)
}

// Load returns ErrMiss when the doctor has no draft.
func (s *DraftStore) Load(ctx context.Context, doctorID int64) (slots.Week, error) {
	data, err := s.client.Get(ctx, draftKey(doctorID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("ошибка чтения черновика расписания: %w", err)
	}

	var days []slots.ScheduleDay
	if err := json.Unmarshal(data, &days); err != nil {
		return nil, fmt.Errorf("ошибка декодирования черновика расписания: %w", err)
	}

	return slots.InitializeWeek(days), nil
}

func (s *DraftStore) Save(ctx context.Context, doctorID int64, week slots.Week) error {
	data, err := json.Marshal(week)
	if err != nil {
		return fmt.Errorf("ошибка сериализации черновика расписания: %w", err)
	}

	if err := s.client.Set(ctx, draftKey(doctorID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка сохранения черновика расписания: %w", err)
	}

	return nil
}

func (s *DraftStore) Delete(ctx context.Context, doctorID int64) error {
	if err := s.client.Del(ctx, draftKey(doctorID)).Err(); err != nil {
		return fmt.Errorf("ошибка удаления черновика расписания: %w", err)
	}
	return nil
}
