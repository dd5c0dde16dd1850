package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docbook/internal/slots"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestDraftStore(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	store := NewDraftStore(client, time.Hour)

	_, err := store.Load(ctx, 3)
	assert.ErrorIs(t, err, ErrMiss)

	week := slots.InitializeWeek(nil).Toggle(slots.Monday, 1).Toggle(slots.Monday, 2).Toggle(slots.Monday, 2)
	require.NoError(t, store.Save(ctx, 3, week))

	loaded, err := store.Load(ctx, 3)
	require.NoError(t, err)
	require.Len(t, loaded, 7)
	// a toggled-off slot is still part of the draft, only Persist drops it
	assert.Equal(t, []int{1}, loaded.SelectedSlots(slots.Monday))
	assert.Equal(t, slots.Monday, loaded[0].Day)
	assert.Len(t, loaded[0].Slots, 2)

	mr.FastForward(2 * time.Hour)
	_, err = store.Load(ctx, 3)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestDraftStore_Delete(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()
	store := NewDraftStore(client, time.Hour)

	require.NoError(t, store.Save(ctx, 3, slots.InitializeWeek(nil)))
	require.NoError(t, store.Delete(ctx, 3))

	_, err := store.Load(ctx, 3)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestOTPStore(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	store := NewOTPStore(client, 10*time.Minute, time.Minute)

	_, err := store.Get(ctx, "ann@example.com")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Save(ctx, "Ann@Example.com ", "hash-1"))

	entry, err := store.Get(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash-1", entry.Hash)
	assert.Equal(t, 0, entry.Attempts)

	n, err := store.IncrAttempts(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.Save(ctx, "ann@example.com", "hash-2"))
	entry, err = store.Get(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash-2", entry.Hash)
	assert.Equal(t, 0, entry.Attempts)

	mr.FastForward(11 * time.Minute)
	_, err = store.Get(ctx, "ann@example.com")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestOTPStore_IncrAttemptsAfterExpiry(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	store := NewOTPStore(client, 10*time.Minute, time.Minute)

	require.NoError(t, store.Save(ctx, "ann@example.com", "hash-1"))
	mr.FastForward(11 * time.Minute)

	_, err := store.IncrAttempts(ctx, "ann@example.com")
	assert.ErrorIs(t, err, ErrMiss)
	assert.False(t, mr.Exists("otp:ann@example.com"))

	_, err = store.IncrAttempts(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrMiss)
	assert.False(t, mr.Exists("otp:nobody@example.com"))
}

func TestOTPStore_AcquireResend(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	store := NewOTPStore(client, 10*time.Minute, time.Minute)

	ok, err := store.AcquireResend(ctx, "Ann@Example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.AcquireResend(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.AcquireResend(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Minute + time.Second)
	ok, err = store.AcquireResend(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAvailabilityCache(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()
	c := NewAvailabilityCache(client, time.Minute)

	_, err := c.Get(ctx, 3, "2026-10-19")
	assert.ErrorIs(t, err, ErrMiss)

	schedule := slots.InitializeWeek(nil).Toggle(slots.Monday, 1).Toggle(slots.Monday, 2).Persist()
	monday := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	result := slots.Bookable(schedule, monday, nil)

	require.NoError(t, c.Set(ctx, 3, result))
	require.NoError(t, c.Set(ctx, 3, slots.Bookable(schedule, monday.AddDate(0, 0, 1), nil)))
	require.NoError(t, c.Set(ctx, 4, result))

	got, err := c.Get(ctx, 3, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, result, *got)

	tuesday, err := c.Get(ctx, 3, "2026-10-20")
	require.NoError(t, err)
	assert.NotNil(t, tuesday.AvailableSlots)
	assert.Empty(t, tuesday.AvailableSlots)

	require.NoError(t, c.Invalidate(ctx, 3, "2026-10-20"))
	_, err = c.Get(ctx, 3, "2026-10-20")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.InvalidateDoctor(ctx, 3))
	_, err = c.Get(ctx, 3, "2026-10-19")
	assert.ErrorIs(t, err, ErrMiss)

	_, err = c.Get(ctx, 4, "2026-10-19")
	assert.NoError(t, err)
}
