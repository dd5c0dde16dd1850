package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotNumbers(result AvailabilityResult) []int {
	numbers := make([]int, 0, len(result.AvailableSlots))
	for _, slot := range result.AvailableSlots {
		numbers = append(numbers, slot.SlotNumber)
	}
	return numbers
}

func TestBookable_MondayMorningScenario(t *testing.T) {
	week := InitializeWeek(nil)
	for n := 1; n <= 4; n++ {
		week = week.Toggle(Monday, n)
	}
	persisted := week.Persist()

	require.Len(t, persisted, 1)
	assert.Equal(t, Monday, persisted[0].Day)
	require.Len(t, persisted[0].Slots, 4)

	monday := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	free := Bookable(persisted, monday, nil)
	assert.Equal(t, "2026-10-19", free.Date)
	assert.Equal(t, Monday, free.DayOfWeek)
	assert.Equal(t, []int{1, 2, 3, 4}, slotNumbers(free))
	assert.Equal(t, "09:00", free.AvailableSlots[0].StartTime)
	assert.Equal(t, "10:00", free.AvailableSlots[3].EndTime)

	withBooking := Bookable(persisted, monday, []int{2})
	assert.Equal(t, []int{1, 3, 4}, slotNumbers(withBooking))
	assert.False(t, withBooking.Contains(2))
	assert.True(t, withBooking.Contains(3))
}

func TestBookable_NoHoursThatDay(t *testing.T) {
	persisted := InitializeWeek(nil).Toggle(Monday, 1).Persist()
	tuesday := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	result := Bookable(persisted, tuesday, nil)
	assert.Equal(t, Tuesday, result.DayOfWeek)
	assert.NotNil(t, result.AvailableSlots)
	assert.Empty(t, result.AvailableSlots)

	result = Bookable(nil, tuesday, nil)
	assert.Empty(t, result.AvailableSlots)
}

func TestBookable_UsesCatalogTimes(t *testing.T) {
	stale := Schedule{{Day: Monday, Slots: []ScheduleSlot{
		{SlotNumber: 3, StartTime: "9:30", EndTime: "9:45"},
		{SlotNumber: 77, StartTime: "23:00", EndTime: "23:15"},
		{SlotNumber: 5, IsAvailable: flag(false)},
	}}}

	result := Bookable(stale, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), nil)
	require.Len(t, result.AvailableSlots, 1)
	assert.Equal(t, TimeSlot{SlotNumber: 3, StartTime: "09:30", EndTime: "09:45"}, result.AvailableSlots[0])
}
