package slots

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeWeek_Empty(t *testing.T) {
	week := InitializeWeek(nil)

	require.Len(t, week, 7)
	for i, day := range Weekdays() {
		assert.Equal(t, day, week[i].Day)
		assert.NotNil(t, week[i].Slots)
		assert.Empty(t, week[i].Slots)
	}

	assert.Equal(t, week, InitializeWeek(week))
}

func TestInitializeWeek_CarriesSlotsAndDefaultsAvailability(t *testing.T) {
	existing := []ScheduleDay{
		{Day: Wednesday, Slots: []ScheduleSlot{
			{SlotNumber: 6, StartTime: "10:15", EndTime: "10:30", IsAvailable: flag(false)},
			{SlotNumber: 5},
		}},
		{Day: "Funday", Slots: []ScheduleSlot{{SlotNumber: 1}}},
	}

	week := InitializeWeek(existing)
	require.Len(t, week, 7)

	wed := week[2]
	assert.Equal(t, Wednesday, wed.Day)
	require.Len(t, wed.Slots, 2)
	assert.Equal(t, 5, wed.Slots[0].SlotNumber)
	assert.Equal(t, "10:00", wed.Slots[0].StartTime)
	require.NotNil(t, wed.Slots[0].IsAvailable)
	assert.True(t, *wed.Slots[0].IsAvailable)
	assert.False(t, wed.Slots[1].Available())

	for i, day := range week {
		if i != 2 {
			assert.Empty(t, day.Slots)
		}
	}

	assert.Equal(t, week, InitializeWeek(week))
}

func TestWeek_ToggleAddsThenFlips(t *testing.T) {
	week := InitializeWeek(nil)

	added := week.Toggle(Monday, 5)
	assert.Empty(t, week[0].Slots, "receiver must not change")
	require.Len(t, added[0].Slots, 1)
	assert.True(t, added[0].Slots[0].Available())
	assert.Equal(t, "10:00", added[0].Slots[0].StartTime)
	assert.Equal(t, []int{5}, added.SelectedSlots(Monday))

	flipped := added.Toggle(Monday, 5)
	require.Len(t, flipped[0].Slots, 1)
	assert.False(t, flipped[0].Slots[0].Available())
	assert.Empty(t, flipped.SelectedSlots(Monday))
	assert.True(t, added[0].Slots[0].Available(), "previous value must not change")

	back := flipped.Toggle(Monday, 5)
	assert.Equal(t, []int{5}, back.SelectedSlots(Monday))
}

func TestWeek_ToggleKeepsOrder(t *testing.T) {
	week := InitializeWeek(nil).
		Toggle(Friday, 12).
		Toggle(Friday, 3).
		Toggle(Friday, 7)

	var numbers []int
	for _, slot := range week[4].Slots {
		numbers = append(numbers, slot.SlotNumber)
	}
	assert.Equal(t, []int{3, 7, 12}, numbers)
	assert.Equal(t, []int{3, 7, 12}, week.SelectedSlots(Friday))
}

func TestWeek_ToggleUnknownSlotIsNoop(t *testing.T) {
	week := InitializeWeek(nil).Toggle(Monday, 1)

	assert.Equal(t, week, week.Toggle(Monday, 999))
	assert.Equal(t, week, week.Toggle(Monday, 0))
	assert.Equal(t, week, week.Toggle("Someday", 2))
}

func TestWeek_ToggleOnlyTouchesTargetDay(t *testing.T) {
	week := InitializeWeek(nil).Toggle(Tuesday, 1)
	next := week.Toggle(Thursday, 2)

	for i := range week {
		if week[i].Day == Thursday {
			continue
		}
		assert.Equal(t, week[i], next[i])
	}
}

func TestWeek_PersistDropsUnavailableAndEmptyDays(t *testing.T) {
	week := InitializeWeek([]ScheduleDay{
		{Day: Monday, Slots: []ScheduleSlot{
			{SlotNumber: 5, IsAvailable: flag(true)},
			{SlotNumber: 6, IsAvailable: flag(false)},
		}},
		{Day: Tuesday, Slots: []ScheduleSlot{
			{SlotNumber: 1, IsAvailable: flag(false)},
			{SlotNumber: 2, IsAvailable: flag(false)},
		}},
		{Day: Sunday, Slots: []ScheduleSlot{{SlotNumber: 999}}},
	})

	persisted := week.Persist()
	require.Len(t, persisted, 1)
	assert.Equal(t, Monday, persisted[0].Day)
	require.Len(t, persisted[0].Slots, 1)
	assert.Equal(t, 5, persisted[0].Slots[0].SlotNumber)
	assert.Equal(t, "10:00", persisted[0].Slots[0].StartTime)
	assert.Equal(t, "10:15", persisted[0].Slots[0].EndTime)

	// editing state keeps the deselected slot
	assert.Len(t, week[0].Slots, 2)
}

func TestSchedule_JSONContract(t *testing.T) {
	persisted := InitializeWeek(nil).Toggle(Monday, 1).Persist()

	raw, err := json.Marshal(persisted)
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"day":"Monday","slots":[{"slotNumber":1,"startTime":"09:00","endTime":"09:15","isAvailable":true}]}]`,
		string(raw))

	var decoded Schedule
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, persisted, decoded)
}

func TestSchedule_WeekRoundTrip(t *testing.T) {
	persisted := InitializeWeek(nil).Toggle(Saturday, 10).Toggle(Saturday, 11).Persist()

	week := persisted.Week()
	require.Len(t, week, 7)
	assert.Equal(t, []int{10, 11}, week.SelectedSlots(Saturday))
	assert.Equal(t, persisted, week.Persist())
	assert.Equal(t, 2, persisted.SlotCount())
}

func TestParseWeekday(t *testing.T) {
	day, ok := ParseWeekday("monday")
	require.True(t, ok)
	assert.Equal(t, Monday, day)

	_, ok = ParseWeekday("Mon")
	assert.False(t, ok)

	assert.True(t, Sunday.IsValid())
	assert.False(t, Weekday("sunday").IsValid())
}

func TestWeekdayOf(t *testing.T) {
	assert.Equal(t, Monday, WeekdayOf(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, Sunday, WeekdayOf(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)))
}
