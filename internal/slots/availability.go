package slots

import (
	"sort"
	"time"
)

const DateLayout = "2006-01-02"

type AvailabilityResult struct {
	Date           string     `json:"date"`
	DayOfWeek      Weekday    `json:"dayOfWeek"`
	AvailableSlots []TimeSlot `json:"availableSlots"`
}

// Bookable computes the slots a patient can book on date: the schedule's
// available slots for that weekday minus the booked slot numbers. Slots are
// matched by number and resolved through the catalog, never by time strings.
func Bookable(schedule Schedule, date time.Time, booked []int) AvailabilityResult {
	day := WeekdayOf(date)
	result := AvailabilityResult{
		Date:           date.Format(DateLayout),
		DayOfWeek:      day,
		AvailableSlots: make([]TimeSlot, 0),
	}

	declared, ok := schedule.Day(day)
	if !ok || len(declared.Slots) == 0 {
		return result
	}

	taken := make(map[int]struct{}, len(booked))
	for _, n := range booked {
		taken[n] = struct{}{}
	}

	seen := make(map[int]struct{}, len(declared.Slots))
	for _, slot := range declared.Slots {
		if !slot.Available() {
			continue
		}
		if _, dup := seen[slot.SlotNumber]; dup {
			continue
		}
		seen[slot.SlotNumber] = struct{}{}

		if _, isTaken := taken[slot.SlotNumber]; isTaken {
			continue
		}

		known, ok := Lookup(slot.SlotNumber)
		if !ok {
			continue
		}
		result.AvailableSlots = append(result.AvailableSlots, known)
	}

	sort.Slice(result.AvailableSlots, func(i, j int) bool {
		return result.AvailableSlots[i].SlotNumber < result.AvailableSlots[j].SlotNumber
	})

	return result
}

// Contains reports whether slotNumber is in the result's available slots.
func (r AvailabilityResult) Contains(slotNumber int) bool {
	for _, slot := range r.AvailableSlots {
		if slot.SlotNumber == slotNumber {
			return true
		}
	}
	return false
}
