package slots

import (
	"sort"
	"strings"
	"time"
)

type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

var weekdays = [7]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Weekdays returns the day names in schedule order, Monday first.
func Weekdays() [7]Weekday {
	return weekdays
}

func WeekdayOf(date time.Time) Weekday {
	return Weekday(date.Weekday().String())
}

func ParseWeekday(value string) (Weekday, bool) {
	for _, day := range weekdays {
		if strings.EqualFold(string(day), strings.TrimSpace(value)) {
			return day, true
		}
	}
	return "", false
}

func (d Weekday) IsValid() bool {
	for _, day := range weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// ScheduleSlot references a catalog slot by number. A nil IsAvailable means
// available.
type ScheduleSlot struct {
	SlotNumber  int    `json:"slotNumber"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	IsAvailable *bool  `json:"isAvailable,omitempty"`
}

func (s ScheduleSlot) Available() bool {
	return s.IsAvailable == nil || *s.IsAvailable
}

type ScheduleDay struct {
	Day   Weekday        `json:"day"`
	Slots []ScheduleSlot `json:"slots"`
}

// Week is the editing-time schedule: always seven days in Monday..Sunday
// order, deselected slots are kept with isAvailable=false.
type Week []ScheduleDay

// Schedule is the persisted schedule: only available slots, days without
// slots are absent. Produced from a Week by Persist only.
type Schedule []ScheduleDay

func flag(v bool) *bool {
	return &v
}

// InitializeWeek builds a full seven-day Week out of a possibly partial
// schedule. Re-initializing an initialized Week yields an equal Week.
func InitializeWeek(existing []ScheduleDay) Week {
	week := make(Week, 0, len(weekdays))

	for _, day := range weekdays {
		slotsByNumber := make(map[int]struct{})
		daySlots := make([]ScheduleSlot, 0)

		for _, entry := range existing {
			if entry.Day != day {
				continue
			}
			for _, slot := range entry.Slots {
				if _, seen := slotsByNumber[slot.SlotNumber]; seen {
					continue
				}
				slotsByNumber[slot.SlotNumber] = struct{}{}
				daySlots = append(daySlots, hydrate(slot))
			}
		}

		sortSlots(daySlots)
		week = append(week, ScheduleDay{Day: day, Slots: daySlots})
	}

	return week
}

func hydrate(slot ScheduleSlot) ScheduleSlot {
	slot.IsAvailable = flag(slot.Available())

	if slot.StartTime == "" || slot.EndTime == "" {
		if known, ok := Lookup(slot.SlotNumber); ok {
			slot.StartTime = known.StartTime
			slot.EndTime = known.EndTime
		}
	}

	return slot
}

func sortSlots(slots []ScheduleSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].SlotNumber < slots[j].SlotNumber
	})
}

func (w Week) indexOf(day Weekday) int {
	for i, d := range w {
		if d.Day == day {
			return i
		}
	}
	return -1
}

// Toggle flips the availability of a slot on the given day, adding it from the
// catalog when the day does not reference it yet. Unknown slot numbers and
// days leave the week untouched. The receiver is never modified.
func (w Week) Toggle(day Weekday, slotNumber int) Week {
	idx := w.indexOf(day)
	if idx < 0 {
		return w
	}

	known, ok := Lookup(slotNumber)
	if !ok {
		return w
	}

	current := w[idx]
	slots := make([]ScheduleSlot, len(current.Slots), len(current.Slots)+1)
	copy(slots, current.Slots)

	found := false
	for i := range slots {
		if slots[i].SlotNumber == slotNumber {
			slots[i].IsAvailable = flag(!slots[i].Available())
			found = true
			break
		}
	}

	if !found {
		slots = append(slots, ScheduleSlot{
			SlotNumber:  known.SlotNumber,
			StartTime:   known.StartTime,
			EndTime:     known.EndTime,
			IsAvailable: flag(true),
		})
		sortSlots(slots)
	}

	next := make(Week, len(w))
	copy(next, w)
	next[idx] = ScheduleDay{Day: current.Day, Slots: slots}

	return next
}

// SelectedSlots returns the available slot numbers of a day in ascending order.
func (w Week) SelectedSlots(day Weekday) []int {
	result := make([]int, 0)

	idx := w.indexOf(day)
	if idx < 0 {
		return result
	}

	for _, slot := range w[idx].Slots {
		if slot.Available() {
			result = append(result, slot.SlotNumber)
		}
	}
	sort.Ints(result)

	return result
}

// Persist drops deselected slots, slots the catalog no longer knows and days
// left empty. The conversion is one-way: a Schedule cannot tell which slots
// were deselected.
func (w Week) Persist() Schedule {
	result := make(Schedule, 0)

	for _, day := range w {
		kept := make([]ScheduleSlot, 0, len(day.Slots))
		for _, slot := range day.Slots {
			if !slot.Available() {
				continue
			}
			known, ok := Lookup(slot.SlotNumber)
			if !ok {
				continue
			}
			kept = append(kept, ScheduleSlot{
				SlotNumber:  known.SlotNumber,
				StartTime:   known.StartTime,
				EndTime:     known.EndTime,
				IsAvailable: flag(true),
			})
		}

		if len(kept) == 0 {
			continue
		}

		sortSlots(kept)
		result = append(result, ScheduleDay{Day: day.Day, Slots: kept})
	}

	return result
}

func (s Schedule) Day(day Weekday) (ScheduleDay, bool) {
	for _, d := range s {
		if d.Day == day {
			return d, true
		}
	}
	return ScheduleDay{}, false
}

// Week hydrates the persisted schedule back into an editing Week.
func (s Schedule) Week() Week {
	return InitializeWeek(s)
}

// SlotCount is the number of available slots across the week.
func (s Schedule) SlotCount() int {
	total := 0
	for _, d := range s {
		for _, slot := range d.Slots {
			if slot.Available() {
				total++
			}
		}
	}
	return total
}
