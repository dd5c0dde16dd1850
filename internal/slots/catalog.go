// Package slots holds the fixed 15-minute slot catalog of the operating day,
// its 2-hour display blocks, the weekly doctor schedule model and the
// bookable-slot computation shared by the schedule editor and booking.
package slots

import (
	"errors"
	"fmt"
)

const (
	DayStartHour    = 9
	DayEndHour      = 21
	IntervalMinutes = 15
	SlotsPerBlock   = 8
)

var ErrInvalidTime = errors.New("неверный формат времени, ожидается HH:MM")

type TimeSlot struct {
	SlotNumber int    `json:"slotNumber"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
}

type TimeBlock struct {
	Label     string `json:"label"`
	StartSlot int    `json:"startSlot"`
	EndSlot   int    `json:"endSlot"`
}

// Built once at package init and never mutated; accessors hand out copies.
var (
	catalog = generateCatalog()
	blocks  = generateBlocks(catalog)
)

func generateCatalog() []TimeSlot {
	slots := make([]TimeSlot, 0, (DayEndHour-DayStartHour)*60/IntervalMinutes)
	number := 1

	for hour := DayStartHour; hour < DayEndHour; hour++ {
		for minute := 0; minute < 60; minute += IntervalMinutes {
			endHour := hour
			endMinute := minute + IntervalMinutes
			if endMinute >= 60 {
				endHour++
				endMinute -= 60
			}

			if endHour*60+endMinute > DayEndHour*60 {
				break
			}

			slots = append(slots, TimeSlot{
				SlotNumber: number,
				StartTime:  clock(hour, minute),
				EndTime:    clock(endHour, endMinute),
			})
			number++
		}
	}

	return slots
}

func generateBlocks(slots []TimeSlot) []TimeBlock {
	result := make([]TimeBlock, 0, (len(slots)+SlotsPerBlock-1)/SlotsPerBlock)

	for start := 0; start < len(slots); start += SlotsPerBlock {
		end := min(start+SlotsPerBlock, len(slots)) - 1

		from, _ := FormatTime12Hour(slots[start].StartTime)
		to, _ := FormatTime12Hour(slots[end].EndTime)

		result = append(result, TimeBlock{
			Label:     from + " - " + to,
			StartSlot: slots[start].SlotNumber,
			EndSlot:   slots[end].SlotNumber,
		})
	}

	return result
}

func clock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// Catalog returns the full ordered slot catalog.
func Catalog() []TimeSlot {
	out := make([]TimeSlot, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog slot with the given number.
func Lookup(slotNumber int) (TimeSlot, bool) {
	if slotNumber < 1 || slotNumber > len(catalog) {
		return TimeSlot{}, false
	}

	slot := catalog[slotNumber-1]
	if slot.SlotNumber != slotNumber {
		return TimeSlot{}, false
	}

	return slot, true
}

func Blocks() []TimeBlock {
	out := make([]TimeBlock, len(blocks))
	copy(out, blocks)
	return out
}

// SlotsForBlock returns the slots of the block at a zero-based index, or an
// empty slice when the index is out of range.
func SlotsForBlock(index int) []TimeSlot {
	if index < 0 || index >= len(blocks) {
		return []TimeSlot{}
	}

	block := blocks[index]
	result := make([]TimeSlot, 0, SlotsPerBlock)
	for _, slot := range catalog {
		if slot.SlotNumber >= block.StartSlot && slot.SlotNumber <= block.EndSlot {
			result = append(result, slot)
		}
	}

	return result
}

func BlockForSlot(slotNumber int) (TimeBlock, bool) {
	for _, block := range blocks {
		if slotNumber >= block.StartSlot && slotNumber <= block.EndSlot {
			return block, true
		}
	}
	return TimeBlock{}, false
}

// FormatTime12Hour converts "HH:MM" into "H:MM AM|PM".
func FormatTime12Hour(value string) (string, error) {
	hour, minute, err := parseClock(value)
	if err != nil {
		return "", err
	}

	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}

	displayHour := hour
	switch {
	case hour == 0:
		displayHour = 12
	case hour > 12:
		displayHour = hour - 12
	}

	return fmt.Sprintf("%d:%02d %s", displayHour, minute, suffix), nil
}

func parseClock(value string) (int, int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, 0, ErrInvalidTime
	}

	digits := [4]byte{value[0], value[1], value[3], value[4]}
	for _, d := range digits {
		if d < '0' || d > '9' {
			return 0, 0, ErrInvalidTime
		}
	}

	hour := int(digits[0]-'0')*10 + int(digits[1]-'0')
	minute := int(digits[2]-'0')*10 + int(digits[3]-'0')
	if hour > 23 || minute > 59 {
		return 0, 0, ErrInvalidTime
	}

	return hour, minute, nil
}

// ValidClock reports whether value is a well-formed 24-hour "HH:MM" string.
func ValidClock(value string) bool {
	_, _, err := parseClock(value)
	return err == nil
}
