package domain

import (
	"time"

	"docbook/internal/slots"
)

type Doctor struct {
	ID              int64          `json:"id"`
	UserID          int64          `json:"user_id"`
	Specialization  string         `json:"specialization"`
	Bio             string         `json:"bio"`
	ExperienceYears int            `json:"experience_years"`
	ConsultationFee float64        `json:"consultation_fee"`
	PhotoURL        string         `json:"photo_url"`
	Schedule        slots.Schedule `json:"schedule"`
	User            User           `json:"user"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type CreateDoctorDTO struct {
	Specialization  string  `json:"specialization" binding:"required"`
	Bio             string  `json:"bio"`
	ExperienceYears int     `json:"experience_years" binding:"min=0"`
	ConsultationFee float64 `json:"consultation_fee" binding:"min=0"`
}

// UpdateDoctorDTO carries an editing-time schedule; it is stored only after
// being converted with Persist.
type UpdateDoctorDTO struct {
	Specialization  *string              `json:"specialization"`
	Bio             *string              `json:"bio"`
	ExperienceYears *int                 `json:"experience_years" binding:"omitempty,min=0"`
	ConsultationFee *float64             `json:"consultation_fee" binding:"omitempty,min=0"`
	Schedule        *[]slots.ScheduleDay `json:"schedule"`
}

type DoctorFilter struct {
	Specialization *string `json:"specialization"`
	Search         string  `json:"search"`
	Limit          int     `json:"limit"`
	Offset         int     `json:"offset"`
}

type ToggleSlotRequest struct {
	Day        slots.Weekday `json:"day" binding:"required"`
	SlotNumber int           `json:"slotNumber" binding:"required"`
}

// ScheduleEditor is what the doctor schedule screen renders: the editing week
// plus the block layout of the catalog.
type ScheduleEditor struct {
	Week   slots.Week        `json:"week"`
	Blocks []slots.TimeBlock `json:"blocks"`
	Draft  bool              `json:"draft"`
}
