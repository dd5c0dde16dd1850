package domain

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusApproved  AppointmentStatus = "approved"
	AppointmentStatusDeclined  AppointmentStatus = "declined"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusApproved, AppointmentStatusDeclined,
		AppointmentStatusCancelled, AppointmentStatusCompleted:
		return true
	}
	return false
}

// HoldsSlot reports whether an appointment in this status keeps its slot
// reserved for the date.
func (s AppointmentStatus) HoldsSlot() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusApproved
}

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:  {AppointmentStatusApproved, AppointmentStatusDeclined, AppointmentStatusCancelled},
	AppointmentStatusApproved: {AppointmentStatusCancelled, AppointmentStatusCompleted},
}

func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment references its slot by number; StartTime and EndTime are the
// catalog times at booking, kept for display and audit.
type Appointment struct {
	ID            int64             `json:"id"`
	PatientID     int64             `json:"patient_id"`
	DoctorID      int64             `json:"doctor_id"`
	Date          time.Time         `json:"date"`
	SlotNumber    int               `json:"slot_number"`
	StartTime     string            `json:"start_time"`
	EndTime       string            `json:"end_time"`
	Status        AppointmentStatus `json:"status"`
	Reason        string            `json:"reason,omitempty"`
	DeclineReason string            `json:"decline_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	PatientName   string            `json:"patient_name,omitempty"`
	PatientPhone  string            `json:"patient_phone,omitempty"`
	DoctorName    string            `json:"doctor_name,omitempty"`
}

// CreateAppointmentDTO is the booking submission. SlotNumber is authoritative;
// the time strings are accepted for display only and replaced by catalog
// times before storing.
type CreateAppointmentDTO struct {
	DoctorID   int64  `json:"doctorId" binding:"required"`
	Date       string `json:"date" binding:"required"`
	SlotNumber int    `json:"slotNumber" binding:"required,min=1"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	Reason     string `json:"reason" binding:"max=500"`
}

type DeclineAppointmentDTO struct {
	Reason string `json:"reason" binding:"max=500"`
}

type AppointmentFilter struct {
	PatientID *int64             `json:"patient_id"`
	DoctorID  *int64             `json:"doctor_id"`
	Status    *AppointmentStatus `json:"status"`
	StartDate *time.Time         `json:"start_date"`
	EndDate   *time.Time         `json:"end_date"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// AppointmentEvent is pushed to connected patients and doctors whenever an
// appointment changes status.
type AppointmentEvent struct {
	AppointmentID int64             `json:"appointment_id"`
	PatientID     int64             `json:"patient_id"`
	DoctorUserID  int64             `json:"doctor_user_id"`
	Date          string            `json:"date"`
	SlotNumber    int               `json:"slot_number"`
	Status        AppointmentStatus `json:"status"`
	OccurredAt    time.Time         `json:"occurred_at"`
}
