package models

import (
	"time"

	"github.com/google/uuid"
)

type InterestStatus string

const (
	StatusCreated   InterestStatus = "CREATED"
	StatusInContact InterestStatus = "IN_CONTACT"
	StatusAccepted  InterestStatus = "ACCEPTED"
	StatusRejected  InterestStatus = "REJECTED"
	StatusClosed    InterestStatus = "CLOSED"
)

// Layouts used for the availability window and the chosen slot.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
	SlotLayout = "2006-01-02T15:04"

	// SlotLayoutSeconds is also accepted for chosen slots.
	SlotLayoutSeconds = "2006-01-02T15:04:05"
)

func (s InterestStatus) Known() bool {
	switch s {
	case StatusCreated, StatusInContact, StatusAccepted, StatusRejected, StatusClosed:
		return true
	}
	return false
}

// Availability is the window an owner offers. Dates and times are wall-clock
// values in UTC.
type Availability struct {
	StartDate           string `json:"start_date"`
	EndDate             string `json:"end_date"`
	StartTime           string `json:"start_time"`
	EndTime             string `json:"end_time"`
	SlotDurationMinutes int    `json:"slot_duration_minutes"`
}

type InterestRequest struct {
	ID                            uuid.UUID      `json:"id"`
	PostID                        int            `json:"post_id"`
	StudentID                     int            `json:"student_id"`
	Status                        InterestStatus `json:"status"`
	Message                       string         `json:"message"`
	Availability                  *Availability  `json:"availability,omitempty"`
	AppointmentMessage            string         `json:"appointment_message,omitempty"`
	AppointmentDateTime           *time.Time     `json:"appointment_date_time,omitempty"`
	AppointmentConfirmedByStudent bool           `json:"appointment_confirmed_by_student"`
	LastUpdatedBy                 *int           `json:"last_updated_by,omitempty"`
	RowVersion                    int64          `json:"-"`
	CreatedAt                     time.Time      `json:"created_at"`
	UpdatedAt                     time.Time      `json:"updated_at"`

	// joined from posts/users, read-only
	PostTitle      string `json:"post_title,omitempty"`
	PostOwnerID    int    `json:"post_owner_id"`
	PostOwnerEmail string `json:"-"`
	StudentEmail   string `json:"-"`
}

type CreateInterestRequest struct {
	PostID  int    `json:"post_id" validate:"required,gt=0"`
	Message string `json:"message" validate:"max=2000"`
}

type ProposeAvailabilityRequest struct {
	StartDate           string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate             string `json:"end_date" validate:"required,datetime=2006-01-02"`
	StartTime           string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime             string `json:"end_time" validate:"required,datetime=15:04"`
	SlotDurationMinutes int    `json:"slot_duration_minutes" validate:"required,gt=0"`
	Message             string `json:"message" validate:"max=2000"`
}

type ConfirmAppointmentRequest struct {
	// ChosenSlot is "YYYY-MM-DDTHH:MM", UTC wall-clock.
	ChosenSlot string `json:"chosen_slot" validate:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
