package model

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// DateLayout is the calendar date format used on every boundary.
const DateLayout = "2006-01-02"

// ErrReservationNotFound is returned by stores for unknown ids.
var ErrReservationNotFound = errors.New("reservation not found")

// Input limits.
const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 240
	MaxNoteLength      = 500
	MaxStringLength    = 100
)

type AppointmentType string

const (
	TypeDelivery   AppointmentType = "delivery"
	TypeShipping   AppointmentType = "shipping"
	TypeService    AppointmentType = "service"
	TypeMeeting    AppointmentType = "meeting"
	TypeManagement AppointmentType = "management"
)

// ParseAppointmentType validates a raw type string.
func ParseAppointmentType(s string) (AppointmentType, bool) {
	switch t := AppointmentType(s); t {
	case TypeDelivery, TypeShipping, TypeService, TypeMeeting, TypeManagement:
		return t, true
	default:
		return "", false
	}
}

// CountsTowardDailyCap reports whether the type is limited by the daily delivery caps.
func (t AppointmentType) CountsTowardDailyCap() bool {
	return t == TypeDelivery || t == TypeShipping
}

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Customer carries the contact fields stored with a reservation.
type Customer struct {
	Name  string `json:"customer_name,omitempty"`
	Phone string `json:"customer_phone,omitempty"`
	Email string `json:"customer_email,omitempty"`
	Note  string `json:"note,omitempty"`
}

// Reservation is a persisted appointment occupying one slot.
type Reservation struct {
	ID        string          `json:"id"`
	Date      string          `json:"date"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	StaffID   string          `json:"staff_id,omitempty"`
	Type      AppointmentType `json:"appointment_type"`
	Profile   ProfileCode     `json:"profile"`
	Status    Status          `json:"status"`
	Customer
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Reservation) IsActive() bool {
	return r.Status != StatusCancelled
}

// Hour returns the start hour in loc.
func (r *Reservation) Hour(loc *time.Location) int {
	return r.StartTime.In(loc).Hour()
}

func (r *Reservation) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// OverlapsWith checks half-open interval intersection.
func (r *Reservation) OverlapsWith(other *Reservation) bool {
	return r.StartTime.Before(other.EndTime) && other.StartTime.Before(r.EndTime)
}

// Candidate is a proposed reservation submitted for validation.
type Candidate struct {
	Date      time.Time // midnight in the engine location
	Hour      int
	Type      AppointmentType
	StaffID   string
	Profile   ProfileCode
	ExcludeID string
	Duration  int // minutes; zero means the profile default
	Customer  Customer
}

// DateString formats the candidate date.
func (c *Candidate) DateString() string {
	return c.Date.Format(DateLayout)
}

// StartTime returns the slot start on the candidate date.
func (c *Candidate) StartTime() time.Time {
	return time.Date(c.Date.Year(), c.Date.Month(), c.Date.Day(), c.Hour, 0, 0, 0, c.Date.Location())
}

// Validate enforces the boundary contract. Universe membership is a rule, not a contract check.
func (c *Candidate) Validate() error {
	if c.Date.IsZero() {
		return errors.New("date is required")
	}
	if c.Hour < 0 || c.Hour > 23 {
		return fmt.Errorf("hour %d is not a clock hour", c.Hour)
	}
	if _, ok := ParseAppointmentType(string(c.Type)); !ok {
		return fmt.Errorf("unknown appointment type %q", c.Type)
	}
	if c.Duration != 0 && (c.Duration < MinDurationMinutes || c.Duration > MaxDurationMinutes) {
		return fmt.Errorf("duration must be between %d and %d minutes", MinDurationMinutes, MaxDurationMinutes)
	}

	fields := []struct{ name, value string }{
		{"staff_id", c.StaffID},
		{"customer_name", c.Customer.Name},
		{"customer_phone", c.Customer.Phone},
		{"customer_email", c.Customer.Email},
	}
	for _, f := range fields {
		if utf8.RuneCountInString(f.value) > MaxStringLength {
			return fmt.Errorf("%s exceeds %d characters", f.name, MaxStringLength)
		}
	}
	if utf8.RuneCountInString(c.Customer.Note) > MaxNoteLength {
		return fmt.Errorf("note exceeds %d characters", MaxNoteLength)
	}
	return nil
}
