package domain

import (
	"strings"
	"time"
)

// TimeSlot is the part of the day a reservation covers.
type TimeSlot string

const (
	TimeSlotMorning   TimeSlot = "MORNING"
	TimeSlotAfternoon TimeSlot = "AFTERNOON"
	TimeSlotFullDay   TimeSlot = "FULL_DAY"
)

// Valid reports whether s is a known slot.
func (s TimeSlot) Valid() bool {
	switch s {
	case TimeSlotMorning, TimeSlotAfternoon, TimeSlotFullDay:
		return true
	}
	return false
}

// ParseTimeSlot accepts any casing and "full-day".
func ParseTimeSlot(raw string) (TimeSlot, bool) {
	s := TimeSlot(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(raw)), "-", "_"))
	return s, s.Valid()
}

// Overlaps reports whether two slots on the same day collide.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s == other || s == TimeSlotFullDay || other == TimeSlotFullDay
}

// ReservationStatus enumerates reservation lifecycle states.
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "ACTIVE"
	ReservationStatusCompleted ReservationStatus = "COMPLETED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// ParseReservationStatus accepts any casing.
func ParseReservationStatus(raw string) (ReservationStatus, bool) {
	s := ReservationStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case ReservationStatusActive, ReservationStatusCompleted, ReservationStatusCancelled:
		return s, true
	}
	return s, false
}

// DateLayout is the wire format of reservation dates.
const DateLayout = "2006-01-02"

// Reservation is a booking as listed by the backend.
type Reservation struct {
	ID              int64             `json:"id"`
	ReservationDate string            `json:"reservationDate"`
	TimeSlot        TimeSlot          `json:"timeSlot"`
	Status          ReservationStatus `json:"status"`
	EmailSent       bool              `json:"emailSent"`
	CreatedAt       time.Time         `json:"createdAt"`
	UserID          int64             `json:"userId"`
	Username        string            `json:"username"`
	SpaceID         int64             `json:"spaceId"`
	SpaceName       string            `json:"spaceName"`
}

// ReservationRequest is the body of a reservation POST.
type ReservationRequest struct {
	SpaceID         int64    `json:"spaceId"`
	ReservationDate string   `json:"reservationDate"`
	TimeSlot        TimeSlot `json:"timeSlot"`
}

// FilterReservations keeps reservations with the given status; an empty status keeps all.
func FilterReservations(in []Reservation, status ReservationStatus) []Reservation {
	if status == "" {
		return in
	}
	out := make([]Reservation, 0, len(in))
	for _, r := range in {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}
