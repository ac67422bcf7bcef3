package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCredentialStored  EventType = "credential_stored"
	EventCredentialCleared EventType = "credential_cleared"
	EventSessionChanged    EventType = "session_changed"

	EventReservationCreated   EventType = "reservation_created"
	EventReservationCancelled EventType = "reservation_cancelled"
)

// Event is a notification that something observable changed. Subject names
// what changed: a credential slot or a reservation id.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject"`
	Source    string      `json:"source,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// CredentialStoredPayload carries the raw credential written to a slot.
type CredentialStoredPayload struct {
	Credential string `json:"credential"`
}

// SessionChangedPayload summarizes the new session state for observers.
type SessionChangedPayload struct {
	Authenticated bool   `json:"authenticated"`
	Subject       string `json:"subject,omitempty"`
	Role          string `json:"role,omitempty"`
}

// ReservationPayload describes a reservation for notification handlers.
type ReservationPayload struct {
	ReservationID int64  `json:"reservationId"`
	Username      string `json:"username"`
	Email         string `json:"email,omitempty"`
	SpaceName     string `json:"spaceName"`
	Date          string `json:"reservationDate"`
	TimeSlot      string `json:"timeSlot"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, subject, source string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
