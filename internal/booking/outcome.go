// Package booking submits reservations and turns the gateway's answer into
// one of three outcomes: Created, Conflict or Failed.
package booking

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/space-booking/internal/domain"
)

// Kind tags an Outcome.
type Kind string

const (
	KindCreated  Kind = "created"
	KindConflict Kind = "conflict"
	KindFailed   Kind = "failed"
)

const (
	msgCreated = "Reservation created successfully"
	msgFailed  = "Unexpected error creating reservation"
)

// ErrInvalidIntent is returned by Intent.Validate.
var ErrInvalidIntent = errors.New("invalid reservation")

// Intent is what the user asked to book.
type Intent struct {
	SpaceID  int64
	Date     string
	TimeSlot domain.TimeSlot
}

// Request is the wire body for the intent.
func (i Intent) Request() domain.ReservationRequest {
	return domain.ReservationRequest{SpaceID: i.SpaceID, ReservationDate: i.Date, TimeSlot: i.TimeSlot}
}

// Validate checks the fields locally; the backend still decides availability.
func (i Intent) Validate() error {
	switch {
	case i.SpaceID <= 0:
		return fmt.Errorf("%w: space id must be positive", ErrInvalidIntent)
	case !i.TimeSlot.Valid():
		return fmt.Errorf("%w: unknown time slot %q", ErrInvalidIntent, i.TimeSlot)
	}
	if _, err := time.Parse(domain.DateLayout, i.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidIntent)
	}
	return nil
}

// Outcome is the result of one submission. Refresh asks the view to reload
// its lists and is only set for Created.
type Outcome struct {
	Kind    Kind
	Message string
	Intent  Intent
	Status  int
	Refresh bool
}

// Title is the short heading shown with the message.
func (o Outcome) Title() string {
	switch o.Kind {
	case KindCreated:
		return "Reservation Created"
	case KindConflict:
		return "Reservation Unavailable"
	default:
		return "Reservation Failed"
	}
}

// Classify maps a gateway status, or the transport error that replaced it,
// onto an Outcome. It is the only place statuses are interpreted.
func Classify(status int, err error, intent Intent) Outcome {
	out := Outcome{Intent: intent, Status: status}
	switch {
	case err != nil:
		out.Status = 0
		out.Kind = KindFailed
		out.Message = msgFailed
	case status == http.StatusCreated:
		out.Kind = KindCreated
		out.Message = msgCreated
		out.Refresh = true
	case status == http.StatusConflict:
		out.Kind = KindConflict
		out.Message = conflictMessage(intent)
	default:
		out.Kind = KindFailed
		out.Message = msgFailed
	}
	return out
}

func conflictMessage(i Intent) string {
	slot := strings.ReplaceAll(string(i.TimeSlot), "_", " ")
	if slot == "" {
		slot = "that time"
	}
	date := i.Date
	if date == "" {
		date = "that date"
	}
	return fmt.Sprintf("This space is already booked for %s (%s). Please choose another one.", date, slot)
}
