package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/events"
)

// EmailMarker records that a confirmation email went out.
type EmailMarker interface {
	MarkEmailSent(ctx context.Context, id int64) error
}

// NotificationService sends reservation confirmations. Delivery is a log
// line; what matters to clients is the emailSent flag.
type NotificationService struct {
	dispatcher events.Dispatcher
	marker     EmailMarker
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, marker EmailMarker, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{dispatcher: dispatcher, marker: marker, logger: logger}
}

// RegisterHandlers subscribes to events and returns a func that unsubscribes.
func (n *NotificationService) RegisterHandlers() func() {
	if n.dispatcher == nil {
		return func() {}
	}
	created := n.dispatcher.Subscribe(events.EventReservationCreated, n.handleReservationCreated)
	cancelled := n.dispatcher.Subscribe(events.EventReservationCancelled, n.handleReservationCancelled)
	return func() {
		created()
		cancelled()
	}
}

func (n *NotificationService) handleReservationCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReservationPayload)
	if !ok {
		return nil
	}
	if payload.Email == "" {
		n.logger.Debug("no email on file, confirmation skipped", zap.String("reservation_id", event.Subject))
		return nil
	}
	n.logger.Info("ReservationCreated",
		zap.String("reservation_id", event.Subject),
		zap.String("to", payload.Email),
		zap.String("space", payload.SpaceName),
		zap.String("date", payload.Date),
		zap.String("time_slot", payload.TimeSlot))
	return n.marker.MarkEmailSent(ctx, payload.ReservationID)
}

func (n *NotificationService) handleReservationCancelled(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.ReservationPayload)
	n.logger.Info("ReservationCancelled",
		zap.String("reservation_id", event.Subject),
		zap.String("username", payload.Username),
		zap.String("date", payload.Date))
	return nil
}
