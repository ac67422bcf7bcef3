package booking

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/domain"
)

// Submitter posts a reservation and reports the status it received.
// *portal.Client satisfies it.
type Submitter interface {
	CreateReservation(ctx context.Context, req domain.ReservationRequest) (int, error)
}

// Workflow performs exactly one authorized POST per submission.
type Workflow struct {
	client Submitter
	logger *zap.Logger
}

// NewWorkflow constructs a Workflow.
func NewWorkflow(client Submitter, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{client: client, logger: logger}
}

// Submit sends intent and classifies the answer. It never retries.
func (w *Workflow) Submit(ctx context.Context, intent Intent) Outcome {
	status, err := w.client.CreateReservation(ctx, intent.Request())
	out := Classify(status, err, intent)

	fields := []zap.Field{
		zap.Int64("space_id", intent.SpaceID),
		zap.String("date", intent.Date),
		zap.String("time_slot", string(intent.TimeSlot)),
		zap.Int("status", out.Status),
		zap.String("outcome", string(out.Kind)),
	}
	if err != nil {
		w.logger.Warn("reservation submission failed", append(fields, zap.Error(err))...)
	} else {
		w.logger.Info("reservation submitted", fields...)
	}
	return out
}
