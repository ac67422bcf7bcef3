package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/domain"
	"github.com/spec-kit/space-booking/internal/events"
	"github.com/spec-kit/space-booking/internal/repository"
	apperrors "github.com/spec-kit/space-booking/pkg/util"
)

// Actor is the verified caller of a reservation operation.
type Actor struct {
	UserID   int64
	Username string
	Admin    bool
}

// ReservationService coordinates reservation workflows.
type ReservationService struct {
	reservations repository.ReservationRepository
	spaces       repository.SpaceRepository
	users        repository.UserRepository
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	now          func() time.Time
}

// ReservationDependencies bundles repositories for the reservation service.
type ReservationDependencies struct {
	ReservationRepo repository.ReservationRepository
	SpaceRepo       repository.SpaceRepository
	UserRepo        repository.UserRepository
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
}

// NewReservationService constructs the service.
func NewReservationService(deps ReservationDependencies) *ReservationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{
		reservations: deps.ReservationRepo,
		spaces:       deps.SpaceRepo,
		users:        deps.UserRepo,
		dispatcher:   deps.Dispatcher,
		logger:       logger,
		now:          time.Now,
	}
}

// Create books a space for actor. An overlapping ACTIVE reservation yields a 409.
func (s *ReservationService) Create(ctx context.Context, actor Actor, req domain.ReservationRequest) (*domain.Reservation, error) {
	details := map[string]any{}
	if !req.TimeSlot.Valid() {
		details["timeSlot"] = "must be MORNING, AFTERNOON or FULL_DAY"
	}
	if _, err := time.Parse(domain.DateLayout, req.ReservationDate); err != nil {
		details["reservationDate"] = "must be YYYY-MM-DD"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid reservation", details)
	}

	space, err := s.spaces.GetByID(ctx, req.SpaceID)
	if err != nil {
		return nil, notFound("space", err)
	}

	reservation := &domain.Reservation{
		ReservationDate: req.ReservationDate,
		TimeSlot:        req.TimeSlot,
		Status:          domain.ReservationStatusActive,
		CreatedAt:       s.now().UTC(),
		UserID:          actor.UserID,
		Username:        actor.Username,
		SpaceID:         space.ID,
		SpaceName:       space.Name,
	}
	if err := s.reservations.Create(ctx, reservation); err != nil {
		if errors.Is(err, repository.ErrOverlap) {
			return nil, apperrors.NewConflict("Space already reserved for this date and time slot", map[string]any{
				"spaceId":         req.SpaceID,
				"reservationDate": req.ReservationDate,
				"timeSlot":        req.TimeSlot,
			})
		}
		return nil, err
	}

	s.publish(ctx, events.EventReservationCreated, reservation)
	return reservation, nil
}

// List returns every reservation, optionally with one status.
func (s *ReservationService) List(ctx context.Context, status domain.ReservationStatus) ([]domain.Reservation, error) {
	return s.reservations.List(ctx, repository.ReservationFilter{Status: status})
}

// ListMine returns the actor's reservations.
func (s *ReservationService) ListMine(ctx context.Context, actor Actor, status domain.ReservationStatus) ([]domain.Reservation, error) {
	return s.reservations.List(ctx, repository.ReservationFilter{UserID: actor.UserID, Status: status})
}

// Delete removes a reservation. Owners may delete their own; admins any.
func (s *ReservationService) Delete(ctx context.Context, actor Actor, id int64) error {
	reservation, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return notFound("reservation", err)
	}
	if !actor.Admin && reservation.UserID != actor.UserID {
		return apperrors.NewForbidden("not your reservation")
	}
	if err := s.reservations.Delete(ctx, id); err != nil {
		return notFound("reservation", err)
	}
	reservation.Status = domain.ReservationStatusCancelled
	s.publish(ctx, events.EventReservationCancelled, reservation)
	return nil
}

// MarkEmailSent flags a reservation whose confirmation went out.
func (s *ReservationService) MarkEmailSent(ctx context.Context, id int64) error {
	reservation, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return notFound("reservation", err)
	}
	reservation.EmailSent = true
	return s.reservations.Update(ctx, reservation)
}

func (s *ReservationService) publish(ctx context.Context, eventType events.EventType, r *domain.Reservation) {
	if s.dispatcher == nil {
		return
	}
	payload := events.ReservationPayload{
		ReservationID: r.ID,
		Username:      r.Username,
		SpaceName:     r.SpaceName,
		Date:          r.ReservationDate,
		TimeSlot:      string(r.TimeSlot),
	}
	if user, err := s.users.GetByID(ctx, r.UserID); err == nil {
		payload.Email = user.Email
	}
	event := events.NewEvent(eventType, strconv.FormatInt(r.ID, 10), "reservations", payload)
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish reservation event", zap.String("type", string(eventType)), zap.Error(err))
	}
}
