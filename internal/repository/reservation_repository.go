package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/space-booking/internal/domain"
)

// ReservationFilter narrows List. Zero values match everything.
type ReservationFilter struct {
	UserID  int64
	SpaceID int64
	Status  domain.ReservationStatus
}

// ReservationRepository persists reservations.
type ReservationRepository interface {
	// Create stores reservation unless an ACTIVE reservation for the same
	// space and date overlaps its time slot, in which case ErrOverlap is returned.
	Create(ctx context.Context, reservation *domain.Reservation) error
	Update(ctx context.Context, reservation *domain.Reservation) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	List(ctx context.Context, filter ReservationFilter) ([]domain.Reservation, error)
}

type reservationRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]domain.Reservation
}

// NewReservationRepository returns an in-memory implementation.
func NewReservationRepository() ReservationRepository {
	return &reservationRepository{rows: make(map[int64]domain.Reservation)}
}

func (r *reservationRepository) Create(_ context.Context, reservation *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Status != domain.ReservationStatusActive ||
			row.SpaceID != reservation.SpaceID ||
			row.ReservationDate != reservation.ReservationDate {
			continue
		}
		if row.TimeSlot.Overlaps(reservation.TimeSlot) {
			return ErrOverlap
		}
	}
	r.nextID++
	reservation.ID = r.nextID
	r.rows[reservation.ID] = *reservation
	return nil
}

func (r *reservationRepository) Update(_ context.Context, reservation *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[reservation.ID]; !ok {
		return ErrNotFound
	}
	r.rows[reservation.ID] = *reservation
	return nil
}

func (r *reservationRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *reservationRepository) GetByID(_ context.Context, id int64) (*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (r *reservationRepository) List(_ context.Context, filter ReservationFilter) ([]domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Reservation, 0, len(r.rows))
	for _, row := range r.rows {
		switch {
		case filter.UserID != 0 && row.UserID != filter.UserID:
			continue
		case filter.SpaceID != 0 && row.SpaceID != filter.SpaceID:
			continue
		case filter.Status != "" && row.Status != filter.Status:
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReservationDate != out[j].ReservationDate {
			return out[i].ReservationDate < out[j].ReservationDate
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
