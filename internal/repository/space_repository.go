package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/space-booking/internal/domain"
)

// SpaceRepository persists bookable spaces.
type SpaceRepository interface {
	Create(ctx context.Context, space *domain.Space) error
	Update(ctx context.Context, space *domain.Space) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Space, error)
	// List returns every space, or only those of spaceType when it is set.
	List(ctx context.Context, spaceType domain.SpaceType) ([]domain.Space, error)
}

type spaceRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]domain.Space
}

// NewSpaceRepository returns an in-memory implementation.
func NewSpaceRepository() SpaceRepository {
	return &spaceRepository{rows: make(map[int64]domain.Space)}
}

func (r *spaceRepository) Create(_ context.Context, space *domain.Space) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	space.ID = r.nextID
	r.rows[space.ID] = *space
	return nil
}

func (r *spaceRepository) Update(_ context.Context, space *domain.Space) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[space.ID]; !ok {
		return ErrNotFound
	}
	r.rows[space.ID] = *space
	return nil
}

func (r *spaceRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *spaceRepository) GetByID(_ context.Context, id int64) (*domain.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (r *spaceRepository) List(_ context.Context, spaceType domain.SpaceType) ([]domain.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Space, 0, len(r.rows))
	for _, row := range r.rows {
		if spaceType != "" && row.Type != spaceType {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
