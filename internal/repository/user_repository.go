package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/spec-kit/space-booking/internal/domain"
)

// UserRecord is a stored account. The hash never leaves the backend.
type UserRecord struct {
	domain.User
	PasswordHash string
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *UserRecord) error
	Update(ctx context.Context, user *UserRecord) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*UserRecord, error)
	// GetByIdentifier matches a username or an email, case-insensitively.
	GetByIdentifier(ctx context.Context, identifier string) (*UserRecord, error)
	List(ctx context.Context) ([]UserRecord, error)
}

type userRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]UserRecord
}

// NewUserRepository returns an in-memory implementation.
func NewUserRepository() UserRepository {
	return &userRepository{rows: make(map[int64]UserRecord)}
}

func (r *userRepository) Create(_ context.Context, user *UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken(user.Username, user.Email, 0) {
		return ErrDuplicate
	}
	r.nextID++
	user.ID = r.nextID
	r.rows[user.ID] = *user
	return nil
}

func (r *userRepository) Update(_ context.Context, user *UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[user.ID]; !ok {
		return ErrNotFound
	}
	if r.taken(user.Username, user.Email, user.ID) {
		return ErrDuplicate
	}
	r.rows[user.ID] = *user
	return nil
}

func (r *userRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id int64) (*UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (r *userRepository) GetByIdentifier(_ context.Context, identifier string) (*UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if strings.EqualFold(row.Username, identifier) || strings.EqualFold(row.Email, identifier) {
			found := row
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r *userRepository) List(_ context.Context) ([]UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]UserRecord, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *userRepository) taken(username, email string, except int64) bool {
	for id, row := range r.rows {
		if id == except {
			continue
		}
		if strings.EqualFold(row.Username, username) || strings.EqualFold(row.Email, email) {
			return true
		}
	}
	return false
}
