package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Image is an uploaded space or profile picture.
type Image struct {
	Key         string
	FileName    string
	ContentType string
	Data        []byte
}

// ImageRepository stores uploaded images under generated keys.
type ImageRepository interface {
	Put(ctx context.Context, img *Image) error
	Get(ctx context.Context, key string) (*Image, error)
	Delete(ctx context.Context, key string) error
}

type imageRepository struct {
	mu   sync.RWMutex
	rows map[string]Image
}

// NewImageRepository returns an in-memory implementation.
func NewImageRepository() ImageRepository {
	return &imageRepository{rows: make(map[string]Image)}
}

// Put assigns img a fresh key.
func (r *imageRepository) Put(_ context.Context, img *Image) error {
	img.Key = uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[img.Key] = *img
	return nil
}

func (r *imageRepository) Get(_ context.Context, key string) (*Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (r *imageRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, key)
	return nil
}
