package service

import (
	"context"
	"strings"

	"github.com/spec-kit/space-booking/internal/domain"
	"github.com/spec-kit/space-booking/internal/repository"
	apperrors "github.com/spec-kit/space-booking/pkg/util"
)

// SpaceService manages the catalogue of bookable spaces.
type SpaceService struct {
	spaces       repository.SpaceRepository
	images       repository.ImageRepository
	imageBaseURL string
}

// SpaceDependencies bundles repositories for the space service.
type SpaceDependencies struct {
	SpaceRepo    repository.SpaceRepository
	ImageRepo    repository.ImageRepository
	ImageBaseURL string
}

// NewSpaceService constructs the service.
func NewSpaceService(deps SpaceDependencies) *SpaceService {
	return &SpaceService{spaces: deps.SpaceRepo, images: deps.ImageRepo, imageBaseURL: deps.ImageBaseURL}
}

// List returns spaces, optionally of one type.
func (s *SpaceService) List(ctx context.Context, spaceType domain.SpaceType) ([]domain.Space, error) {
	return s.spaces.List(ctx, spaceType)
}

// Get returns one space.
func (s *SpaceService) Get(ctx context.Context, id int64) (*domain.Space, error) {
	space, err := s.spaces.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("space", err)
	}
	return space, nil
}

// Create adds a space.
func (s *SpaceService) Create(ctx context.Context, input domain.SpaceInput, image *ImageUpload) (*domain.Space, error) {
	if err := validateSpace(input); err != nil {
		return nil, err
	}
	space := &domain.Space{Name: strings.TrimSpace(input.Name), Capacity: input.Capacity, Type: input.Type}
	url, err := storeImage(ctx, s.images, s.imageBaseURL, image, "")
	if err != nil {
		return nil, err
	}
	space.ImageURL = url
	if err := s.spaces.Create(ctx, space); err != nil {
		return nil, err
	}
	return space, nil
}

// Update replaces a space's fields and, when given, its image.
func (s *SpaceService) Update(ctx context.Context, id int64, input domain.SpaceInput, image *ImageUpload) (*domain.Space, error) {
	if err := validateSpace(input); err != nil {
		return nil, err
	}
	space, err := s.spaces.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("space", err)
	}
	space.Name = strings.TrimSpace(input.Name)
	space.Capacity = input.Capacity
	space.Type = input.Type
	if space.ImageURL, err = storeImage(ctx, s.images, s.imageBaseURL, image, space.ImageURL); err != nil {
		return nil, err
	}
	if err := s.spaces.Update(ctx, space); err != nil {
		return nil, notFound("space", err)
	}
	return space, nil
}

// Delete removes a space.
func (s *SpaceService) Delete(ctx context.Context, id int64) error {
	space, err := s.spaces.GetByID(ctx, id)
	if err != nil {
		return notFound("space", err)
	}
	if key := imageKey(s.imageBaseURL, space.ImageURL); key != "" {
		_ = s.images.Delete(ctx, key)
	}
	return notFound("space", s.spaces.Delete(ctx, id))
}

func validateSpace(input domain.SpaceInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.Name) == "" {
		details["name"] = "required"
	}
	if input.Capacity <= 0 {
		details["capacity"] = "must be positive"
	}
	if !input.Type.Valid() {
		details["type"] = "must be ROOM or TABLE"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid space", details)
	}
	return nil
}
