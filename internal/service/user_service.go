package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/space-booking/internal/auth"
	"github.com/spec-kit/space-booking/internal/domain"
	"github.com/spec-kit/space-booking/internal/repository"
	apperrors "github.com/spec-kit/space-booking/pkg/util"
)

// UserService manages accounts after registration.
type UserService struct {
	users        repository.UserRepository
	images       repository.ImageRepository
	imageBaseURL string
	bcryptCost   int
}

// UserDependencies bundles repositories for the user service.
type UserDependencies struct {
	UserRepo     repository.UserRepository
	ImageRepo    repository.ImageRepository
	ImageBaseURL string
	BcryptCost   int
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:        deps.UserRepo,
		images:       deps.ImageRepo,
		imageBaseURL: deps.ImageBaseURL,
		bcryptCost:   deps.BcryptCost,
	}
}

// Get returns one account.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	record, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("user", err)
	}
	user := record.User
	return &user, nil
}

// List returns every account.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	records, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(records))
	for _, r := range records {
		out = append(out, r.User)
	}
	return out, nil
}

// Update applies the non-empty fields of update and an optional avatar.
func (s *UserService) Update(ctx context.Context, id int64, update domain.UserUpdate, image *ImageUpload) (*domain.User, error) {
	record, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("user", err)
	}

	if v := strings.TrimSpace(update.Username); v != "" {
		record.Username = v
	}
	if v := strings.TrimSpace(update.Email); v != "" {
		if !strings.Contains(v, "@") {
			return nil, apperrors.NewValidationError("invalid email", nil)
		}
		record.Email = v
	}
	if update.Password != "" {
		hash, err := auth.HashPassword(update.Password, s.bcryptCost)
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		record.PasswordHash = hash
	}
	if record.ImageURL, err = storeImage(ctx, s.images, s.imageBaseURL, image, record.ImageURL); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("Username or email already registered", nil)
		}
		return nil, err
	}
	user := record.User
	return &user, nil
}

// Delete removes an account. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return apperrors.NewValidationError("you cannot delete your own account", nil)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return notFound("user", err)
	}
	return nil
}

func notFound(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}
