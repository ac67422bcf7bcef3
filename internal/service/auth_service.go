package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/space-booking/internal/auth"
	"github.com/spec-kit/space-booking/internal/config"
	"github.com/spec-kit/space-booking/internal/domain"
	"github.com/spec-kit/space-booking/internal/repository"
	apperrors "github.com/spec-kit/space-booking/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates an end-user account. It does not issue a token.
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	return s.create(ctx, req, domain.RoleUser)
}

// SeedAdmin creates the admin account unless the username is already taken.
func (s *AuthService) SeedAdmin(ctx context.Context, username, email, password string) error {
	if _, err := s.users.GetByIdentifier(ctx, username); err == nil {
		return nil
	}
	_, err := s.create(ctx, domain.RegisterRequest{Username: username, Email: email, Password: password}, domain.RoleAdmin)
	return err
}

func (s *AuthService) create(ctx context.Context, req domain.RegisterRequest, role string) (*domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || !strings.Contains(req.Email, "@") {
		return nil, apperrors.NewValidationError("username and a valid email are required", nil)
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	record := &repository.UserRecord{
		User:         domain.User{Username: req.Username, Email: req.Email, Role: role},
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("Username or email already registered", nil)
		}
		return nil, err
	}
	user := record.User
	return &user, nil
}

// Login authenticates by username or email and issues a signed token.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResult, error) {
	user, err := s.users.GetByIdentifier(ctx, strings.TrimSpace(req.Identifier))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.LoginResult{}, apperrors.NewUnauthorized("Invalid credentials")
		}
		return domain.LoginResult{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, req.Password); err != nil {
		return domain.LoginResult{}, apperrors.NewUnauthorized("Invalid credentials")
	}
	token, _, err := s.tokenMgr.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return domain.LoginResult{}, apperrors.NewInternalError(err)
	}
	return domain.LoginResult{Token: token, Username: user.Username, Role: user.Role}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
