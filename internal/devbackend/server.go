// Package devbackend is an in-memory implementation of the booking backend
// contract, for local runs and end-to-end tests of the gateway.
package devbackend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/auth"
	"github.com/spec-kit/space-booking/internal/config"
	"github.com/spec-kit/space-booking/internal/domain"
	"github.com/spec-kit/space-booking/internal/events"
	"github.com/spec-kit/space-booking/internal/repository"
	"github.com/spec-kit/space-booking/internal/service"
	"github.com/spec-kit/space-booking/internal/worker"
	apperrors "github.com/spec-kit/space-booking/pkg/util"
)

// Server bundles the dev backend app with what must be released on shutdown.
type Server struct {
	App  *fiber.App
	stop func()
}

// Close stops background handlers.
func (s *Server) Close() {
	if s.stop != nil {
		s.stop()
	}
}

// DefaultSeedSpaces gives a fresh backend something to book.
func DefaultSeedSpaces() []domain.SpaceInput {
	return []domain.SpaceInput{
		{Name: "Meeting Room A", Capacity: 8, Type: domain.SpaceTypeRoom},
		{Name: "Meeting Room B", Capacity: 4, Type: domain.SpaceTypeRoom},
		{Name: "Hot Desk 1", Capacity: 1, Type: domain.SpaceTypeTable},
		{Name: "Hot Desk 2", Capacity: 1, Type: domain.SpaceTypeTable},
	}
}

// New wires repositories, services and routes, and seeds the admin account.
// publicURL is the externally visible base used for image links.
func New(ctx context.Context, cfg *config.Config, publicURL string, seeds []domain.SpaceInput, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	users := repository.NewUserRepository()
	spaces := repository.NewSpaceRepository()
	reservations := repository.NewReservationRepository()
	images := repository.NewImageRepository()
	dispatcher := events.NewInMemoryDispatcher(logger)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{UserRepo: users})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo: users, ImageRepo: images, ImageBaseURL: publicURL, BcryptCost: cfg.Auth.BcryptCost,
	})
	spaceService := service.NewSpaceService(service.SpaceDependencies{
		SpaceRepo: spaces, ImageRepo: images, ImageBaseURL: publicURL,
	})
	reservationService := service.NewReservationService(service.ReservationDependencies{
		ReservationRepo: reservations, SpaceRepo: spaces, UserRepo: users, Dispatcher: dispatcher, Logger: logger,
	})
	stop := worker.StartNotificationWorker(service.NewNotificationService(dispatcher, reservationService, logger))

	if err := authService.SeedAdmin(ctx, cfg.DevBackend.AdminUsername, cfg.DevBackend.AdminEmail, cfg.DevBackend.AdminPassword); err != nil {
		stop()
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	for _, seed := range seeds {
		if _, err := spaceService.Create(ctx, seed, nil); err != nil {
			stop()
			return nil, fmt.Errorf("seed space %q: %w", seed.Name, err)
		}
	}

	app := fiber.New(fiber.Config{
		AppName:               "space-booking-devbackend",
		DisableStartupMessage: true,
		BodyLimit:             20 << 20,
		ErrorHandler:          errorHandler(logger),
	})

	h := &handlers{
		auth:         authService,
		users:        userService,
		spaces:       spaceService,
		reservations: reservationService,
		images:       images,
	}
	registerRoutes(app, h, auth.NewBearerAuth(authService.TokenManager()))

	logger.Info("dev backend ready",
		zap.String("admin", cfg.DevBackend.AdminUsername),
		zap.Int("seeded_spaces", len(seeds)))
	return &Server{App: app, stop: stop}, nil
}

func registerRoutes(app *fiber.App, h *handlers, bearer *auth.BearerAuth) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/images/:key", h.image)

	api := app.Group("/api")
	api.Post("/auth/login", h.login)
	api.Post("/auth/register", h.register)

	api.Get("/spaces", h.listSpaces)
	api.Get("/spaces/filter/type", h.spacesByType)
	api.Get("/spaces/:id", h.getSpace)
	api.Post("/spaces", bearer.Handle, auth.RequireAdmin(), h.createSpace)
	api.Put("/spaces/:id", bearer.Handle, auth.RequireAdmin(), h.updateSpace)
	api.Delete("/spaces/:id", bearer.Handle, auth.RequireAdmin(), h.deleteSpace)

	api.Get("/reservations", bearer.Handle, auth.RequireAdmin(), h.listReservations)
	api.Post("/reservations", bearer.Handle, auth.RequireNonAdmin(), h.createReservation)
	api.Get("/reservations/me", bearer.Handle, h.myReservations)
	api.Delete("/reservations/:id", bearer.Handle, h.deleteReservation)

	api.Get("/users", bearer.Handle, auth.RequireAdmin(), h.listUsers)
	api.Get("/users/me", bearer.Handle, h.me)
	api.Put("/users/me", bearer.Handle, h.updateMe)
	api.Delete("/users/:id", bearer.Handle, auth.RequireAdmin(), h.deleteUser)
}

// errorHandler renders failures the way the real backend does: {"status", "message"}.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := http.StatusInternalServerError
		message := http.StatusText(status)

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status, message = fiberErr.Code, fiberErr.Message
		} else {
			de := apperrors.ToDomainError(err)
			status, message = de.HTTPStatus, de.Message
		}
		if status >= 500 {
			logger.Error("dev backend request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"status": status, "message": message})
	}
}
