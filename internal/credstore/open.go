package credstore

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/config"
	"github.com/spec-kit/space-booking/internal/events"
	"github.com/spec-kit/space-booking/internal/persistence"
)

// Open builds the slot selected by CREDENTIAL_STORE_DRIVER.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Slot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := cfg.CredentialStore
	logger = logger.With(zap.String("slot_driver", store.Driver), zap.String("slot", store.Slot))

	switch strings.ToLower(store.Driver) {
	case "memory":
		return NewMemory(store.Slot, events.NewInMemoryDispatcher(logger)), nil

	case "sqlite", "":
		return OpenSQLite(ctx, store.SQLitePath, store.Slot, store.PollInterval(), logger)

	case "redis":
		conn, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("open redis slot: %w", err)
		}
		return NewRedis(conn.Client, store.Slot, logger, func() error {
			conn.Close()
			return nil
		}), nil

	case "postgres":
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("open postgres slot: %w", err)
		}
		return NewPostgres(pg.Pool, store.Slot, logger, pg.Close), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, store.Driver)
	}
}
