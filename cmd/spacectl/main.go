package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/cli"
	"github.com/spec-kit/space-booking/internal/config"
	"github.com/spec-kit/space-booking/internal/credstore"
	"github.com/spec-kit/space-booking/internal/observability"
	"github.com/spec-kit/space-booking/internal/portal"
	"github.com/spec-kit/space-booking/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewCLILogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, logger, os.Args[1:]))
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) int {
	slot, err := credstore.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open credential slot", zap.Error(err))
		return 1
	}
	defer slot.Close()

	client, err := portal.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Error("failed to create gateway client", zap.Error(err))
		return 1
	}

	store := session.New(slot, session.WithLogger(logger))
	app := cli.NewApp(client, store, logger, os.Stdin, os.Stdout)

	if err := app.Run(ctx, args); err != nil {
		if !errors.Is(err, cli.ErrNotCreated) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		if errors.Is(err, cli.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}
