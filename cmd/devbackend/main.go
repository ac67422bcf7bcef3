package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/config"
	"github.com/spec-kit/space-booking/internal/devbackend"
	"github.com/spec-kit/space-booking/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, "devbackend")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	addr := cfg.DevBackend.Addr()
	srv, err := devbackend.New(context.Background(), cfg, "http://"+addr, devbackend.DefaultSeedSpaces(), logger)
	if err != nil {
		logger.Fatal("failed to start dev backend", zap.Error(err))
	}
	defer srv.Close()

	go func() {
		logger.Info("dev backend listening", zap.String("addr", addr))
		if err := srv.App.Listen(addr); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = srv.App.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
