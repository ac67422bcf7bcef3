package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/space-booking/internal/api/http"
	"github.com/spec-kit/space-booking/internal/config"
	"github.com/spec-kit/space-booking/internal/gateway"
	"github.com/spec-kit/space-booking/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, "gateway")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	routes := gateway.DefaultRoutes()
	if cfg.Gateway.RoutesFile != "" {
		routes, err = gateway.LoadRoutes(cfg.Gateway.RoutesFile)
		if err != nil {
			logger.Fatal("failed to load route table", zap.String("file", cfg.Gateway.RoutesFile), zap.Error(err))
		}
	}

	app := httptransport.NewGatewayApp(cfg, routes, logger)

	go func() {
		logger.Info("gateway listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("backend", cfg.Backend.URL),
			zap.Int("routes", len(routes)))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
