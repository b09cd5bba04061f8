package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/voidcell/enclave/internal/engine"
	"github.com/voidcell/enclave/internal/infrastructure/config"
	"github.com/voidcell/enclave/internal/infrastructure/logging"
	"github.com/voidcell/enclave/internal/infrastructure/monitoring"
	"github.com/voidcell/enclave/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			log.Fatalf("Failed to create logger: %v", err)
		}
	}

	metrics := monitoring.NewMetrics()

	eng, err := engine.New(
		engine.WithConfig(cfg.Engine),
		engine.WithLogger(logger),
		engine.WithMetrics(metrics),
	)
	if err != nil {
		logger.Fatal("Failed to initialize engine", zap.Error(err))
	}

	if !cfg.Server.Enabled {
		logger.Info("debug server disabled, engine idle until signalled")
		waitForSignal()
		shutdown(eng, nil, logger)
		return
	}

	srv := server.New(cfg.Server, eng, logger, metrics)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutting down")
		shutdown(eng, srv, logger)
	case err := <-errChan:
		logger.Error("server error", zap.Error(err))
		shutdown(eng, nil, logger)
		os.Exit(1)
	}
}

func waitForSignal() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
}

func shutdown(eng *engine.Engine, srv *server.Server, logger *logging.Logger) {
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("server shutdown error", zap.Error(err))
		}
	}
	if err := eng.Close(); err != nil {
		logger.Warn("engine shutdown error", zap.Error(err))
	}
}
