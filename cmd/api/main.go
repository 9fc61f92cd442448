package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ludo-server/internal/config"
	"ludo-server/internal/server"
)

func gracefulShutdown(customServer *server.Server, httpServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	zap.L().Info("shutdown signal received, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Notify and close live connections before tearing down HTTP.
	if err := customServer.Shutdown(ctx); err != nil {
		zap.L().Error("error during server shutdown", zap.Error(err))
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		zap.L().Error("http server forced to shutdown", zap.Error(err))
	}

	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	customServer, httpServer := server.New(cfg)

	done := make(chan bool, 1)
	go gracefulShutdown(customServer, httpServer, done)

	zap.L().Info("listening", zap.Uint16("port", cfg.HTTPServerPort))
	err = httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		zap.L().Fatal("http server error", zap.Error(err))
	}

	<-done
	zap.L().Info("graceful shutdown complete")
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
