package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"github.com/Tyrowin/roomrelay/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the relay together and blocks until a signal or a server error.
func run() error {
	_ = godotenv.Load()

	cfg, err := server.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	router, err := server.NewRouter(*cfg)
	if err != nil {
		return err
	}
	metrics := server.NewMetrics()
	hub := server.NewHub(*cfg, log, router, metrics)
	go hub.Run()
	log.Info("Hub started and ready to manage WebSocket connections", "rooms", cfg.Rooms)

	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes(hub, metrics))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		if err := server.StartServer(httpServer, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		_ = hub.Shutdown(cfg.ShutdownTimeout)
		return err
	}

	serverErr := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, log)
	hubErr := hub.Shutdown(cfg.ShutdownTimeout)
	if err := errors.Join(serverErr, hubErr); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("Server stopped cleanly")
	return nil
}
