package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"academy/internal/app"
	"academy/internal/config"
	"academy/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "academy-api", cfg.OTELEndpoint)
	if err != nil {
		log.Printf("warning: tracing disabled: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	a, err := app.New(ctx, cfg, "academy-api")
	if err != nil {
		return err
	}
	defer a.Close()

	go a.WatchSettings(ctx)

	// With the in-memory queue only this process can see the jobs.
	if cfg.QueueBackend == "memory" {
		go func() {
			if err := a.RunWorker(ctx); err != nil {
				log.Printf("in-process worker stopped: %v", err)
			}
		}()
	}

	srv := a.Server()
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
