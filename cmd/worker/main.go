package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"academy/internal/app"
	"academy/internal/config"
	"academy/internal/telemetry"
)

// Worker uploads walkie clips and closes check-ins left open.
func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}
	if cfg.QueueBackend == "memory" {
		log.Println("QUEUE_BACKEND=memory: jobs are handled inside the api process, worker exits")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	shutdownTracing, err := telemetry.Setup(ctx, "academy-worker", cfg.OTELEndpoint)
	if err != nil {
		log.Printf("warning: tracing disabled: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = shutdownTracing(shutdownCtx)
	}()

	a, err := app.New(ctx, cfg, "academy-worker")
	if err != nil {
		log.Fatalf("worker init failed: %v", err)
	}
	defer a.Close()

	log.Println("worker started, waiting for jobs...")
	if err := a.RunWorker(ctx); err != nil {
		log.Printf("queue consume failed: %v", err)
	}
	log.Println("worker stopped")
}
