// Package app wires configuration, storage and services into one object
// shared by the API and worker binaries.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"academy/internal/account"
	"academy/internal/assessment"
	"academy/internal/attendance"
	"academy/internal/auth"
	"academy/internal/cloudinary"
	"academy/internal/config"
	"academy/internal/events"
	"academy/internal/httpmiddleware"
	"academy/internal/logger"
	"academy/internal/queue"
	"academy/internal/roster"
	"academy/internal/settings"
	"academy/internal/store"
	"academy/internal/walkie"
)

// App is the composition root. It owns every connection and service.
type App struct {
	Config   config.App
	Location *time.Location
	DB       *store.DB
	Redis    *store.Redis
	Bus      events.Bus
	Queue    queue.Queue
	Reporter *logger.Reporter
	Signer   *auth.Signer
	Limiter  httpmiddleware.Limiter

	Accounts   *account.Service
	Roster     *roster.Service
	Attendance *attendance.Service
	Assessment *assessment.Service
	Walkie     *walkie.Service
	Settings   *settings.Service
}

// New connects to Postgres and Redis, applies migrations and builds the
// services. service names the binary in error reports.
func New(ctx context.Context, cfg config.App, service string) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a := &App{
		Config:   cfg,
		Location: loc,
		Reporter: logger.New(log.Default(), cfg.RollbarToken, cfg.Env, service),
		Signer:   auth.NewSigner(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL),
	}

	a.DB, err = store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := store.Migrate(ctx, a.DB.Client); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a.Redis = store.NewRedis(cfg.RedisAddr)
	if !a.Redis.Healthy(ctx) {
		log.Printf("warning: redis not reachable at %s", cfg.RedisAddr)
	}

	if cfg.BusBackend == "memory" {
		a.Bus = events.NewMemory(64)
	} else {
		a.Bus = events.NewRedis(a.Redis.Client, "")
	}
	if cfg.QueueBackend == "memory" {
		a.Queue = queue.NewInMemory(64)
	} else {
		a.Queue = queue.NewRedisQueue(a.Redis.Client, "")
	}
	if cfg.RateLimitStore == "redis" {
		a.Limiter = httpmiddleware.NewRedisWindow(a.Redis.Client, cfg.RateLimitPerMin)
	} else {
		a.Limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}
	var drafts assessment.DraftStore
	if cfg.DraftBackend == "memory" {
		drafts = assessment.NewMemoryDrafts(cfg.DraftTTL)
	} else {
		drafts = assessment.NewRedisDrafts(a.Redis.Client, cfg.DraftTTL)
	}

	// Interfaces stay nil when Cloudinary is not configured.
	var images roster.ImageUploader
	var audio walkie.AudioUploader
	if cfg.Cloudinary.Enabled() {
		cdn := cloudinary.New(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.Folder)
		images, audio = cdn, cdn
		log.Println("Cloudinary configured:", cfg.Cloudinary.CloudName)
	} else {
		log.Println("Cloudinary not configured, clips are served from the database")
	}

	db := a.DB.Client
	a.Accounts = account.NewService(account.NewRepository(db), a.Signer)
	a.Roster = roster.NewService(roster.NewRepository(db), a.Bus, images)
	a.Attendance = attendance.NewService(attendance.NewRepository(db), a.Roster, a.Bus, loc)
	a.Assessment = assessment.NewService(assessment.NewRepository(db), drafts, a.Roster)
	a.Walkie = walkie.NewService(walkie.NewRepository(db), a.Queue, audio, a.Bus)
	a.Settings = settings.NewService(settings.NewRepository(db), a.Bus)
	return a, nil
}

// WatchSettings drops the cached settings whenever any replica changes them.
func (a *App) WatchSettings(ctx context.Context) {
	ch, err := a.Bus.Subscribe(ctx, events.SettingsChanged)
	if err != nil {
		log.Printf("settings watch failed: %v", err)
		return
	}
	for range ch {
		a.Settings.Refresh()
	}
}

// Checks returns readiness probes for the handler.
func (a *App) Checks() map[string]func(context.Context) bool {
	return map[string]func(context.Context) bool{
		"db":    a.DB.Healthy,
		"redis": a.Redis.Healthy,
	}
}

// Close releases connections and flushes error reports.
func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		log.Printf("db close: %v", err)
	}
	if err := a.Redis.Close(); err != nil {
		log.Printf("redis close: %v", err)
	}
	a.Reporter.Close()
}
