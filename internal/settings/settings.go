// Package settings stores the academy-wide preferences edited by admins.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"

	"academy/internal/events"
	"academy/internal/validation"
)

// Themes.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Settings are the typed application preferences.
type Settings struct {
	AcademyName           string `json:"academy_name" binding:"notblank,max=80"`
	Theme                 string `json:"theme" binding:"oneof=light dark system"`
	AccentColor           string `json:"accent_color" binding:"hexcolor,len=7"`
	DefaultSessionMinutes int    `json:"default_session_minutes" binding:"min=15,max=300"`
	WalkieEnabled         bool   `json:"walkie_enabled"`
}

// Defaults returns the settings used before an admin saves any.
func Defaults() Settings {
	return Settings{
		AcademyName:           "Academy",
		Theme:                 ThemeSystem,
		AccentColor:           "#1E88E5",
		DefaultSessionMinutes: 60,
		WalkieEnabled:         true,
	}
}

// Repository persists the single settings row.
type Repository interface {
	// Load returns nil when nothing was saved yet.
	Load(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, s Settings) error
}

// Service caches the current settings and publishes changes.
type Service struct {
	repo Repository
	bus  events.Bus

	mu      sync.RWMutex
	current *Settings
}

// NewService creates a service.
func NewService(repo Repository, bus events.Bus) *Service {
	return &Service{repo: repo, bus: bus}
}

// Get returns the stored settings or the defaults.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()
	if cur != nil {
		return *cur, nil
	}
	stored, err := s.repo.Load(ctx)
	if err != nil {
		return Settings{}, err
	}
	res := Defaults()
	if stored != nil {
		res = *stored
	}
	s.mu.Lock()
	s.current = &res
	s.mu.Unlock()
	return res, nil
}

// Update validates and stores new settings, then announces them.
func (s *Service) Update(ctx context.Context, in Settings) (Settings, error) {
	in.AcademyName = strings.TrimSpace(in.AcademyName)
	in.AccentColor = strings.ToUpper(in.AccentColor)
	if err := validation.Struct(in); err != nil {
		return Settings{}, err
	}
	if err := s.repo.Save(ctx, in); err != nil {
		return Settings{}, err
	}
	s.mu.Lock()
	s.current = &in
	s.mu.Unlock()
	if err := events.Emit(ctx, s.bus, events.SettingsChanged, in); err != nil {
		log.Printf("settings: publish change: %v", err)
	}
	return in, nil
}

// Refresh drops the cached copy; used when another replica changed settings.
func (s *Service) Refresh() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// PGRepository stores settings as JSONB in row id 1.
type PGRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) Load(ctx context.Context) (*Settings, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM settings WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	res := Defaults()
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *PGRepository) Save(ctx context.Context, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings (id, data, updated_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, data)
	return err
}
