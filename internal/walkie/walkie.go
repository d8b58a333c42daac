// Package walkie relays short push-to-talk voice clips from coaches to every
// connected device.
package walkie

import (
	"context"
	"time"
)

// Broadcast statuses.
const (
	StatusPending = "pending"
	StatusReady   = "ready"
	StatusFailed  = "failed"
)

// Limits on an uploaded clip.
const (
	MaxClipBytes    = 1 << 20
	MaxClipDuration = 30 * time.Second
)

// Broadcast is one recorded clip.
type Broadcast struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	DurationMS int       `json:"duration_ms"`
	MIMEType   string    `json:"mime_type"`
	AudioURL   string    `json:"audio_url,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository persists broadcasts. Clip bytes are kept until upload.
type Repository interface {
	Create(ctx context.Context, b Broadcast, clip []byte) (Broadcast, error)
	Get(ctx context.Context, id string) (*Broadcast, error)
	Clip(ctx context.Context, id string) ([]byte, error)
	// MarkReady sets the URL. The stored clip is dropped unless keepClip,
	// which is the case when the API serves the clip itself.
	MarkReady(ctx context.Context, id, url string, keepClip bool) error
	MarkFailed(ctx context.Context, id string) error
	Recent(ctx context.Context, limit int) ([]Broadcast, error)
}
