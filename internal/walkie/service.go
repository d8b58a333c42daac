package walkie

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"academy/internal/apperr"
	"academy/internal/cloudinary"
	"academy/internal/events"
	"academy/internal/metrics"
	"academy/internal/queue"
)

// AudioUploader stores clips in object storage.
type AudioUploader interface {
	UploadAudio(ctx context.Context, data []byte, filename string) (*cloudinary.UploadResult, error)
}

// Service accepts clips on the API side and delivers them on the worker side.
type Service struct {
	repo     Repository
	queue    queue.Queue
	uploader AudioUploader
	bus      events.Bus
}

// NewService creates a service. Without an uploader, clips are served from
// the database at /v1/broadcasts/{id}/audio.
func NewService(repo Repository, q queue.Queue, uploader AudioUploader, bus events.Bus) *Service {
	return &Service{repo: repo, queue: q, uploader: uploader, bus: bus}
}

// Clip is an uploaded recording.
type Clip struct {
	SenderID   string
	SenderName string
	MIMEType   string
	Duration   time.Duration
	Data       []byte
}

type deliverJob struct {
	BroadcastID string `json:"broadcast_id"`
}

// Send stores a clip as pending and queues its delivery.
func (s *Service) Send(ctx context.Context, c Clip) (Broadcast, error) {
	if len(c.Data) == 0 {
		return Broadcast{}, apperr.Invalid("clip is empty")
	}
	if len(c.Data) > MaxClipBytes {
		return Broadcast{}, apperr.Invalid("clip exceeds 1 MiB")
	}
	if c.Duration <= 0 || c.Duration > MaxClipDuration {
		return Broadcast{}, apperr.Invalid("duration must be between 0 and 30s")
	}
	if !audioType(c.MIMEType) {
		return Broadcast{}, apperr.Invalid("unsupported clip type " + c.MIMEType)
	}

	b, err := s.repo.Create(ctx, Broadcast{
		SenderID:   c.SenderID,
		SenderName: c.SenderName,
		DurationMS: int(c.Duration / time.Millisecond),
		MIMEType:   c.MIMEType,
		Status:     StatusPending,
	}, c.Data)
	if err != nil {
		return Broadcast{}, err
	}
	if err := queue.Enqueue(ctx, s.queue, queue.TypeBroadcastUpload, deliverJob{BroadcastID: b.ID}); err != nil {
		log.Printf("walkie: queue publish failed: %v", err)
		s.fail(ctx, b.ID)
		return Broadcast{}, apperr.Wrap(apperr.CodeUnavailable, "broadcast could not be queued", err)
	}
	return b, nil
}

func audioType(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return strings.HasPrefix(mime, "audio/") || mime == "video/webm"
}

// Handle processes a queued delivery job.
func (s *Service) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != queue.TypeBroadcastUpload {
		return fmt.Errorf("walkie: unexpected job type %q", msg.Type)
	}
	var job deliverJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		return fmt.Errorf("walkie: decode job: %w", err)
	}
	return s.Deliver(ctx, job.BroadcastID)
}

// Deliver uploads a pending clip, marks it ready and announces it. Upload
// failures mark the broadcast failed.
func (s *Service) Deliver(ctx context.Context, id string) error {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if b == nil || b.Status != StatusPending {
		return nil
	}

	url := "/v1/broadcasts/" + id + "/audio"
	keep := true
	if s.uploader != nil {
		clip, err := s.repo.Clip(ctx, id)
		if err != nil {
			return err
		}
		res, err := s.uploader.UploadAudio(ctx, clip, id+extension(b.MIMEType))
		if err != nil {
			s.fail(ctx, id)
			return fmt.Errorf("walkie: upload %s: %w", id, err)
		}
		url, keep = res.SecureURL, false
	}
	if err := s.repo.MarkReady(ctx, id, url, keep); err != nil {
		return err
	}
	b.Status, b.AudioURL = StatusReady, url
	metrics.Broadcasts.WithLabelValues(StatusReady).Inc()
	if err := events.Emit(ctx, s.bus, events.BroadcastReady, b); err != nil {
		log.Printf("walkie: publish ready: %v", err)
	}
	return nil
}

func (s *Service) fail(ctx context.Context, id string) {
	metrics.Broadcasts.WithLabelValues(StatusFailed).Inc()
	if err := s.repo.MarkFailed(ctx, id); err != nil {
		log.Printf("walkie: mark %s failed: %v", id, err)
	}
}

// Recent lists the latest broadcasts. limit is clamped to 1..100.
func (s *Service) Recent(ctx context.Context, limit int) ([]Broadcast, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.Recent(ctx, limit)
}

// Audio returns a clip still held in the database.
func (s *Service) Audio(ctx context.Context, id string) ([]byte, string, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if b == nil {
		return nil, "", apperr.NotFound("broadcast not found")
	}
	clip, err := s.repo.Clip(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if len(clip) == 0 {
		return nil, "", apperr.NotFound("clip is stored externally")
	}
	return clip, b.MIMEType, nil
}

func extension(mime string) string {
	switch {
	case strings.Contains(mime, "ogg"):
		return ".ogg"
	case strings.Contains(mime, "mp4"), strings.Contains(mime, "aac"):
		return ".m4a"
	case strings.Contains(mime, "mpeg"):
		return ".mp3"
	case strings.Contains(mime, "wav"):
		return ".wav"
	default:
		return ".webm"
	}
}
