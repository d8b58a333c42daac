package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// storedDraft is the persisted form of a draft, undo history included.
type storedDraft struct {
	Draft
	Undo []Grid `json:"undo,omitempty"`
}

func encodeDraft(d Draft) ([]byte, error) {
	return json.Marshal(storedDraft{Draft: d, Undo: d.Undo})
}

func decodeDraft(data []byte) (*Draft, error) {
	var sd storedDraft
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	d := sd.Draft
	d.Undo = sd.Undo
	d.UndoDepth = len(d.Undo)
	return &d, nil
}

// RedisDrafts stores drafts as JSON with a sliding TTL.
type RedisDrafts struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisDrafts creates a Redis-backed draft store.
func NewRedisDrafts(client *redis.Client, ttl time.Duration) *RedisDrafts {
	return &RedisDrafts{client: client, ttl: ttl, prefix: "academy:draft:"}
}

func (s *RedisDrafts) Put(ctx context.Context, d Draft) error {
	data, err := encodeDraft(d)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+d.ID, data, s.ttl).Err()
}

func (s *RedisDrafts) Get(ctx context.Context, id string) (*Draft, error) {
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeDraft(data)
}

func (s *RedisDrafts) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.prefix+id).Err()
}

// MemoryDrafts keeps drafts in process. Used in dev and tests.
type MemoryDrafts struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	drafts map[string]memoryDraft
}

type memoryDraft struct {
	data    []byte
	expires time.Time
}

// NewMemoryDrafts creates an in-memory store. A zero ttl never expires.
func NewMemoryDrafts(ttl time.Duration) *MemoryDrafts {
	return &MemoryDrafts{ttl: ttl, now: time.Now, drafts: make(map[string]memoryDraft)}
}

// Put stores a copy so callers cannot mutate stored state.
func (s *MemoryDrafts) Put(_ context.Context, d Draft) error {
	data, err := encodeDraft(d)
	if err != nil {
		return err
	}
	var expires time.Time
	if s.ttl > 0 {
		expires = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.drafts[d.ID] = memoryDraft{data: data, expires: expires}
	s.mu.Unlock()
	return nil
}

func (s *MemoryDrafts) Get(_ context.Context, id string) (*Draft, error) {
	s.mu.Lock()
	md, ok := s.drafts[id]
	if ok && !md.expires.IsZero() && s.now().After(md.expires) {
		delete(s.drafts, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decodeDraft(md.data)
}

func (s *MemoryDrafts) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()
	return nil
}
