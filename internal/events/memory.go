package events

import (
	"context"
	"sync"
)

// Memory is an in-process bus. A subscriber whose buffer is full misses
// events rather than blocking publishers.
type Memory struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	buffer int
}

type subscriber struct {
	topics map[Topic]bool
	ch     chan Event
}

// NewMemory creates a bus with per-subscriber buffers of the given size.
func NewMemory(buffer int) *Memory {
	if buffer <= 0 {
		buffer = 16
	}
	return &Memory{subs: make(map[*subscriber]struct{}), buffer: buffer}
}

// Publish fans the event out to matching subscribers.
func (m *Memory) Publish(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for s := range m.subs {
		if !s.topics[evt.Topic] {
			continue
		}
		select {
		case s.ch <- evt:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is cancelled.
func (m *Memory) Subscribe(ctx context.Context, topics ...Topic) (<-chan Event, error) {
	s := &subscriber{topics: make(map[Topic]bool, len(topics)), ch: make(chan Event, m.buffer)}
	for _, t := range topics {
		s.topics[t] = true
	}
	m.mu.Lock()
	m.subs[s] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, s)
		close(s.ch)
		m.mu.Unlock()
	}()
	return s.ch, nil
}

// Subscribers returns the number of live subscriptions.
func (m *Memory) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}
