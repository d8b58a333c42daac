// Package events is the change feed: services publish typed notifications
// and views subscribe to re-derive their state.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topic names a stream of change notifications.
type Topic string

const (
	AttendanceChanged Topic = "attendance.changed"
	GroupChanged      Topic = "group.changed"
	BroadcastReady    Topic = "broadcast.ready"
	SettingsChanged   Topic = "settings.changed"
)

// Event is one change notification.
type Event struct {
	ID      string          `json:"id"`
	Topic   Topic           `json:"topic"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Bus delivers events to subscribers of their topic.
type Bus interface {
	Publish(ctx context.Context, evt Event) error
	// Subscribe streams events for topics until ctx is done; the channel is
	// closed afterwards.
	Subscribe(ctx context.Context, topics ...Topic) (<-chan Event, error)
}

// New builds an event with a fresh id and the payload encoded as JSON.
func New(topic Topic, payload any) (Event, error) {
	evt := Event{ID: uuid.NewString(), Topic: topic, At: time.Now().UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		evt.Payload = raw
	}
	return evt, nil
}

// Emit builds and publishes an event.
func Emit(ctx context.Context, bus Bus, topic Topic, payload any) error {
	if bus == nil {
		return nil
	}
	evt, err := New(topic, payload)
	if err != nil {
		return err
	}
	return bus.Publish(ctx, evt)
}

// Decode unmarshals an event payload.
func Decode[T any](evt Event) (T, error) {
	var v T
	if len(evt.Payload) == 0 {
		return v, nil
	}
	err := json.Unmarshal(evt.Payload, &v)
	return v, err
}
