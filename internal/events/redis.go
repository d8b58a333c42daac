package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// Redis publishes events on one pub/sub channel per topic so that every API
// instance sees changes made through any other.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a redis-backed bus. Channels are named prefix+topic.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "academy:events:"
	}
	return &Redis{client: client, prefix: prefix}
}

// Publish encodes and publishes the event.
func (r *Redis) Publish(ctx context.Context, evt Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.prefix+string(evt.Topic), raw).Err()
}

// Subscribe streams decoded events until ctx is done.
func (r *Redis) Subscribe(ctx context.Context, topics ...Topic) (<-chan Event, error) {
	channels := make([]string, len(topics))
	for i, t := range topics {
		channels[i] = r.prefix + string(t)
	}
	ps := r.client.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					log.Printf("events: drop malformed message on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
