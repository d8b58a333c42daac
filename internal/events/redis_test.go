package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBus(t *testing.T) (*Redis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, ""), client
}

func TestRedisFiltersByTopic(t *testing.T) {
	bus, _ := newRedisBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groups, err := bus.Subscribe(ctx, GroupChanged)
	require.NoError(t, err)

	require.NoError(t, Emit(ctx, bus, AttendanceChanged, map[string]string{"subject_id": "s1"}))
	require.NoError(t, Emit(ctx, bus, GroupChanged, map[string]string{"group_id": "g1"}))

	evt := receive(t, groups)
	assert.Equal(t, GroupChanged, evt.Topic)
	payload, err := Decode[map[string]string](evt)
	require.NoError(t, err)
	assert.Equal(t, "g1", payload["group_id"])

	select {
	case evt := <-groups:
		t.Fatalf("unexpected event %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRedisUsesOneChannelPerTopic(t *testing.T) {
	bus, client := newRedisBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := bus.Subscribe(ctx, AttendanceChanged, SettingsChanged)
	require.NoError(t, err)

	counts, err := client.PubSubNumSub(ctx, "academy:events:attendance.changed", "academy:events:settings.changed", "academy:events:group.changed").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["academy:events:attendance.changed"])
	assert.Equal(t, int64(1), counts["academy:events:settings.changed"])
	assert.Equal(t, int64(0), counts["academy:events:group.changed"])
}

func TestRedisDropsMalformedMessages(t *testing.T) {
	bus, client := newRedisBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, BroadcastReady)
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, "academy:events:broadcast.ready", "not json").Err())
	require.NoError(t, Emit(ctx, bus, BroadcastReady, map[string]string{"id": "b1"}))

	evt := receive(t, ch)
	payload, err := Decode[map[string]string](evt)
	require.NoError(t, err)
	assert.Equal(t, "b1", payload["id"])
}

func TestRedisSubscriptionEndsWithContext(t *testing.T) {
	bus, _ := newRedisBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, SettingsChanged)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}
