package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEnqueueConsume(t *testing.T) {
	q := NewInMemory(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, Enqueue(ctx, q, TypeBroadcastUpload, map[string]string{"id": "b1"}))
	ch, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case msg := <-ch:
		assert.Equal(t, TypeBroadcastUpload, msg.Type)
		var body map[string]string
		require.NoError(t, json.Unmarshal(msg.Body, &body))
		assert.Equal(t, "b1", body["id"])
	case <-time.After(time.Second):
		t.Fatal("no message")
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestInMemoryPublishHonoursContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{Type: "a"}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: "b"}), context.DeadlineExceeded)
}
