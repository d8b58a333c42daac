package assessment

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisDraftsRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisDrafts(client, time.Hour)
	ctx := context.Background()

	g := newGrid()
	require.NoError(t, g.SetScore("s1", "kick", 7.5))
	d := Draft{ID: "d1", GroupID: "g1", AssessedOn: "2024-01-01", AuthorID: "coach", Grid: *g, Undo: []Grid{*newGrid()}}
	require.NoError(t, store.Put(ctx, d))

	assert.True(t, mr.Exists("academy:draft:d1"))
	assert.Equal(t, time.Hour, mr.TTL("academy:draft:d1"))
	raw, err := mr.Get("academy:draft:d1")
	require.NoError(t, err)
	assert.Contains(t, raw, `"group_id":"g1"`)
	assert.Contains(t, raw, `"undo":[`)

	got, err := store.Get(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "g1", got.GroupID)
	v, ok := got.Grid.Score("s1", "kick")
	require.True(t, ok)
	assert.Equal(t, 7.5, v)
	assert.Equal(t, 7.5, got.Grid.Rows[0].Total)
	require.Len(t, got.Undo, 1)
	assert.Equal(t, 1, got.UndoDepth)
	_, ok = got.Undo[0].Score("s1", "kick")
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, "d1"))
	got, err = store.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisDraftsExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisDrafts(client, time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, Draft{ID: "d1", Grid: *newGrid()}))

	// Saving again restarts the TTL.
	mr.FastForward(50 * time.Second)
	require.NoError(t, store.Put(ctx, Draft{ID: "d1", Grid: *newGrid()}))
	mr.FastForward(50 * time.Second)
	got, err := store.Get(ctx, "d1")
	require.NoError(t, err)
	assert.NotNil(t, got)

	mr.FastForward(11 * time.Second)
	got, err = store.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
