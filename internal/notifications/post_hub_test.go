package notifications

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostHub_RegisterAndUnregister(t *testing.T) {
	hub := NewPostHub()
	ctx := context.Background()

	a, err := hub.Register(ctx, 1, "mom", nil)
	require.NoError(t, err)
	b, err := hub.Register(ctx, 1, "dad", nil)
	require.NoError(t, err)
	_, err = hub.Register(ctx, 2, "mom", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, hub.Viewers(1))
	assert.Equal(t, 1, hub.Viewers(2))

	hub.UnregisterClient(a)
	hub.UnregisterClient(a)
	assert.Equal(t, 1, hub.Viewers(1))

	hub.UnregisterClient(b)
	assert.Equal(t, 0, hub.Viewers(1))

	require.NoError(t, hub.Shutdown(ctx))
	assert.Equal(t, 0, hub.Viewers(2))
}

func TestPostHub_PerPostLimit(t *testing.T) {
	hub := NewPostHub()
	ctx := context.Background()

	for i := 0; i < maxConnsPerPost; i++ {
		_, err := hub.Register(ctx, 9, "viewer", nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(ctx, 9, "viewer", nil)
	assert.ErrorIs(t, err, ErrPostFull)

	_, err = hub.Register(ctx, 10, "viewer", nil)
	assert.NoError(t, err)
	_ = hub.Shutdown(ctx)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewPostHub()
	c, err := hub.Register(context.Background(), 1, "mom", nil)
	require.NoError(t, err)

	for i := 0; i < cap(c.Send); i++ {
		c.TrySend([]byte("x"))
	}
	assert.False(t, c.dropped.Load())

	c.TrySend([]byte("overflow"))
	assert.Len(t, c.Send, cap(c.Send))
	assert.True(t, c.dropped.Load(), "viewer owed a resync")

	var notice SyncMessage
	require.NoError(t, json.Unmarshal(c.resyncNotice(), &notice))
	assert.Equal(t, TypeResync, notice.Type)
	assert.Equal(t, uint(1), notice.PostID)

	close(c.Send)
	assert.NotPanics(t, func() { c.TrySend([]byte("late")) })
	_ = hub.Shutdown(context.Background())
}

func TestCoalesce(t *testing.T) {
	comments := func(n int) []byte {
		return []byte(`{"type":"comments_reloaded","post_id":1,"payload":` + strconv.Itoa(n) + `}`)
	}
	reactions := []byte(`{"type":"reactions_reloaded","post_id":1,"payload":{}}`)

	tests := []struct {
		name       string
		first      []byte
		queued     [][]byte
		closeQueue bool
		want       [][]byte
		wantClosed bool
	}{
		{"single", comments(1), nil, false, [][]byte{comments(1)}, false},
		{"newest of a type wins", comments(1), [][]byte{reactions, comments(2), comments(3)}, false,
			[][]byte{comments(3), reactions}, false},
		{"untyped kept", []byte("ping"), [][]byte{[]byte("pong"), comments(1)}, false,
			[][]byte{[]byte("ping"), []byte("pong"), comments(1)}, false},
		{"closed queue reported", comments(1), [][]byte{comments(2)}, true, [][]byte{comments(2)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := make(chan []byte, len(tt.queued))
			for _, m := range tt.queued {
				queue <- m
			}
			if tt.closeQueue {
				close(queue)
			}

			batch, closed := coalesce(tt.first, queue)
			assert.Equal(t, tt.want, batch)
			assert.Equal(t, tt.wantClosed, closed)
		})
	}
}
