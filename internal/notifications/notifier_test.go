package notifications

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"fambam/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type eventLog struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (l *eventLog) add(ev models.ChangeEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.Publish(context.Background(), models.ChangeEvent{Table: models.TableComments, PostID: 1}))

	sub, err := n.Subscribe(context.Background(), 1, func(models.ChangeEvent) { t.Fatal("unexpected event") })
	require.NoError(t, err)
	sub.Unsubscribe()
	sub.Unsubscribe()
}

func TestNotifier_PublishPayload(t *testing.T) {
	mr, rdb := newTestRedis(t)
	n := NewNotifier(rdb)

	raw := mr.NewSubscriber()
	raw.Subscribe("post:5:reactions")
	defer raw.Close()

	ev := models.ChangeEvent{Table: models.TableReactions, Event: models.EventUpdate, PostID: 5}
	require.NoError(t, n.Publish(context.Background(), ev))

	select {
	case msg := <-raw.Messages():
		assert.Equal(t, "post:5:reactions", msg.Channel)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(msg.Message), &got))
		assert.Equal(t, "post_reactions", got["table"])
		assert.Equal(t, "UPDATE", got["event"])
		assert.EqualValues(t, 5, got["post_id"])
	case <-time.After(testEventuallyTimeout):
		t.Fatal("no message published")
	}
}

func TestNotifier_SubscribeScopedToPost(t *testing.T) {
	_, rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	ctx := context.Background()

	var got eventLog
	sub, err := n.Subscribe(ctx, 7, got.add)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, n.Publish(ctx, models.ChangeEvent{Table: models.TableComments, Event: models.EventInsert, PostID: 8}))
	require.NoError(t, n.Publish(ctx, models.ChangeEvent{Table: models.TableComments, Event: models.EventInsert, PostID: 7, RowID: 1}))
	require.NoError(t, n.Publish(ctx, models.ChangeEvent{Table: models.TableReactions, Event: models.EventDelete, PostID: 7}))

	assert.Eventually(t, func() bool { return got.len() == 2 }, testEventuallyTimeout, testPollInterval)
	assert.Never(t, func() bool { return got.len() > 2 }, 10*testPollInterval, testPollInterval)

	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Equal(t, uint(1), got.events[0].RowID)
	assert.Equal(t, models.TableReactions, got.events[1].Table)
}

func TestSubscription_UnsubscribeStopsDelivery(t *testing.T) {
	mr, rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	ctx := context.Background()

	var got eventLog
	sub, err := n.Subscribe(ctx, 3, got.add)
	require.NoError(t, err)
	assert.Equal(t, 1, mr.PubSubNumSub("post:3:comments")["post:3:comments"])

	sub.Unsubscribe()
	sub.Unsubscribe()

	assert.Eventually(t, func() bool {
		return mr.PubSubNumSub("post:3:comments")["post:3:comments"] == 0
	}, testEventuallyTimeout, testPollInterval)

	require.NoError(t, n.Publish(ctx, models.ChangeEvent{Table: models.TableComments, PostID: 3}))
	assert.Never(t, func() bool { return got.len() > 0 }, 10*testPollInterval, testPollInterval)
}
