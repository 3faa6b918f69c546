// Package notifications fans row changes out to the people looking at a post.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"fambam/internal/middleware"
	"fambam/internal/models"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes change events into Redis and subscribes to them.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends ev on the channel of its table and post.
func (n *Notifier) Publish(ctx context.Context, ev models.ChangeEvent) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	return n.rdb.Publish(ctx, ev.Channel(), payload).Err()
}

// Subscription is a live listener on one post's channels. It must be
// released with Unsubscribe.
type Subscription struct {
	PostID uint

	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Unsubscribe stops delivery and waits for the handler goroutine to exit.
// Calling it more than once is safe.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.pubsub != nil {
			_ = s.pubsub.Close()
		}
		if s.done != nil {
			<-s.done
		}
	})
}

// Subscribe listens for comment and reaction changes on postID and calls
// handler for each one, in order, from a single goroutine. Without Redis the
// returned subscription never fires.
func (n *Notifier) Subscribe(ctx context.Context, postID uint, handler func(models.ChangeEvent)) (*Subscription, error) {
	if n.rdb == nil {
		return &Subscription{PostID: postID}, nil
	}

	channels := []string{models.CommentsChannel(postID), models.ReactionsChannel(postID)}
	ps := n.rdb.Subscribe(ctx, channels...)
	for range channels {
		if _, err := ps.Receive(ctx); err != nil {
			_ = ps.Close()
			return nil, fmt.Errorf("subscribe to post %d: %w", postID, err)
		}
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		PostID: postID,
		pubsub: ps,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	ch := ps.Channel()

	go func() {
		defer close(sub.done)
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev models.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					middleware.Logger.Warn("malformed change event",
						slog.String("channel", msg.Channel),
						slog.String("error", err.Error()),
					)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in change handler",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					handler(ev)
				}()
			}
		}
	}()

	return sub, nil
}
