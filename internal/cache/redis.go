// Package cache holds the Redis connection and the cache-aside helpers for
// profiles and reaction summaries.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fambam/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// Key families reported on fambam_redis_errors_total.
const (
	FamilyProfile   = "profile"
	FamilySummary   = "reaction_summary"
	FamilyRateLimit = "ratelimit"
	FamilyPubSub    = "pubsub"
	FamilyOther     = "other"
)

// keyFamily maps a command to the part of the app that issued it.
func keyFamily(cmd redis.Cmder) string {
	switch strings.ToLower(cmd.Name()) {
	case "publish", "subscribe", "unsubscribe", "psubscribe", "punsubscribe":
		return FamilyPubSub
	}
	args := cmd.Args()
	if len(args) < 2 {
		return FamilyOther
	}
	key, _ := args[1].(string)
	switch {
	case strings.HasPrefix(key, "profile:"):
		return FamilyProfile
	case strings.HasPrefix(key, "post:") && strings.HasSuffix(key, ":reactions:summary"):
		return FamilySummary
	case strings.HasPrefix(key, "rl:"):
		return FamilyRateLimit
	default:
		return FamilyOther
	}
}

// errorCounter counts failed commands. A miss (redis.Nil) is not a failure.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues(cmd.Name(), keyFamily(cmd)).Inc()
		}
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err == nil {
			return nil
		}
		for _, cmd := range cmds {
			if cerr := cmd.Err(); cerr != nil && !errors.Is(cerr, redis.Nil) {
				middleware.RedisErrors.WithLabelValues(cmd.Name(), keyFamily(cmd)).Inc()
			}
		}
		return err
	}
}

// ParseAddr accepts host:port or a redis:// (rediss://) URL.
func ParseAddr(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("empty redis address")
	}
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}

// InitRedis connects to addr and returns the client, or nil when the address
// is bad or Redis does not answer. Callers treat nil as "no cache, no
// realtime".
func InitRedis(addr string) *redis.Client {
	opts, err := ParseAddr(addr)
	if err != nil {
		middleware.Logger.Warn("invalid REDIS_URL, continuing without Redis", slog.String("error", err.Error()))
		return nil
	}

	rdb := redis.NewClient(opts)
	rdb.AddHook(errorCounter{})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis unavailable, continuing without it",
			slog.String("addr", opts.Addr),
			slog.String("error", err.Error()),
		)
		_ = rdb.Close()
		return nil
	}
	middleware.Logger.Info("Redis connected", slog.String("addr", opts.Addr))
	return rdb
}
