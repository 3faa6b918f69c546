package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ProfileKeyPrefix         = "profile:%s"
	ReactionSummaryKeyPrefix = "post:%d:reactions:summary"
)

const (
	ProfileTTL         = 5 * time.Minute
	ReactionSummaryTTL = 2 * time.Minute
)

func ProfileKey(userID string) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func ReactionSummaryKey(postID uint) string {
	return fmt.Sprintf(ReactionSummaryKeyPrefix, postID)
}

// Invalidate deletes keys, ignoring a nil client.
func Invalidate(ctx context.Context, rdb *redis.Client, keys ...string) {
	if rdb == nil || len(keys) == 0 {
		return
	}
	rdb.Del(ctx, keys...)
}

func InvalidateProfile(ctx context.Context, rdb *redis.Client, userID string) {
	Invalidate(ctx, rdb, ProfileKey(userID))
}

func InvalidateReactionSummary(ctx context.Context, rdb *redis.Client, postID uint) {
	Invalidate(ctx, rdb, ReactionSummaryKey(postID))
}
