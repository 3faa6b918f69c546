package service

import (
	"context"
	"log/slog"
	"time"

	"fambam/internal/models"
	"fambam/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultRetentionMonths is the age cutoff used when none is given.
const DefaultRetentionMonths = 6

// PurgeResult summarizes one retention run.
type PurgeResult struct {
	DeletedCount int `json:"deleted_count"`
	FailedCount  int `json:"failed_count"`
	Candidates   int `json:"candidates"`
}

// RetentionService deletes posts past their age limit using the same
// cascade as an owner delete.
type RetentionService struct {
	posts *PostService
	now   func() time.Time
}

func NewRetentionService(posts *PostService) *RetentionService {
	return &RetentionService{posts: posts, now: time.Now}
}

// PurgeOlderThan deletes every post created more than months calendar
// months ago. Per-post failures are counted, never fatal.
func (s *RetentionService) PurgeOlderThan(ctx context.Context, months int) (*PurgeResult, error) {
	if months < 1 {
		return nil, models.NewValidationError("Months must be at least 1")
	}

	span, ctx := observability.NewSpan(ctx, "retention.purge")
	defer span.End()

	cutoff := s.now().UTC().AddDate(0, -months, 0)
	log := s.posts.log()

	lctx, cancel := s.posts.bounded(ctx)
	candidates, err := s.posts.postRepo.ListOlderThan(lctx, cutoff)
	cancel()
	if err != nil {
		observability.RetentionRuns.WithLabelValues("failed").Inc()
		span.SetError(err)
		return nil, storeErr("load old posts", err)
	}

	result := &PurgeResult{Candidates: len(candidates)}
	for i := range candidates {
		post := &candidates[i]
		if _, err := s.posts.cascadeDelete(ctx, post, DeleteReasonRetention); err != nil {
			result.FailedCount++
			log.ErrorContext(ctx, "retention delete failed",
				slog.Uint64("post_id", uint64(post.ID)),
				slog.String("error", err.Error()),
			)
			continue
		}
		result.DeletedCount++
	}

	outcome := "ok"
	if result.FailedCount > 0 {
		outcome = "partial"
	}
	observability.RetentionRuns.WithLabelValues(outcome).Inc()
	span.AddAttributes(
		attribute.Int("retention.months", months),
		attribute.Int("retention.deleted", result.DeletedCount),
		attribute.Int("retention.failed", result.FailedCount),
	)
	log.InfoContext(ctx, "retention purge finished",
		slog.Time("cutoff", cutoff),
		slog.Int("candidates", result.Candidates),
		slog.Int("deleted", result.DeletedCount),
		slog.Int("failed", result.FailedCount),
	)
	return result, nil
}
