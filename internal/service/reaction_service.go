package service

import (
	"context"
	"log/slog"

	"fambam/internal/cache"
	"fambam/internal/models"
	"fambam/internal/observability"
	"fambam/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

type ReactionService struct {
	backend
	reactionRepo repository.ReactionRepository
	postRepo     repository.PostRepository
	rdb          *redis.Client
	publisher    ChangePublisher
	showNames    bool
}

// ReactionResult is the state after a SetReaction call.
type ReactionResult struct {
	PostID     uint                      `json:"post_id"`
	Reaction   models.ReactionKind       `json:"reaction"`
	Transition models.ReactionTransition `json:"transition"`
	Summary    *models.ReactionSummary   `json:"summary,omitempty"`
}

func NewReactionService(
	reactionRepo repository.ReactionRepository,
	postRepo repository.PostRepository,
	rdb *redis.Client,
	publisher ChangePublisher,
) *ReactionService {
	return &ReactionService{
		backend:      newBackend(),
		reactionRepo: reactionRepo,
		postRepo:     postRepo,
		rdb:          rdb,
		publisher:    publisher,
		showNames:    true,
	}
}

// SetShowNames controls whether summaries spell out who reacted.
func (s *ReactionService) SetShowNames(on bool) {
	s.showNames = on
}

// SetReaction applies one reaction request by userID on postID. Repeating
// the held kind removes it; another kind replaces it.
func (s *ReactionService) SetReaction(ctx context.Context, postID uint, userID string, kind string) (*ReactionResult, error) {
	requested := models.ReactionKind(kind)
	if !requested.Valid() {
		return nil, models.NewValidationError("Invalid reaction type")
	}

	span, ctx := observability.NewSpan(ctx, "reaction.set")
	defer span.End()
	span.AddAttributes(
		attribute.Int64("post.id", int64(postID)),
		attribute.String("reaction.requested", kind),
	)

	gctx, cancel := s.bounded(ctx)
	_, err := s.postRepo.GetByID(gctx, postID)
	cancel()
	if err != nil {
		span.SetError(err)
		return nil, storeErr("load post", err)
	}

	actx, cancel := s.bounded(ctx)
	next, transition, err := s.reactionRepo.Apply(actx, postID, userID, requested)
	cancel()
	if err != nil {
		span.SetError(err)
		return nil, storeErr("save reaction", err)
	}
	span.AddAttributes(attribute.String("reaction.transition", string(transition)))
	observability.ReactionTransitions.WithLabelValues(string(transition)).Inc()

	cctx, cancel := s.bounded(ctx)
	cache.InvalidateReactionSummary(cctx, s.rdb, postID)
	cancel()

	publish(ctx, &s.backend, s.publisher, models.ChangeEvent{
		Table:  models.TableReactions,
		Event:  models.EventForTransition(transition),
		PostID: postID,
	})

	result := &ReactionResult{PostID: postID, Reaction: next, Transition: transition}
	// The transition is already committed; a failed tally only leaves the summary out.
	if summary, err := s.Summary(ctx, postID, userID); err != nil {
		s.log().WarnContext(ctx, "reaction summary after transition failed",
			slog.Uint64("post_id", uint64(postID)),
			slog.String("error", err.Error()),
		)
	} else {
		result.Summary = summary
	}
	return result, nil
}

// Summary tallies the reactions on postID. With a viewerID the viewer's
// current kind is included.
func (s *ReactionService) Summary(ctx context.Context, postID uint, viewerID string) (*models.ReactionSummary, error) {
	var summary models.ReactionSummary

	sctx, cancel := s.bounded(ctx)
	defer cancel()
	err := cache.Aside(sctx, s.rdb, cache.ReactionSummaryKey(postID), &summary, cache.ReactionSummaryTTL, func() error {
		rows, err := s.reactionRepo.ListByPost(sctx, postID)
		if err != nil {
			return err
		}
		summary = summarize(postID, rows)
		return nil
	})
	if err != nil {
		return nil, storeErr("load reactions", err)
	}

	if !s.showNames {
		summary.Names = []string{}
		summary.More = summary.Total
	}

	if viewerID != "" {
		kind, err := s.reactionRepo.Current(sctx, postID, viewerID)
		if err != nil {
			return nil, storeErr("load reactions", err)
		}
		summary.ViewerReaction = kind
	}
	return &summary, nil
}

// summarize builds a summary from rows ordered oldest first.
func summarize(postID uint, rows []models.Reaction) models.ReactionSummary {
	counts := make(map[models.ReactionKind]int, len(models.ReactionKinds))
	names := make([]string, 0, models.MaxReactionNames)
	for _, r := range rows {
		counts[r.Kind]++
		if len(names) < models.MaxReactionNames {
			name := r.Author.DisplayName
			if name == "" {
				name = "Someone"
			}
			names = append(names, name)
		}
	}

	out := models.ReactionSummary{
		PostID: postID,
		Total:  len(rows),
		Counts: make([]models.ReactionCount, 0, len(models.ReactionKinds)),
		Names:  names,
		More:   len(rows) - len(names),
	}
	for _, k := range models.ReactionKinds {
		if n := counts[k]; n > 0 {
			out.Counts = append(out.Counts, models.ReactionCount{Kind: k, Emoji: k.Emoji(), Count: n})
		}
	}
	return out
}
