package notifications

import (
	"context"
	"encoding/json"
	"log/slog"

	"fambam/internal/middleware"
	"fambam/internal/models"
	"fambam/internal/observability"
)

// Message types pushed to viewers.
const (
	TypeCommentsReloaded  = "comments_reloaded"
	TypeReactionsReloaded = "reactions_reloaded"
	TypePostDeleted       = "post_deleted"
)

// CommentLister reloads the comments of a post.
type CommentLister interface {
	ListComments(ctx context.Context, postID uint) ([]models.Comment, error)
}

// ReactionSummarizer reloads the reaction summary of a post.
type ReactionSummarizer interface {
	Summary(ctx context.Context, postID uint, viewerID string) (*models.ReactionSummary, error)
}

// Sink receives encoded messages for one viewer.
type Sink interface {
	TrySend(message []byte)
}

// SyncMessage is what a viewer receives after a reload.
type SyncMessage struct {
	Type    string      `json:"type"`
	PostID  uint        `json:"post_id"`
	Payload interface{} `json:"payload"`
}

// SyncBridge turns change events into full list reloads.
type SyncBridge struct {
	notifier  *Notifier
	comments  CommentLister
	reactions ReactionSummarizer
}

func NewSyncBridge(notifier *Notifier, comments CommentLister, reactions ReactionSummarizer) *SyncBridge {
	return &SyncBridge{notifier: notifier, comments: comments, reactions: reactions}
}

// Watch pushes a fresh list to sink whenever the comments or reactions of
// postID change. The caller owns the returned subscription.
func (b *SyncBridge) Watch(ctx context.Context, postID uint, viewerID string, sink Sink) (*Subscription, error) {
	return b.notifier.Subscribe(ctx, postID, func(ev models.ChangeEvent) {
		switch ev.Table {
		case models.TableComments:
			b.ReloadComments(ctx, postID, sink)
		case models.TableReactions:
			b.ReloadReactions(ctx, postID, viewerID, sink)
		case models.TablePosts:
			if ev.Event == models.EventDelete {
				push(ctx, sink, SyncMessage{Type: TypePostDeleted, PostID: postID})
			}
		}
	})
}

// ReloadComments pushes the current comment list. Safe to call at any time.
func (b *SyncBridge) ReloadComments(ctx context.Context, postID uint, sink Sink) {
	comments, err := b.comments.ListComments(ctx, postID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "comment reload failed",
			slog.Uint64("post_id", uint64(postID)),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.SyncReloads.WithLabelValues("comments").Inc()
	push(ctx, sink, SyncMessage{Type: TypeCommentsReloaded, PostID: postID, Payload: comments})
}

// ReloadReactions pushes the current reaction summary as seen by viewerID.
func (b *SyncBridge) ReloadReactions(ctx context.Context, postID uint, viewerID string, sink Sink) {
	summary, err := b.reactions.Summary(ctx, postID, viewerID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "reaction reload failed",
			slog.Uint64("post_id", uint64(postID)),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.SyncReloads.WithLabelValues("reactions").Inc()
	push(ctx, sink, SyncMessage{Type: TypeReactionsReloaded, PostID: postID, Payload: summary})
}

func push(ctx context.Context, sink Sink, msg SyncMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "encode sync message", slog.String("error", err.Error()))
		return
	}
	sink.TrySend(data)
}
