package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"fambam/internal/cache"
	"fambam/internal/models"
	"fambam/internal/observability"
	"fambam/internal/repository"
	"fambam/internal/storage"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultFeedLimit = 50
	MaxFeedLimit     = 100
)

// Reasons a post is deleted, used as the metric label.
const (
	DeleteReasonOwner     = "owner"
	DeleteReasonAdmin     = "admin"
	DeleteReasonRetention = "retention"
)

type PostService struct {
	backend
	postRepo  repository.PostRepository
	store     storage.BlobStore
	media     *MediaService
	isAdmin   func(ctx context.Context, userID string) (bool, error)
	rdb       *redis.Client
	publisher ChangePublisher
}

// ComposePostInput is a post together with the files to upload for it.
type ComposePostInput struct {
	AuthorID string
	Content  string
	Files    []UploadFile
}

// FeedPage is one page of posts, newest first. NextCursor is set when the
// page is full.
type FeedPage struct {
	Posts      []models.Post `json:"posts"`
	NextCursor *time.Time    `json:"next_cursor,omitempty"`
}

func NewPostService(
	postRepo repository.PostRepository,
	store storage.BlobStore,
	media *MediaService,
	isAdmin func(ctx context.Context, userID string) (bool, error),
	rdb *redis.Client,
	publisher ChangePublisher,
) *PostService {
	return &PostService{
		backend:   newBackend(),
		postRepo:  postRepo,
		store:     store,
		media:     media,
		isAdmin:   isAdmin,
		rdb:       rdb,
		publisher: publisher,
	}
}

func validatePostBody(content string, mediaCount int) error {
	if strings.TrimSpace(content) == "" && mediaCount == 0 {
		return models.NewValidationError("Please write something or add an image")
	}
	if mediaCount > models.MaxPostMedia {
		return models.NewValidationError("Maximum 4 images per post")
	}
	return nil
}

// CreatePost stores a post whose media is already uploaded.
func (s *PostService) CreatePost(ctx context.Context, authorID, content string, mediaRefs []string) (*models.Post, error) {
	if err := validatePostBody(content, len(mediaRefs)); err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:  authorID,
		Content: strings.TrimSpace(content),
	}
	if len(mediaRefs) > 0 {
		post.MediaURLs = append(post.MediaURLs, mediaRefs...)
	}

	cctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.postRepo.Create(cctx, post); err != nil {
		return nil, storeErr("create post", err)
	}
	return post, nil
}

// ComposePost uploads every file in order and then creates the post. When an
// upload or the insert fails, blobs already written for it are removed.
func (s *PostService) ComposePost(ctx context.Context, in ComposePostInput) (*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "post.compose")
	defer span.End()
	span.AddAttributes(attribute.Int("post.files", len(in.Files)))

	if err := validatePostBody(in.Content, len(in.Files)); err != nil {
		return nil, err
	}

	session := s.media.NewSession(in.AuthorID)
	for _, f := range in.Files {
		if _, err := s.media.UploadPostImage(ctx, session, f); err != nil {
			s.media.Discard(ctx, session)
			span.SetError(err)
			return nil, err
		}
	}

	post, err := s.CreatePost(ctx, in.AuthorID, in.Content, session.URLs())
	if err != nil {
		s.media.Discard(ctx, session)
		span.SetError(err)
		return nil, err
	}
	return post, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		return MaxFeedLimit
	}
	return limit
}

func newFeedPage(posts []models.Post, limit int) *FeedPage {
	if posts == nil {
		posts = []models.Post{}
	}
	page := &FeedPage{Posts: posts}
	if len(posts) == limit {
		cursor := posts[len(posts)-1].CreatedAt
		page.NextCursor = &cursor
	}
	return page
}

// ListPosts returns the feed, newest first, starting strictly before the
// cursor when one is given.
func (s *PostService) ListPosts(ctx context.Context, limit int, before *time.Time) (*FeedPage, error) {
	limit = clampLimit(limit)

	lctx, cancel := s.bounded(ctx)
	defer cancel()
	posts, err := s.postRepo.List(lctx, limit, before)
	if err != nil {
		return nil, storeErr("load posts", err)
	}
	return newFeedPage(posts, limit), nil
}

// ListProfilePosts returns the posts written by userID, newest first.
func (s *PostService) ListProfilePosts(ctx context.Context, userID string, limit int, before *time.Time) (*FeedPage, error) {
	limit = clampLimit(limit)

	lctx, cancel := s.bounded(ctx)
	defer cancel()
	posts, err := s.postRepo.ListByUser(lctx, userID, limit, before)
	if err != nil {
		return nil, storeErr("load posts", err)
	}
	return newFeedPage(posts, limit), nil
}

// GetPost loads one post with its author.
func (s *PostService) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	gctx, cancel := s.bounded(ctx)
	defer cancel()
	post, err := s.postRepo.GetByID(gctx, postID)
	if err != nil {
		return nil, storeErr("load post", err)
	}
	return post, nil
}

// DeletePost removes a post on behalf of its owner or an admin.
func (s *PostService) DeletePost(ctx context.Context, requesterID string, postID uint) error {
	span, ctx := observability.NewSpan(ctx, "post.delete")
	defer span.End()
	span.AddAttributes(attribute.Int64("post.id", int64(postID)))

	post, err := s.GetPost(ctx, postID)
	if err != nil {
		span.SetError(err)
		return err
	}

	reason := DeleteReasonOwner
	if post.UserID != requesterID {
		admin := false
		if s.isAdmin != nil {
			actx, cancel := s.bounded(ctx)
			admin, err = s.isAdmin(actx, requesterID)
			cancel()
			if err != nil {
				return storeErr("check permissions", err)
			}
		}
		if !admin {
			return models.NewUnauthorizedError("Unauthorized")
		}
		reason = DeleteReasonAdmin
	}

	if _, err := s.cascadeDelete(ctx, post, reason); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// cascadeDelete tries to remove every media object of post, then deletes the
// row. Media failures are logged and counted but never stop the delete.
func (s *PostService) cascadeDelete(ctx context.Context, post *models.Post, reason string) (mediaFailures int, err error) {
	for _, url := range post.Media() {
		objectPath, ok := storage.PathFromURL(url)
		if !ok {
			mediaFailures++
			observability.MediaCleanupFailures.Inc()
			s.log().WarnContext(ctx, "media url outside bucket, skipping",
				slog.Uint64("post_id", uint64(post.ID)),
				slog.String("url", url),
			)
			continue
		}

		rctx, cancel := s.bounded(ctx)
		rmErr := s.store.Remove(rctx, objectPath)
		cancel()
		if rmErr != nil {
			mediaFailures++
			observability.MediaCleanupFailures.Inc()
			s.log().WarnContext(ctx, "failed to remove post media",
				slog.Uint64("post_id", uint64(post.ID)),
				slog.String("path", objectPath),
				slog.String("error", rmErr.Error()),
			)
		}
	}

	dctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.postRepo.Delete(dctx, post.ID); err != nil {
		if removed := len(post.Media()) - mediaFailures; removed > 0 {
			s.log().ErrorContext(ctx, "post row kept after its media was removed",
				slog.Uint64("post_id", uint64(post.ID)),
				slog.Int("orphaned_refs", removed),
			)
		}
		return mediaFailures, storeErr("delete post", err)
	}

	observability.PostsDeleted.WithLabelValues(reason).Inc()

	// A cached summary must not outlive its post; row ids can be reused.
	cctx, ccancel := s.bounded(ctx)
	cache.InvalidateReactionSummary(cctx, s.rdb, post.ID)
	ccancel()
	publish(ctx, &s.backend, s.publisher, models.ChangeEvent{
		Table:  models.TablePosts,
		Event:  models.EventDelete,
		PostID: post.ID,
		RowID:  post.ID,
	})
	return mediaFailures, nil
}
