package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"fambam/internal/models"
	"fambam/internal/repository"
)

type CommentService struct {
	backend
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	publisher   ChangePublisher
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	publisher ChangePublisher,
) *CommentService {
	return &CommentService{
		backend:     newBackend(),
		commentRepo: commentRepo,
		postRepo:    postRepo,
		publisher:   publisher,
	}
}

func (s *CommentService) AddComment(ctx context.Context, postID uint, authorID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("Comment cannot be empty")
	}
	if utf8.RuneCountInString(content) > models.MaxCommentLength {
		return nil, models.NewValidationError("Comment too long (max 2000 characters)")
	}

	gctx, cancel := s.bounded(ctx)
	_, err := s.postRepo.GetByID(gctx, postID)
	cancel()
	if err != nil {
		return nil, storeErr("load post", err)
	}

	comment := &models.Comment{
		PostID:  postID,
		UserID:  authorID,
		Content: content,
	}
	cctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.commentRepo.Create(cctx, comment); err != nil {
		return nil, storeErr("add comment", err)
	}

	publish(ctx, &s.backend, s.publisher, models.ChangeEvent{
		Table:  models.TableComments,
		Event:  models.EventInsert,
		PostID: postID,
		RowID:  comment.ID,
	})
	return comment, nil
}

// DeleteComment removes commentID from postID. Only its author may do so.
func (s *CommentService) DeleteComment(ctx context.Context, requesterID string, postID, commentID uint) error {
	gctx, cancel := s.bounded(ctx)
	comment, err := s.commentRepo.GetByID(gctx, commentID)
	cancel()
	if err != nil {
		return storeErr("load comment", err)
	}
	if comment.PostID != postID {
		return models.NewNotFoundError("Comment", commentID)
	}
	if comment.UserID != requesterID {
		return models.NewUnauthorizedError("Unauthorized")
	}

	dctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.commentRepo.Delete(dctx, commentID); err != nil {
		return storeErr("delete comment", err)
	}

	publish(ctx, &s.backend, s.publisher, models.ChangeEvent{
		Table:  models.TableComments,
		Event:  models.EventDelete,
		PostID: comment.PostID,
		RowID:  comment.ID,
	})
	return nil
}

// ListComments returns a post's comments oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	lctx, cancel := s.bounded(ctx)
	defer cancel()
	comments, err := s.commentRepo.ListByPost(lctx, postID)
	if err != nil {
		return nil, storeErr("load comments", err)
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, nil
}
