package service

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"fambam/internal/models"
	"fambam/internal/repository"
	"fambam/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommentService(t *testing.T) (*CommentService, *publisherStub, *models.Post) {
	t.Helper()
	db := testutil.NewTestDB(t)
	testutil.CreateProfile(t, db, "author")
	testutil.CreateProfile(t, db, "cousin")
	post := testutil.CreatePost(t, db, "author", time.Now().UTC())

	pub := &publisherStub{}
	svc := NewCommentService(repository.NewCommentRepository(db), repository.NewPostRepository(db), pub)
	return svc, pub, post
}

func TestAddComment_Validation(t *testing.T) {
	svc, pub, post := newTestCommentService(t)

	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"empty", "", "Comment cannot be empty"},
		{"blank", "   \n", "Comment cannot be empty"},
		{"too long", strings.Repeat("a", models.MaxCommentLength+1), "Comment too long (max 2000 characters)"},
		{"at limit", strings.Repeat("é", models.MaxCommentLength), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := svc.AddComment(context.Background(), post.ID, "cousin", tt.content)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, models.UserMessage(err))
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, c.ID)
		})
	}
	assert.Len(t, pub.Events(), 1)
}

func TestAddComment_TrimsAndJoinsAuthor(t *testing.T) {
	svc, pub, post := newTestCommentService(t)

	c, err := svc.AddComment(context.Background(), post.ID, "cousin", "  so cute!  ")
	require.NoError(t, err)
	assert.Equal(t, "so cute!", c.Content)
	assert.Equal(t, "cousin", c.Author.ID)
	assert.NotEmpty(t, c.Author.DisplayName)

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.ChangeEvent{Table: models.TableComments, Event: models.EventInsert, PostID: post.ID, RowID: c.ID}, events[0])
}

func TestAddComment_MissingPost(t *testing.T) {
	svc, _, _ := newTestCommentService(t)

	_, err := svc.AddComment(context.Background(), 4242, "cousin", "hello?")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestDeleteComment_AuthorOnly(t *testing.T) {
	svc, pub, post := newTestCommentService(t)
	ctx := context.Background()

	c, err := svc.AddComment(ctx, post.ID, "cousin", "mine")
	require.NoError(t, err)

	err = svc.DeleteComment(ctx, "cousin", post.ID+1, c.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound), "comment belongs to another post")

	err = svc.DeleteComment(ctx, "author", post.ID, c.ID)
	assert.True(t, models.HasCode(err, models.CodeUnauthorized), "post owner cannot delete someone else's comment")

	require.NoError(t, svc.DeleteComment(ctx, "cousin", post.ID, c.ID))
	comments, err := svc.ListComments(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	events := pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, models.EventDelete, events[1].Event)

	err = svc.DeleteComment(ctx, "cousin", post.ID, c.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestListComments_Ascending(t *testing.T) {
	svc, _, post := newTestCommentService(t)
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third", "fourth"} {
		_, err := svc.AddComment(ctx, post.ID, "cousin", text)
		require.NoError(t, err)
	}

	comments, err := svc.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 4)
	assert.True(t, sort.SliceIsSorted(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	}))
	assert.Equal(t, "first", comments[0].Content)
	assert.Equal(t, "fourth", comments[3].Content)
	assert.NotEmpty(t, comments[0].Author.DisplayName)
}
