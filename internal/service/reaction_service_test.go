package service

import (
	"context"
	"testing"
	"time"

	"fambam/internal/cache"
	"fambam/internal/models"
	"fambam/internal/repository"
	"fambam/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type reactionFixture struct {
	db   *gorm.DB
	svc  *ReactionService
	pub  *publisherStub
	rdb  *redis.Client
	post *models.Post
}

func newReactionFixture(t *testing.T) *reactionFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	testutil.CreateProfile(t, db, "author")
	post := testutil.CreatePost(t, db, "author", time.Now().UTC())

	pub := &publisherStub{}
	svc := NewReactionService(repository.NewReactionRepository(db), repository.NewPostRepository(db), rdb, pub)
	return &reactionFixture{db: db, svc: svc, pub: pub, rdb: rdb, post: post}
}

func (f *reactionFixture) rows(t *testing.T, userID string) []models.Reaction {
	t.Helper()
	var rows []models.Reaction
	require.NoError(t, f.db.Where("post_id = ? AND user_id = ?", f.post.ID, userID).Find(&rows).Error)
	return rows
}

func TestSetReaction_Sequences(t *testing.T) {
	tests := []struct {
		name  string
		calls []models.ReactionKind
		want  models.ReactionKind
	}{
		{"single", []models.ReactionKind{models.ReactionLove}, models.ReactionLove},
		{"toggle off", []models.ReactionKind{models.ReactionLike, models.ReactionLike}, models.ReactionNone},
		{"switch", []models.ReactionKind{models.ReactionLike, models.ReactionLaugh}, models.ReactionLaugh},
		{"switch then cancel", []models.ReactionKind{models.ReactionLike, models.ReactionLaugh, models.ReactionLaugh}, models.ReactionNone},
		{"off and on again", []models.ReactionKind{models.ReactionLike, models.ReactionLike, models.ReactionCelebrate}, models.ReactionCelebrate},
		{"long run", []models.ReactionKind{
			models.ReactionLike, models.ReactionLove, models.ReactionLaugh, models.ReactionCelebrate, models.ReactionLove,
		}, models.ReactionLove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReactionFixture(t)
			testutil.CreateProfile(t, f.db, "viewer")

			var last *ReactionResult
			for _, k := range tt.calls {
				res, err := f.svc.SetReaction(context.Background(), f.post.ID, "viewer", string(k))
				require.NoError(t, err)
				last = res
			}
			assert.Equal(t, tt.want, last.Reaction)

			rows := f.rows(t, "viewer")
			if tt.want == models.ReactionNone {
				assert.Empty(t, rows)
				return
			}
			require.Len(t, rows, 1)
			assert.Equal(t, tt.want, rows[0].Kind)
		})
	}
}

func TestSetReaction_SwitchKeepsRowID(t *testing.T) {
	f := newReactionFixture(t)
	testutil.CreateProfile(t, f.db, "viewer")
	ctx := context.Background()

	_, err := f.svc.SetReaction(ctx, f.post.ID, "viewer", "like")
	require.NoError(t, err)
	before := f.rows(t, "viewer")[0].ID

	res, err := f.svc.SetReaction(ctx, f.post.ID, "viewer", "celebrate")
	require.NoError(t, err)
	assert.Equal(t, models.TransitionUpdate, res.Transition)
	assert.Equal(t, before, f.rows(t, "viewer")[0].ID)

	events := f.pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, models.EventInsert, events[0].Event)
	assert.Equal(t, models.EventUpdate, events[1].Event)
	assert.Equal(t, models.TableReactions, events[1].Table)
}

func TestSetReaction_InvalidKindAndMissingPost(t *testing.T) {
	f := newReactionFixture(t)

	_, err := f.svc.SetReaction(context.Background(), f.post.ID, "viewer", "angry")
	assert.Equal(t, "Invalid reaction type", models.UserMessage(err))
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = f.svc.SetReaction(context.Background(), 9999, "viewer", "like")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.Empty(t, f.pub.Events())
}

func TestSummary_NamesCountsAndViewer(t *testing.T) {
	f := newReactionFixture(t)
	ctx := context.Background()

	names := []string{"Ann", "Ben", "Cal", "Dee", "Eve"}
	for i, name := range names {
		require.NoError(t, f.db.Create(&models.Profile{ID: name, DisplayName: name}).Error)
		kind := models.ReactionLike
		if i%2 == 1 {
			kind = models.ReactionLaugh
		}
		_, err := f.svc.SetReaction(ctx, f.post.ID, name, string(kind))
		require.NoError(t, err)
		// created_at decides the order of names
		time.Sleep(2 * time.Millisecond)
	}

	summary, err := f.svc.Summary(ctx, f.post.ID, "Ben")
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, []string{"Ann", "Ben", "Cal"}, summary.Names)
	assert.Equal(t, 2, summary.More)
	assert.Equal(t, "Ann, Ben, Cal +2 more", summary.Label())
	assert.Equal(t, models.ReactionLaugh, summary.ViewerReaction)
	assert.Equal(t, []models.ReactionCount{
		{Kind: models.ReactionLike, Emoji: "❤️", Count: 3},
		{Kind: models.ReactionLaugh, Emoji: "😂", Count: 2},
	}, summary.Counts)

	anon, err := f.svc.Summary(ctx, f.post.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.ReactionNone, anon.ViewerReaction)
}

func TestSummary_CacheInvalidatedOnTransition(t *testing.T) {
	f := newReactionFixture(t)
	testutil.CreateProfile(t, f.db, "viewer")
	ctx := context.Background()

	first, err := f.svc.Summary(ctx, f.post.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, first.Total)
	assert.Equal(t, int64(1), f.rdb.Exists(ctx, cache.ReactionSummaryKey(f.post.ID)).Val())

	res, err := f.svc.SetReaction(ctx, f.post.ID, "viewer", "love")
	require.NoError(t, err)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 1, res.Summary.Total)
	assert.Equal(t, models.ReactionLove, res.Summary.ViewerReaction)

	second, err := f.svc.Summary(ctx, f.post.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Total)
}

func TestSummary_NamesHidden(t *testing.T) {
	f := newReactionFixture(t)
	testutil.CreateProfile(t, f.db, "viewer")
	f.svc.SetShowNames(false)

	_, err := f.svc.SetReaction(context.Background(), f.post.ID, "viewer", "like")
	require.NoError(t, err)

	summary, err := f.svc.Summary(context.Background(), f.post.ID, "")
	require.NoError(t, err)
	assert.Empty(t, summary.Names)
	assert.Equal(t, 1, summary.More)
}
