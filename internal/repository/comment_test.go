package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"fambam/internal/models"
	"fambam/internal/repository"
	"fambam/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestCommentRepository_ListByPostQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewCommentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "comments" WHERE post_id = $1 ORDER BY created_at ASC,id ASC`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "user_id", "content"}).
			AddRow(1, 1, "a", "first").
			AddRow(2, 1, "b", "second"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "profiles" WHERE "profiles"."id" IN ($1,$2)`)).
		WithArgs("a", "b").
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name"}).
			AddRow("a", "Mom").
			AddRow("b", "Dad"))

	comments, err := repo.ListByPost(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Content)
	assert.Equal(t, "Dad", comments[1].Author.DisplayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_Lifecycle(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateProfile(t, db, "mom")
	post := testutil.CreatePost(t, db, "mom", time.Now().UTC())
	repo := repository.NewCommentRepository(db)
	ctx := context.Background()

	first := &models.Comment{PostID: post.ID, UserID: "mom", Content: "first"}
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, "mom", first.Author.ID)
	second := &models.Comment{PostID: post.ID, UserID: "mom", Content: "second", CreatedAt: first.CreatedAt}
	require.NoError(t, repo.Create(ctx, second))

	list, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	require.NoError(t, repo.Delete(ctx, first.ID))
	_, err = repo.GetByID(ctx, first.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.True(t, models.HasCode(repo.Delete(ctx, first.ID), models.CodeNotFound))
}
