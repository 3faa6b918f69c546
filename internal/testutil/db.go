// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"testing"
	"time"

	"fambam/internal/database"
	"fambam/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database with the full schema.
// The pool is pinned to one connection because every new SQLite memory
// connection would see an empty database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateProfile inserts a profile with a fake display name.
func CreateProfile(t *testing.T, db *gorm.DB, id string) *models.Profile {
	t.Helper()
	p := &models.Profile{ID: id, DisplayName: gofakeit.FirstName()}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreatePost inserts a post by userID created at the given time.
func CreatePost(t *testing.T, db *gorm.DB, userID string, createdAt time.Time, media ...string) *models.Post {
	t.Helper()
	p := &models.Post{UserID: userID, Content: gofakeit.Sentence(6), MediaURLs: media, CreatedAt: createdAt}
	if len(media) == 0 {
		p.MediaURLs = nil
	}
	require.NoError(t, db.Omit("Author").Create(p).Error)
	return p
}
