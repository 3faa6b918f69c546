package database

import (
	"context"
	"testing"

	"fambam/internal/config"
	"fambam/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openMemory(t)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestSchemaMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		mode string
	}{
		{"sqlite development", config.Config{DBDriver: "sqlite", Env: "development"}, SchemaModeAuto},
		{"sqlite production", config.Config{DBDriver: "sqlite", Env: "production"}, SchemaModeAuto},
		{"default driver", config.Config{Env: "test"}, SchemaModeAuto},
		{"postgres development", config.Config{DBDriver: "postgres", Env: "development"}, SchemaModeHybrid},
		{"postgres production", config.Config{DBDriver: "postgres", Env: "production"}, SchemaModeSQL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			assert.Equal(t, tt.mode, schemaMode(&cfg))
		})
	}
}

func TestApplySchema_SQLiteCreatesTables(t *testing.T) {
	db := openMemory(t)
	cfg := &config.Config{DBDriver: "sqlite", Env: "test"}

	require.NoError(t, ApplySchema(context.Background(), db, cfg))

	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model), "%T", model)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Reaction{}, "idx_post_reactions_post_user"))
}

func TestGetSchemaStatus_SQLite(t *testing.T) {
	db := openMemory(t)
	cfg := &config.Config{DBDriver: "sqlite"}
	ctx := context.Background()

	status, err := GetSchemaStatus(ctx, db, cfg)
	require.NoError(t, err)
	assert.Equal(t, SchemaModeAuto, status.Mode)
	assert.Empty(t, status.Applied)
	assert.Len(t, status.PendingMigrations, len(GetMigrations()))

	require.NoError(t, ApplySchema(ctx, db, cfg))

	status, err = GetSchemaStatus(ctx, db, cfg)
	require.NoError(t, err)
	assert.Empty(t, status.PendingMigrations)
	require.Len(t, status.Applied, len(GetMigrations()))
	assert.Equal(t, MethodAuto, status.Applied[0].Method)
}
