package database

import (
	"context"
	"fmt"
	"log/slog"

	"fambam/internal/config"
	"fambam/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes. SQL migrations are written for Postgres, so SQLite databases
// always use AutoMigrate.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus reports what ApplySchema would do and what is pending.
type SchemaStatus struct {
	Mode              string
	Environment       string
	Applied           []MigrationLog
	PendingMigrations []Migration
}

func schemaMode(cfg *config.Config) string {
	switch {
	case driverName(cfg) == "sqlite":
		return SchemaModeAuto
	case cfg.IsProduction():
		return SchemaModeSQL
	default:
		return SchemaModeHybrid
	}
}

// ApplySchema brings the database schema up to date for cfg's driver and
// environment. Hybrid mode follows the SQL migrations with AutoMigrate so
// model changes land in development before their migration is written.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	mode := schemaMode(cfg)
	applied, err := NewMigrator(db).Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate (%s): %w", mode, err)
	}
	middleware.Logger.Info("Schema up to date",
		slog.String("mode", mode),
		slog.String("env", cfg.Env),
		slog.Int("applied", len(applied)),
	)

	if mode == SchemaModeHybrid {
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// GetSchemaStatus lists applied and pending migrations.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	m := NewMigrator(db)
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}
	return &SchemaStatus{
		Mode:              schemaMode(cfg),
		Environment:       cfg.Env,
		Applied:           applied,
		PendingMigrations: pending,
	}, nil
}
