package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"fambam/internal/middleware"

	"gorm.io/gorm"
)

// How a version came to be recorded in migration_logs.
const (
	MethodSQL  = "sql"
	MethodAuto = "auto"
)

// ErrRollbackUnsupported is returned by Down on databases whose schema is
// derived from the models.
var ErrRollbackUnsupported = errors.New("rollback is only supported on postgres; sqlite schemas follow the models")

// MigrationLog is one row of migration_logs.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Method    string    `gorm:"size:16;not null;default:'sql'"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

// Migrator brings a database up to the embedded migration set. The SQL is
// written for Postgres; on SQLite the tables come from AutoMigrate and each
// version is recorded with MethodAuto so status reporting works on both.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
	sqlite     bool
	log        *slog.Logger
}

func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: GetMigrations(),
		sqlite:     db.Dialector.Name() == "sqlite",
		log:        middleware.Logger,
	}
}

func (m *Migrator) ensureLog(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return fmt.Errorf("ensure migration_logs: %w", err)
	}
	return nil
}

// Applied lists recorded versions, oldest first. A missing log table means
// nothing has been applied.
func (m *Migrator) Applied(ctx context.Context) ([]MigrationLog, error) {
	if !m.db.WithContext(ctx).Migrator().HasTable(&MigrationLog{}) {
		return []MigrationLog{}, nil
	}
	var logs []MigrationLog
	if err := m.db.WithContext(ctx).Order("version ASC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("load applied migrations: %w", err)
	}
	return logs, nil
}

// Pending lists registered migrations not yet recorded. It fails when the
// log holds versions this build does not know about.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	logs, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	applied := make([]int, 0, len(logs))
	for _, l := range logs {
		applied = append(applied, l.Version)
	}
	if err := validateAppliedVersions(applied, m.migrations); err != nil {
		return nil, err
	}

	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}
	var pending []Migration
	for _, mig := range m.migrations {
		if !done[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Up applies every pending migration and returns what it applied.
func (m *Migrator) Up(ctx context.Context) ([]Migration, error) {
	if err := m.ensureLog(ctx); err != nil {
		return nil, err
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}
	if m.sqlite {
		return pending, m.upAuto(ctx, pending)
	}

	for _, mig := range pending {
		m.log.Info("Applying migration", slog.String("migration", mig.String()))
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.UpScript).Error; err != nil {
				return err
			}
			return tx.Create(&MigrationLog{Version: mig.Version, Name: mig.Name, Method: MethodSQL}).Error
		})
		if err != nil {
			return nil, fmt.Errorf("apply migration %s: %w", mig.String(), err)
		}
	}
	return pending, nil
}

func (m *Migrator) upAuto(ctx context.Context, pending []Migration) error {
	if err := m.db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}
	logs := make([]MigrationLog, 0, len(pending))
	for _, mig := range pending {
		logs = append(logs, MigrationLog{Version: mig.Version, Name: mig.Name, Method: MethodAuto})
	}
	if err := m.db.WithContext(ctx).Create(&logs).Error; err != nil {
		return fmt.Errorf("record migrations: %w", err)
	}
	m.log.Info("Schema built from models", slog.Int("versions_recorded", len(logs)))
	return nil
}

// Down reverts one applied SQL migration.
func (m *Migrator) Down(ctx context.Context, version int) error {
	if m.sqlite {
		return ErrRollbackUnsupported
	}
	mig := GetMigrationByVersion(version)
	if mig == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	logs, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, l := range logs {
		if l.Version == version {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("migration %s has not been applied", mig.String())
	}

	m.log.Info("Rolling back migration", slog.String("migration", mig.String()))
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.DownScript).Error; err != nil {
			return fmt.Errorf("rollback %s: %w", mig.String(), err)
		}
		return tx.Where("version = ?", version).Delete(&MigrationLog{}).Error
	})
}

func validateAppliedVersions(applied []int, registered []Migration) error {
	known := make(map[int]struct{}, len(registered))
	for _, m := range registered {
		known[m.Version] = struct{}{}
	}

	var unknown []string
	sort.Ints(applied)
	for _, version := range applied {
		if _, ok := known[version]; !ok {
			unknown = append(unknown, fmt.Sprintf("%06d", version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("migration_logs contains versions unknown to this build: %s", strings.Join(unknown, ", "))
}
