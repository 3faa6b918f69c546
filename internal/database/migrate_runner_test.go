package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestMigrator_SQLiteUpRecordsVersions(t *testing.T) {
	db := openMemory(t)
	m := NewMigrator(db)
	ctx := context.Background()

	applied, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, len(GetMigrations()))
	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model), "%T", model)
	}

	again, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	logs, err := m.Applied(ctx)
	require.NoError(t, err)
	require.Len(t, logs, len(GetMigrations()))
	assert.Equal(t, 1, logs[0].Version)
	assert.Equal(t, "init_schema", logs[0].Name)
	assert.Equal(t, MethodAuto, logs[0].Method)

	assert.ErrorIs(t, m.Down(ctx, 1), ErrRollbackUnsupported)
}

func TestMigrator_UnknownAppliedVersion(t *testing.T) {
	db := openMemory(t)
	m := NewMigrator(db)
	ctx := context.Background()

	require.NoError(t, db.AutoMigrate(&MigrationLog{}))
	require.NoError(t, db.Create(&MigrationLog{Version: 42, Name: "from_the_future", Method: MethodSQL}).Error)

	_, err := m.Pending(ctx)
	assert.ErrorContains(t, err, "000042")
	_, err = m.Up(ctx)
	assert.ErrorContains(t, err, "000042")
}

func TestMigrator_PostgresDownRunsScriptInTransaction(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery(`information_schema\.tables`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "migration_logs" ORDER BY version ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "method"}).AddRow(1, "init_schema", MethodSQL))
	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS post_reactions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "migration_logs" WHERE version = \$1`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewMigrator(db).Down(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrator_DownRejectsUnknownAndUnapplied(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	m := NewMigrator(db)

	assert.ErrorContains(t, m.Down(context.Background(), 999), "not found")

	mock.ExpectQuery(`information_schema\.tables`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	assert.ErrorContains(t, m.Down(context.Background(), 1), "has not been applied")
	assert.NoError(t, mock.ExpectationsWereMet())
}
