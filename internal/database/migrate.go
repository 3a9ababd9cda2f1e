// Package database はデータベース接続（PostgreSQL、Redis）とマイグレーション管理を提供する。
package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema は前回のマイグレーションが途中で失敗し、
// スキーマが不整合な状態にあることを示す。
var ErrDirtySchema = errors.New("database schema is dirty")

// SchemaVersion は適用済みマイグレーションの状態。
// Versionが0の場合はマイグレーションが一度も適用されていない。
type SchemaVersion struct {
	Version uint
	Dirty   bool
}

// NewMigrator は埋め込みのSQLファイルを読むmigrateインスタンスを生成する。
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, nil
}

// RunMigrations は未適用のマイグレーションをすべて適用し、適用後のバージョンを返す。
// すでに最新の場合はエラーなしで現在のバージョンを返す。
// スキーマがdirtyの場合は何も適用せずErrDirtySchemaを返す。
func RunMigrations(databaseURL string) (SchemaVersion, error) {
	m, err := NewMigrator(databaseURL)
	if err != nil {
		return SchemaVersion{}, err
	}
	defer m.Close()

	before, err := schemaVersion(m)
	if err != nil {
		return SchemaVersion{}, err
	}
	if before.Dirty {
		return before, fmt.Errorf("%w at version %d", ErrDirtySchema, before.Version)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("database schema already up to date", slog.Uint64("version", uint64(before.Version)))
			return before, nil
		}
		return SchemaVersion{}, fmt.Errorf("failed to run migrations: %w", err)
	}

	after, err := schemaVersion(m)
	if err != nil {
		return SchemaVersion{}, err
	}
	slog.Info("database migrations applied",
		slog.Uint64("from_version", uint64(before.Version)),
		slog.Uint64("to_version", uint64(after.Version)),
	)
	return after, nil
}

func schemaVersion(m *migrate.Migrate) (SchemaVersion, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return SchemaVersion{}, nil
	}
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("failed to read schema version: %w", err)
	}
	return SchemaVersion{Version: version, Dirty: dirty}, nil
}
