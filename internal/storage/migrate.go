package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	applog "labcash/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations brings the blobs and exports tables at dbPath up to date
// and returns the schema version afterwards. A dirty schema (a migration
// that failed halfway) is reported as an error rather than migrated over.
func RunMigrations(dbPath string) (uint, error) {
	logger := applog.FromContext(context.Background()).WithComponent(applog.ComponentStorage)

	m, closeAll, err := newMigrator(dbPath)
	if err != nil {
		return 0, err
	}
	defer closeAll()

	before, dirty, err := schemaVersion(m)
	if err != nil {
		return 0, err
	}
	if dirty {
		return before, fmt.Errorf("schema at version %d is dirty; fix %s by hand", before, dbPath)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return before, fmt.Errorf("run migrations: %w", err)
	}

	after, _, err := schemaVersion(m)
	if err != nil {
		return before, err
	}
	if after != before {
		logger.Info("Schema migrated", "db_path", dbPath, "from_version", before, "to_version", after)
	} else {
		logger.Debug("Schema up to date", "db_path", dbPath, "version", after)
	}
	return after, nil
}

// newMigrator opens its own connection so the repository's single-writer
// pool is not affected.
func newMigrator(dbPath string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open migration database: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, func() {
		m.Close()
		db.Close()
	}, nil
}

// schemaVersion is 0 for a database that has never been migrated.
func schemaVersion(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return v, dirty, nil
}
