package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema means a previous migration failed halfway and the database
// needs manual repair.
var ErrDirtySchema = errors.New("draft schema is dirty")

// withMigrator runs fn against the embedded draft migrations on a separate
// connection, so the store's single pooled connection stays untouched.
func withMigrator(dsn string, fn func(m *migrate.Migrate) error) error {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	return fn(m)
}

// RunMigrations brings the draft schema up to date and returns its version.
func RunMigrations(dsn string) (uint, error) {
	var version uint
	err := withMigrator(dsn, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		if dirty {
			return fmt.Errorf("%w at version %d", ErrDirtySchema, v)
		}
		version = v
		return nil
	})
	return version, err
}

// SchemaVersion reports the applied version without migrating. A database
// that was never migrated has version 0.
func SchemaVersion(dsn string) (uint, error) {
	var version uint
	err := withMigrator(dsn, func(m *migrate.Migrate) error {
		v, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			return nil
		case err != nil:
			return err
		case dirty:
			return fmt.Errorf("%w at version %d", ErrDirtySchema, v)
		}
		version = v
		return nil
	})
	return version, err
}
