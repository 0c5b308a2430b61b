package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// DefaultMigrationsSource is relative to the working directory of the binary.
const DefaultMigrationsSource = "file://migrations"

// MigrationStatus is the schema version after a migration command.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Empty   bool
}

// Migrate applies steps migrations; zero means all pending up migrations.
func Migrate(databaseURL, source string, steps int) (MigrationStatus, error) {
	m, closeFn, err := newMigrator(databaseURL, source)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer closeFn()

	if steps == 0 {
		err = m.Up()
	} else {
		err = m.Steps(steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return MigrationStatus{}, fmt.Errorf("failed to apply migrations: %w", err)
	}
	changed := err == nil

	status, err := version(m)
	if err != nil {
		return status, err
	}
	if status.Dirty {
		return status, fmt.Errorf("migration version %d is dirty - manual intervention required", status.Version)
	}

	switch {
	case status.Empty:
		log.Println("migrations: database has no applied migrations")
	case changed:
		log.Printf("migrations: applied successfully (version %d)", status.Version)
	default:
		log.Printf("migrations: database is up to date (version %d)", status.Version)
	}
	return status, nil
}

// MigrationVersion reports the current schema version without changing it.
func MigrationVersion(databaseURL, source string) (MigrationStatus, error) {
	m, closeFn, err := newMigrator(databaseURL, source)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer closeFn()
	return version(m)
}

func newMigrator(databaseURL, source string) (*migrate.Migrate, func(), error) {
	if source == "" {
		source = DefaultMigrationsSource
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, func() { _, _ = m.Close() }, nil
}

func version(m *migrate.Migrate) (MigrationStatus, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{Empty: true}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to get migration version: %w", err)
	}
	return MigrationStatus{Version: v, Dirty: dirty}, nil
}
