// Package migrations owns the embedded schema of the instances database.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
)

//go:embed sql/*.sql
var schemaFiles embed.FS

// MigratorConfig is the configuration for the schema migrator.
type MigratorConfig struct {
	DB     *sql.DB
	Logger log.Logger
}

func (c *MigratorConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLiteMigrator"})
	return nil
}

// Migrator brings the instances schema to the version embedded in the binary.
type Migrator struct {
	db     *sql.DB
	logger log.Logger
}

// NewMigrator creates a new schema migrator.
func NewMigrator(cfg MigratorConfig) (*Migrator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Migrator{db: cfg.DB, logger: cfg.Logger}, nil
}

// Up applies the pending schema changes, an up to date schema is not an error.
func (m *Migrator) Up(ctx context.Context) error {
	return m.withMigrate(func(mg *migrate.Migrate) error {
		err := mg.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Debugf("Instances schema already up to date")
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not apply schema changes: %w", err)
		}

		m.logger.Debugf("Instances schema updated")
		return nil
	})
}

// Version returns the applied schema version, 0 if the schema was never created.
// A schema left dirty by an interrupted change is not valid.
func (m *Migrator) Version(ctx context.Context) (uint, error) {
	var version uint
	err := m.withMigrate(func(mg *migrate.Migrate) error {
		v, dirty, err := mg.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not get schema version: %w", err)
		}
		if dirty {
			return fmt.Errorf("schema version %d is dirty: %w", v, model.ErrNotValid)
		}
		version = v
		return nil
	})
	return version, err
}

// withMigrate runs f with a migrate instance over the embedded schema files.
// The instance is not closed, that would close the shared database.
func (m *Migrator) withMigrate(f func(mg *migrate.Migrate) error) error {
	driver, err := sqlite3.WithInstance(m.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create driver: %w", err)
	}

	src, err := iofs.New(schemaFiles, "sql")
	if err != nil {
		return fmt.Errorf("could not read embedded schema: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			m.logger.Errorf("could not close embedded schema: %s", err)
		}
	}()

	mg, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	return f(mg)
}
