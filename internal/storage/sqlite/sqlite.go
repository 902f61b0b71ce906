package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
	// Now is used for the update timestamps, defaults to time.Now.
	Now func() time.Time
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})

	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Repository is a SQLite implementation of storage.InstanceRepository.
type Repository struct {
	db     *sql.DB
	now    func() time.Time
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(migrations.MigratorConfig{DB: db, Logger: cfg.Logger})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}
	version, err := migrator.Version(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not check schema: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s (schema v%d)", cfg.DBPath, version)

	return &Repository{db: db, now: cfg.Now, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

const selectInstance = `
		SELECT
			id, name,
			modpack_id, modpack_version_id, last_known_version,
			dir,
			created_at, updated_at
		FROM instances
`

// CreateInstance creates a new instance in the repository.
func (r *Repository) CreateInstance(ctx context.Context, inst model.Instance) error {
	if inst.ID == "" {
		return fmt.Errorf("id is required: %w", model.ErrNotValid)
	}
	if err := inst.Validate(); err != nil {
		return fmt.Errorf("invalid instance: %w", err)
	}

	query := `
		INSERT INTO instances (
			id, name,
			modpack_id, modpack_version_id, last_known_version,
			dir,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		inst.ID,
		inst.Name,
		inst.ModpackID,
		inst.ModpackVersionID,
		inst.LastKnownVersion,
		inst.Dir,
		inst.CreatedAt.Unix(),
		unixOrNil(inst.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: instances.") {
			return fmt.Errorf("instance already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert instance: %w", err)
	}

	r.logger.Debugf("Created instance in repository: %s", inst.ID)
	return nil
}

// GetInstance retrieves an instance by ID.
func (r *Repository) GetInstance(ctx context.Context, id string) (*model.Instance, error) {
	inst, err := r.scanOne(ctx, selectInstance+"WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("instance %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query instance: %w", err)
	}

	return inst, nil
}

// GetInstanceByName retrieves an instance by name.
func (r *Repository) GetInstanceByName(ctx context.Context, name string) (*model.Instance, error) {
	inst, err := r.scanOne(ctx, selectInstance+"WHERE name = ?", name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("instance with name %s: %w", name, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query instance: %w", err)
	}

	return inst, nil
}

// ListInstances returns all instances, newest first.
func (r *Repository) ListInstances(ctx context.Context) ([]model.Instance, error) {
	rows, err := r.db.QueryContext(ctx, selectInstance+"ORDER BY created_at DESC, name ASC")
	if err != nil {
		return nil, fmt.Errorf("could not query instances: %w", err)
	}
	defer rows.Close()

	var instances []model.Instance
	for rows.Next() {
		inst, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		instances = append(instances, inst)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return instances, nil
}

// UpdateInstance updates an existing instance.
func (r *Repository) UpdateInstance(ctx context.Context, inst model.Instance) error {
	if err := inst.Validate(); err != nil {
		return fmt.Errorf("invalid instance: %w", err)
	}

	query := `
		UPDATE instances
		SET
			name = ?,
			modpack_id = ?,
			modpack_version_id = ?,
			last_known_version = ?,
			dir = ?,
			created_at = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		inst.Name,
		inst.ModpackID,
		inst.ModpackVersionID,
		inst.LastKnownVersion,
		inst.Dir,
		inst.CreatedAt.Unix(),
		unixOrNil(inst.UpdatedAt),
		inst.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: instances.") {
			return fmt.Errorf("instance name already in use: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not update instance: %w", err)
	}

	return r.checkAffected(result, inst.ID, "Updated instance in repository")
}

// UpdateLastKnownVersion sets the last known modpack version of an instance.
func (r *Repository) UpdateLastKnownVersion(ctx context.Context, id, version string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE instances SET last_known_version = ?, updated_at = ? WHERE id = ?`,
		version, r.now().Unix(), id)
	if err != nil {
		return fmt.Errorf("could not update last known version: %w", err)
	}

	return r.checkAffected(result, id, "Updated instance last known version")
}

// DeleteInstance deletes an instance.
func (r *Repository) DeleteInstance(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete instance: %w", err)
	}

	return r.checkAffected(result, id, "Deleted instance from repository")
}

func (r *Repository) checkAffected(result sql.Result, id, msg string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("instance %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("%s: %s", msg, id)
	return nil
}

func (r *Repository) scanOne(ctx context.Context, query string, arg any) (*model.Instance, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	inst, err := r.scanRow(row)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanRow(s scanner) (model.Instance, error) {
	var inst model.Instance
	var createdAt, updatedAt sql.NullInt64

	err := s.Scan(
		&inst.ID,
		&inst.Name,
		&inst.ModpackID,
		&inst.ModpackVersionID,
		&inst.LastKnownVersion,
		&inst.Dir,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return model.Instance{}, err
	}

	if !createdAt.Valid {
		return model.Instance{}, fmt.Errorf("created_at is required")
	}
	inst.CreatedAt = timeFromUnix(createdAt.Int64)
	if updatedAt.Valid {
		inst.UpdatedAt = timeFromUnix(updatedAt.Int64)
	}

	return inst, nil
}

func unixOrNil(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	u := t.Unix()
	return &u
}

func timeFromUnix(unix int64) time.Time { return time.Unix(unix, 0).UTC() }
