package lib

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/slok/packlaunch/internal/conventions"
	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/storage"
	"github.com/slok/packlaunch/internal/storage/sqlite"
	"github.com/slok/packlaunch/internal/versiongate"
)

// Config configures the SDK client.
//
// All fields are optional and have sensible defaults. At minimum, an empty
// Config{} will use ~/.packlaunch/packlaunch.db for storage and decide every
// launch offline.
type Config struct {
	// DataDir is the base directory for packlaunch data (database, instances).
	// Default: ~/.packlaunch.
	DataDir string

	// DBPath is the SQLite database path.
	// Default: {DataDir}/packlaunch.db.
	DBPath string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger

	// VersionQueryURL is the modpack service base URL used to query the latest versions.
	// When empty, instances that follow the latest version are launched offline.
	VersionQueryURL string

	// RealtimeURL is the realtime hub websocket URL. Required by [Client.WatchProcessing].
	RealtimeURL string

	// ListenerTimeout is the ceiling of a tracked pipeline run.
	// Default: 5m.
	ListenerTimeout time.Duration

	// StepDelay is the simulated duration of every pipeline step.
	// Default: 0 (no delay).
	StepDelay time.Duration
}

func (c *Config) defaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, conventions.DefaultDataDir)
	}

	if c.DBPath == "" {
		c.DBPath = conventions.DBPath(c.DataDir)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the main SDK entry point for managing instances programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	repo            storage.InstanceRepository
	gate            *versiongate.Gate
	logger          log.Logger
	dataDir         string
	realtimeURL     string
	listenerTimeout time.Duration
	stepDelay       time.Duration
	closeFn         func() error
}

// New creates a new SDK client backed by a SQLite database.
//
// The caller must call [Client.Close] when done to release the database
// connection. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	gateCfg := versiongate.GateConfig{Logger: cfg.Logger}
	if cfg.VersionQueryURL != "" {
		q, err := versiongate.NewHTTPQuerier(versiongate.HTTPQuerierConfig{
			URL:    cfg.VersionQueryURL,
			Logger: cfg.Logger,
		})
		if err != nil {
			return nil, mapError(fmt.Errorf("could not create version querier: %w", err))
		}
		gateCfg.Querier = q
	}
	gate, err := versiongate.NewGate(gateCfg)
	if err != nil {
		return nil, fmt.Errorf("could not create version gate: %w", err)
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	return &Client{
		repo:            repo,
		gate:            gate,
		logger:          cfg.Logger,
		dataDir:         cfg.DataDir,
		realtimeURL:     cfg.RealtimeURL,
		listenerTimeout: cfg.ListenerTimeout,
		stepDelay:       cfg.StepDelay,
		closeFn:         repo.Close,
	}, nil
}

// Close releases resources held by the client, including the database connection.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// getInternalInstance resolves an instance by name first, then by ID.
func (c *Client) getInternalInstance(ctx context.Context, nameOrID string) (*model.Instance, error) {
	inst, err := c.repo.GetInstanceByName(ctx, nameOrID)
	if errors.Is(err, model.ErrNotFound) {
		inst, err = c.repo.GetInstance(ctx, nameOrID)
	}
	if err != nil {
		return nil, err
	}
	return inst, nil
}
