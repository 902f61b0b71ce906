package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/packlaunch/internal/conventions"
	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/printer"
	"github.com/slok/packlaunch/internal/realtime"
	"github.com/slok/packlaunch/internal/realtime/websocket"
	storageio "github.com/slok/packlaunch/internal/storage/io"
	"github.com/slok/packlaunch/internal/storage/sqlite"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// PrinterCommand is implemented by the commands whose output is a printed result.
// Their logs are disabled unless debug is enabled, so they don't mix with it.
type PrinterCommand interface {
	Command
	Prints() bool
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug           bool
	NoLog           bool
	NoColor         bool
	LoggerType      string
	DataDir         string
	ConfigPath      string
	RealtimeURL     string
	VersionQueryURL string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
	// Config is the resolved launcher configuration, flags take precedence over the config file.
	Config model.LauncherConfig
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("data-dir", "Launcher data directory (defaults to ~/"+conventions.DefaultDataDir+").").StringVar(&c.DataDir)
	app.Flag("config", "Launcher configuration file (YAML or TOML).").StringVar(&c.ConfigPath)
	app.Flag("realtime-url", "Realtime hub websocket URL.").StringVar(&c.RealtimeURL)
	app.Flag("version-url", "Modpack service base URL used to query the latest versions.").StringVar(&c.VersionQueryURL)

	return c
}

// LoadConfig resolves the launcher configuration from the flags and the config file.
// Without an explicit config file the data directory is searched for one.
func (c *RootCommand) LoadConfig(ctx context.Context) error {
	dataDir := c.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir)
	}

	path := c.ConfigPath
	if path == "" {
		path = findConfigFile(dataDir)
	}

	var cfg model.LauncherConfig
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("invalid config path: %w", err)
		}
		repo := storageio.NewConfigFileRepository(os.DirFS(filepath.Dir(abs)))
		cfg, err = repo.GetConfig(ctx, filepath.Base(abs))
		if err != nil {
			return fmt.Errorf("could not load config %s: %w", path, err)
		}
	}

	switch {
	case c.DataDir != "":
		cfg.DataDir = c.DataDir
	case cfg.DataDir == "":
		cfg.DataDir = dataDir
	}
	if c.RealtimeURL != "" {
		cfg.RealtimeURL = c.RealtimeURL
	}
	if c.VersionQueryURL != "" {
		cfg.VersionQueryURL = c.VersionQueryURL
	}

	c.Config = cfg
	return nil
}

func findConfigFile(dataDir string) string {
	for _, name := range []string{conventions.ConfigYAMLFile, conventions.ConfigTOMLFile} {
		path := filepath.Join(dataDir, name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return path
	}
	return ""
}

func newRepository(ctx context.Context, rootCmd *RootCommand) (*sqlite.Repository, error) {
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: conventions.DBPath(rootCmd.Config.DataDir),
		Logger: rootCmd.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}
	return repo, nil
}

// newRealtimeChannel creates and connects the realtime channel. A failed connection
// keeps retrying in the background and is only logged.
func newRealtimeChannel(ctx context.Context, rootCmd *RootCommand) (*realtime.Channel, error) {
	logger := rootCmd.Logger

	d, err := websocket.NewDialer(websocket.DialerConfig{
		URL:    rootCmd.Config.RealtimeURL,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create websocket dialer: %w", err)
	}

	ch, err := realtime.NewChannel(realtime.ChannelConfig{
		Dialer:        d,
		RetryInterval: rootCmd.Config.RealtimeRetryInterval,
		MaxAttempts:   rootCmd.Config.RealtimeMaxAttempts,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create realtime channel: %w", err)
	}

	if err := ch.Connect(ctx); err != nil {
		logger.Warningf("Realtime channel not connected, retrying in background: %s", err)
	}

	return ch, nil
}

func newPrinter(format string, rootCmd *RootCommand) printer.Printer {
	switch format {
	case "json":
		return printer.NewJSONPrinter(rootCmd.Stdout)
	default: // table
		return printer.NewTablePrinter(rootCmd.Stdout)
	}
}

func getInstance(ctx context.Context, repo *sqlite.Repository, nameOrID string) (*model.Instance, error) {
	inst, err := repo.GetInstanceByName(ctx, nameOrID)
	if errors.Is(err, model.ErrNotFound) {
		inst, err = repo.GetInstance(ctx, nameOrID)
	}
	if err != nil {
		return nil, fmt.Errorf("could not get instance: %w", err)
	}
	return inst, nil
}
