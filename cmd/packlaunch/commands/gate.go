package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/packlaunch/internal/versiongate"
)

type GateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	format   string
}

// NewGateCommand returns the gate command.
func NewGateCommand(rootCmd *RootCommand, app *kingpin.Application) *GateCommand {
	c := &GateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("gate", "Show the pipeline that would run before launching an instance.")
	c.Cmd.Arg("instance", "Instance name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c GateCommand) Name() string { return c.Cmd.FullCommand() }
func (c GateCommand) Prints() bool { return true }

func (c GateCommand) Run(ctx context.Context) error {
	repo, err := newRepository(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	inst, err := getInstance(ctx, repo, c.nameOrID)
	if err != nil {
		return err
	}

	gate, err := newGate(c.rootCmd)
	if err != nil {
		return err
	}

	dec := gate.Decide(ctx, *inst)
	if err := newPrinter(c.format, c.rootCmd).PrintDecision(*inst, dec); err != nil {
		return fmt.Errorf("could not print decision: %w", err)
	}

	return nil
}

// newGate creates the version gate, without a version service URL every
// instance following the latest version is decided offline.
func newGate(rootCmd *RootCommand) (*versiongate.Gate, error) {
	logger := rootCmd.Logger

	cfg := versiongate.GateConfig{Logger: logger}
	if url := rootCmd.Config.VersionQueryURL; url != "" {
		q, err := versiongate.NewHTTPQuerier(versiongate.HTTPQuerierConfig{
			URL:    url,
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create version querier: %w", err)
		}
		cfg.Querier = q
	}

	gate, err := versiongate.NewGate(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not create version gate: %w", err)
	}
	return gate, nil
}
