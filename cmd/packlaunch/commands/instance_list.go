package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/packlaunch/internal/app/instancelist"
)

type InstanceListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	modpackFilter string
	format        string
}

// NewInstanceListCommand returns the instance list command.
func NewInstanceListCommand(rootCmd *RootCommand, instCmd *InstanceCommand) *InstanceListCommand {
	c := &InstanceListCommand{rootCmd: rootCmd}

	c.Cmd = instCmd.Cmd.Command("list", "List all instances.")
	c.Cmd.Flag("modpack", "Filter by modpack ID.").StringVar(&c.modpackFilter)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c InstanceListCommand) Name() string { return c.Cmd.FullCommand() }
func (c InstanceListCommand) Prints() bool { return true }

func (c InstanceListCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	repo, err := newRepository(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := instancelist.NewService(instancelist.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	instances, err := svc.Run(ctx, instancelist.Request{
		ModpackFilter: c.modpackFilter,
	})
	if err != nil {
		return fmt.Errorf("could not list instances: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd).PrintInstanceList(instances); err != nil {
		return fmt.Errorf("could not print list: %w", err)
	}

	return nil
}
