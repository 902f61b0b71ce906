package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/packlaunch/internal/app/instanceset"
)

type InstanceSetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	name     string
	version  string
	format   string
}

// NewInstanceSetCommand returns the instance set command.
func NewInstanceSetCommand(rootCmd *RootCommand, instCmd *InstanceCommand) *InstanceSetCommand {
	c := &InstanceSetCommand{rootCmd: rootCmd}

	c.Cmd = instCmd.Cmd.Command("set", "Rename an instance or change its pinned modpack version.")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Flag("name", "New instance name.").Short('n').StringVar(&c.name)
	c.Cmd.Flag("version", "Pinned modpack version, use 'latest' to follow the latest version.").StringVar(&c.version)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c InstanceSetCommand) Name() string { return c.Cmd.FullCommand() }
func (c InstanceSetCommand) Prints() bool { return true }

func (c InstanceSetCommand) Run(ctx context.Context) error {
	repo, err := newRepository(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := instanceset.NewService(instanceset.ServiceConfig{
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	inst, err := svc.Run(ctx, instanceset.Request{
		NameOrID: c.nameOrID,
		Name:     c.name,
		Version:  c.version,
	})
	if err != nil {
		return fmt.Errorf("could not set instance: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd).PrintInstance(*inst); err != nil {
		return fmt.Errorf("could not print instance: %w", err)
	}

	return nil
}
