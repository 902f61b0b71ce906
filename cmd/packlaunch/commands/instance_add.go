package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/packlaunch/internal/app/instanceadd"
	"github.com/slok/packlaunch/internal/conventions"
)

type InstanceAddCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name      string
	modpackID string
	version   string
	dir       string
	noMkdir   bool
	format    string
}

// NewInstanceAddCommand returns the instance add command.
func NewInstanceAddCommand(rootCmd *RootCommand, instCmd *InstanceCommand) *InstanceAddCommand {
	c := &InstanceAddCommand{rootCmd: rootCmd}

	c.Cmd = instCmd.Cmd.Command("add", "Add a new modpack instance.")
	c.Cmd.Flag("name", "Name for the instance.").Short('n').Required().StringVar(&c.name)
	c.Cmd.Flag("modpack", "Modpack ID.").Short('m').Required().StringVar(&c.modpackID)
	c.Cmd.Flag("version", "Pinned modpack version, if not set the instance follows the latest version.").StringVar(&c.version)
	c.Cmd.Flag("dir", "Instance directory (defaults to the data directory instances).").StringVar(&c.dir)
	c.Cmd.Flag("no-mkdir", "Don't create the instance directory.").BoolVar(&c.noMkdir)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c InstanceAddCommand) Name() string { return c.Cmd.FullCommand() }
func (c InstanceAddCommand) Prints() bool { return true }

func (c InstanceAddCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	repo, err := newRepository(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := instanceadd.NewService(instanceadd.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	dir := c.dir
	if dir == "" {
		dir = conventions.InstanceDir(c.rootCmd.Config.DataDir, c.name)
	}

	inst, err := svc.Run(ctx, instanceadd.Request{
		Name:      c.name,
		ModpackID: c.modpackID,
		Version:   c.version,
		Dir:       dir,
		CreateDir: !c.noMkdir,
	})
	if err != nil {
		return fmt.Errorf("could not add instance: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd).PrintInstance(*inst); err != nil {
		return fmt.Errorf("could not print instance: %w", err)
	}

	return nil
}
