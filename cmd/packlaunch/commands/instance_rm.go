package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/packlaunch/internal/app/instanceremove"
	"github.com/slok/packlaunch/internal/printer"
)

type InstanceRemoveCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID    string
	removeFiles bool
}

// NewInstanceRemoveCommand returns the instance rm command.
func NewInstanceRemoveCommand(rootCmd *RootCommand, instCmd *InstanceCommand) *InstanceRemoveCommand {
	c := &InstanceRemoveCommand{rootCmd: rootCmd}

	c.Cmd = instCmd.Cmd.Command("rm", "Remove a modpack instance.")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Flag("files", "Delete the instance directory too.").BoolVar(&c.removeFiles)

	return c
}

func (c InstanceRemoveCommand) Name() string { return c.Cmd.FullCommand() }
func (c InstanceRemoveCommand) Prints() bool { return true }

func (c InstanceRemoveCommand) Run(ctx context.Context) error {
	repo, err := newRepository(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := instanceremove.NewService(instanceremove.ServiceConfig{
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	inst, err := svc.Run(ctx, instanceremove.Request{
		NameOrID:    c.nameOrID,
		RemoveFiles: c.removeFiles,
	})
	if err != nil {
		return fmt.Errorf("could not remove instance: %w", err)
	}

	msg := fmt.Sprintf("Removed instance: %s", inst.Name)
	if c.removeFiles {
		msg = fmt.Sprintf("Removed instance and its files: %s (%s)", inst.Name, inst.Dir)
	}
	if err := printer.NewTablePrinter(c.rootCmd.Stdout).PrintMessage(msg); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
