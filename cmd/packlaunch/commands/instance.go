package commands

import (
	"github.com/alecthomas/kingpin/v2"
)

// InstanceCommand is the parent command for instance management subcommands.
type InstanceCommand struct {
	Cmd *kingpin.CmdClause
}

// NewInstanceCommand returns the instance parent command.
func NewInstanceCommand(app *kingpin.Application) *InstanceCommand {
	return &InstanceCommand{
		Cmd: app.Command("instance", "Manage modpack instances."),
	}
}
