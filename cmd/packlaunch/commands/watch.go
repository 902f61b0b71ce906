package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/packlaunch/internal/app/watch"
	"github.com/slok/packlaunch/internal/model"
)

type WatchCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	modpackID string
	versionID string
	format    string
}

// NewWatchCommand returns the watch command.
func NewWatchCommand(rootCmd *RootCommand, app *kingpin.Application) *WatchCommand {
	c := &WatchCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("watch", "Watch the server side processing of a modpack version.")
	c.Cmd.Arg("modpack", "Modpack ID.").Required().StringVar(&c.modpackID)
	c.Cmd.Arg("version", "Modpack version ID.").Required().StringVar(&c.versionID)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c WatchCommand) Name() string { return c.Cmd.FullCommand() }

func (c WatchCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger
	p := newPrinter(c.format, c.rootCmd)

	if c.rootCmd.Config.RealtimeURL == "" {
		return fmt.Errorf("a realtime hub URL is required (--realtime-url or config file)")
	}

	ch, err := newRealtimeChannel(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer ch.Close()

	svc, err := watch.NewService(watch.ServiceConfig{
		Source: ch,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	_, err = svc.Run(ctx, watch.Request{
		ModpackID: c.modpackID,
		VersionID: c.versionID,
		OnChange: func(state model.ProcessingState) {
			if err := p.PrintProcessing(state); err != nil {
				logger.Warningf("could not print processing state: %s", err)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("could not watch processing: %w", err)
	}

	return nil
}
