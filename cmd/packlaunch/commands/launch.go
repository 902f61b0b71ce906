package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/packlaunch/internal/app/launch"
	"github.com/slok/packlaunch/internal/eventbridge"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/pipeline/fake"
	"github.com/slok/packlaunch/internal/task"
)

type LaunchCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID  string
	stepDelay time.Duration
	failAt    string
	format    string
}

// NewLaunchCommand returns the launch command.
func NewLaunchCommand(rootCmd *RootCommand, app *kingpin.Application) *LaunchCommand {
	c := &LaunchCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("launch", "Prepare an instance for launching, updating or validating it.")
	c.Cmd.Arg("instance", "Instance name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Flag("step-delay", "Simulated duration of every pipeline step.").Default("200ms").DurationVar(&c.stepDelay)
	c.Cmd.Flag("fail-at", "Simulate a failure when the update pipeline reaches this stage.").StringVar(&c.failAt)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c LaunchCommand) Name() string { return c.Cmd.FullCommand() }

func (c LaunchCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger
	p := newPrinter(c.format, c.rootCmd)

	repo, err := newRepository(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	bridge, err := eventbridge.NewBridge(eventbridge.BridgeConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create event bridge: %w", err)
	}
	defer bridge.Close()

	// Remote task updates are optional, the local bridge is always tracked.
	pubCfg := task.PublisherConfig{Emitter: bridge, Logger: logger}
	trackerCfg := task.TrackerConfig{Local: bridge, Timeout: c.rootCmd.Config.ListenerTimeout, Logger: logger}
	if c.rootCmd.Config.RealtimeURL != "" {
		ch, err := newRealtimeChannel(ctx, c.rootCmd)
		if err != nil {
			return err
		}
		defer ch.Close()
		pubCfg.Remote = ch
		trackerCfg.Remote = ch
	}

	pub, err := task.NewPublisher(pubCfg)
	if err != nil {
		return fmt.Errorf("could not create task publisher: %w", err)
	}

	pipeline, err := fake.NewPipeline(fake.PipelineConfig{
		Publisher:  pub,
		Emitter:    bridge,
		Repository: repo,
		StepDelay:  c.stepDelay,
		FailAt:     model.StageType(c.failAt),
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create pipeline: %w", err)
	}
	defer pipeline.Close()

	trackerCfg.Invoker = pipeline
	tracker, err := task.NewTracker(trackerCfg)
	if err != nil {
		return fmt.Errorf("could not create task tracker: %w", err)
	}

	gate, err := newGate(c.rootCmd)
	if err != nil {
		return err
	}

	svc, err := launch.NewService(launch.ServiceConfig{
		Repository: repo,
		Gate:       gate,
		Tracker:    tracker,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, launch.Request{
		NameOrID: c.nameOrID,
		OnProgress: func(rec model.TaskRecord, description string) {
			if err := p.PrintTask(rec, description); err != nil {
				logger.Warningf("could not print task: %s", err)
			}
		},
		OnStatus: func(ev model.VerifyingStatusEvent) {
			logger.Infof("Instance verification %s: %s", ev.Status, ev.Message)
		},
	})
	if res != nil {
		if err := p.PrintDecision(res.Instance, res.Decision); err != nil {
			logger.Warningf("could not print decision: %s", err)
		}
	}
	if err != nil {
		return fmt.Errorf("could not prepare instance: %w", err)
	}

	return p.PrintMessage(fmt.Sprintf("Instance %s ready to launch", res.Instance.Name))
}
