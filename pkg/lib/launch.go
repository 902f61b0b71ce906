package lib

import (
	"context"
	"fmt"

	"github.com/slok/packlaunch/internal/app/launch"
	"github.com/slok/packlaunch/internal/eventbridge"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/pipeline/fake"
	"github.com/slok/packlaunch/internal/task"
)

// LaunchOpts configures a launch preparation.
type LaunchOpts struct {
	// OnProgress receives every progress update of the pipeline (optional).
	OnProgress func(p TaskProgress)
}

// Launch decides and runs the pipeline of an instance and blocks until it ends.
// After a successful full pipeline the instance remembers the installed version.
// Pass nil opts for defaults.
//
// Returns [ErrNotFound] if the instance does not exist, or [ErrOperationFailed]
// with a non nil result if the pipeline ended without completing.
func (c *Client) Launch(ctx context.Context, nameOrID string, opts *LaunchOpts) (*LaunchResult, error) {
	bridge, err := eventbridge.NewBridge(eventbridge.BridgeConfig{Logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("could not create event bridge: %w", err)
	}
	defer bridge.Close()

	pub, err := task.NewPublisher(task.PublisherConfig{Emitter: bridge, Logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("could not create task publisher: %w", err)
	}

	pipeline, err := fake.NewPipeline(fake.PipelineConfig{
		Publisher:  pub,
		Emitter:    bridge,
		Repository: c.repo,
		StepDelay:  c.stepDelay,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create pipeline: %w", err)
	}
	defer pipeline.Close()

	tracker, err := task.NewTracker(task.TrackerConfig{
		Invoker: pipeline,
		Local:   bridge,
		Timeout: c.listenerTimeout,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create task tracker: %w", err)
	}

	svc, err := launch.NewService(launch.ServiceConfig{
		Repository: c.repo,
		Gate:       c.gate,
		Tracker:    tracker,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	req := launch.Request{NameOrID: nameOrID}
	if opts != nil && opts.OnProgress != nil {
		req.OnProgress = func(rec model.TaskRecord, description string) {
			opts.OnProgress(fromInternalTask(rec, description))
		}
	}

	res, err := svc.Run(ctx, req)
	if res == nil {
		return nil, mapError(err)
	}

	return &LaunchResult{
		Instance: fromInternalInstance(res.Instance),
		Decision: fromInternalDecision(res.Decision),
		Task:     fromInternalTask(res.Task, task.Describe(res.Task)),
	}, mapError(err)
}
