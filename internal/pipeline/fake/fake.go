// Package fake is a host side start-operation implementation that simulates the
// update and verification pipelines by publishing their task records.
package fake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"k8s.io/utils/clock"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/storage"
	"github.com/slok/packlaunch/internal/task"
	"github.com/slok/packlaunch/internal/validate"
)

const defaultFilesPerStage = 3

// PipelineConfig is the configuration for the fake pipeline.
type PipelineConfig struct {
	Publisher  *task.Publisher
	Emitter    task.Emitter
	Repository storage.InstanceRepository
	Validator  *validate.Validator
	// StepDelay is the simulated time every step takes.
	StepDelay time.Duration
	// FilesPerStage is the number of files simulated on every counted stage.
	FilesPerStage int
	// FailAt makes the update pipelines fail when reaching this stage.
	FailAt model.StageType
	Clock  clock.Clock
	Logger log.Logger
}

func (c *PipelineConfig) defaults() error {
	if c.Publisher == nil {
		return fmt.Errorf("publisher is required")
	}
	if c.Emitter == nil {
		return fmt.Errorf("emitter is required")
	}
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "pipeline.Fake"})

	if c.Validator == nil {
		v, err := validate.NewValidator(validate.ValidatorConfig{Logger: c.Logger})
		if err != nil {
			return fmt.Errorf("could not create validator: %w", err)
		}
		c.Validator = v
	}
	if c.FilesPerStage <= 0 {
		c.FilesPerStage = defaultFilesPerStage
	}
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	return nil
}

// Pipeline is a fake implementation of the task.Invoker interface.
// Every invocation is acknowledged right away and runs in the background.
type Pipeline struct {
	publisher     *task.Publisher
	emitter       task.Emitter
	repo          storage.InstanceRepository
	validator     *validate.Validator
	stepDelay     time.Duration
	filesPerStage int
	failAt        model.StageType
	clock         clock.Clock
	logger        log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPipeline creates a new fake pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		publisher:     cfg.Publisher,
		emitter:       cfg.Emitter,
		repo:          cfg.Repository,
		validator:     cfg.Validator,
		stepDelay:     cfg.StepDelay,
		filesPerStage: cfg.FilesPerStage,
		failAt:        cfg.FailAt,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Invoke satisfies task.Invoker.
func (p *Pipeline) Invoke(ctx context.Context, command string, args model.CommandArgs) (model.CommandAck, error) {
	taskID := args.TaskID
	if taskID == "" {
		taskID = ulid.Make().String()
	}

	var (
		data *model.TaskData
		run  func(ctx context.Context, taskID string) error
	)
	switch command {
	case model.CommandUpdateInstance:
		if _, err := p.repo.GetInstance(ctx, args.InstanceID); err != nil {
			return model.CommandAck{}, fmt.Errorf("could not get instance: %w", err)
		}
		data = &model.TaskData{Type: model.TaskDataTypeInstanceUpdate, InstanceID: args.InstanceID}
		run = func(ctx context.Context, taskID string) error {
			return p.runStages(ctx, taskID, model.FullFlowStages)
		}

	case model.CommandUpdateModpack:
		if args.ModpackID == "" {
			return model.CommandAck{}, fmt.Errorf("modpack id is required: %w", model.ErrNotValid)
		}
		data = &model.TaskData{Type: model.TaskDataTypeModpackUpdate, ModpackID: args.ModpackID}
		run = func(ctx context.Context, taskID string) error {
			return p.runStages(ctx, taskID, []model.StageType{model.StageTypeDownloadingModpackFiles, model.StageTypeCheckingModpackStatus})
		}

	case model.CommandVerifyInstance:
		inst, err := p.repo.GetInstance(ctx, args.InstanceID)
		if err != nil {
			return model.CommandAck{}, fmt.Errorf("could not get instance: %w", err)
		}
		data = &model.TaskData{Type: model.TaskDataTypeInstanceVerification, InstanceID: inst.ID}
		run = func(ctx context.Context, taskID string) error {
			return p.runVerification(ctx, taskID, *inst)
		}

	default:
		return model.CommandAck{}, fmt.Errorf("unknown command %q: %w", command, model.ErrNotValid)
	}

	if _, err := p.publisher.Create(ctx, taskID, data, "Starting"); err != nil {
		return model.CommandAck{}, fmt.Errorf("could not create task: %w", err)
	}

	logger := p.logger.WithValues(log.Kv{"task-id": taskID, "command": command})
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		err := run(p.ctx, taskID)
		switch {
		case err == nil:
			_, err = p.publisher.Complete(p.ctx, taskID, "Completed")
		case errors.Is(err, context.Canceled):
			_, err = p.publisher.Cancel(p.ctx, taskID, "Cancelled")
		default:
			logger.Warningf("operation failed: %s", err)
			_, err = p.publisher.Fail(p.ctx, taskID, err)
		}
		if err != nil {
			logger.Errorf("could not finish task: %s", err)
		}
	}()

	return model.CommandAck{TaskID: taskID}, nil
}

// Close cancels the running operations and waits until they finish.
func (p *Pipeline) Close() {
	p.cancel()
	p.wg.Wait()
}

// Wait waits until the running operations finish.
func (p *Pipeline) Wait() { p.wg.Wait() }

func (p *Pipeline) runStages(ctx context.Context, taskID string, stages []model.StageType) error {
	total := float64(len(stages))
	for i, st := range stages {
		if st == p.failAt {
			return fmt.Errorf("stage %s failed", st)
		}

		counted := isCounted(st)
		steps := 1
		if counted {
			steps = p.filesPerStage
		}

		for n := 1; n <= steps; n++ {
			if err := p.sleep(ctx); err != nil {
				return err
			}

			stage := newStage(st, n, steps)
			progress := (float64(i) + float64(n)/float64(steps)) / total * 100
			if _, err := p.publisher.Progress(ctx, taskID, progress, model.StageDescription(stage), stage); err != nil {
				return fmt.Errorf("could not publish progress: %w", err)
			}
		}
	}

	return nil
}

func (p *Pipeline) runVerification(ctx context.Context, taskID string, inst model.Instance) error {
	p.emitStatus(inst.ID, "verifying", "Verifying instance files")

	stage := model.LightweightValidation{}
	if _, err := p.publisher.Progress(ctx, taskID, 0, model.StageDescription(stage), stage); err != nil {
		return fmt.Errorf("could not publish progress: %w", err)
	}

	res, err := p.validator.Validate(ctx, inst.Dir, func(stats model.VerificationStats) {
		if err := p.sleep(ctx); err != nil {
			return
		}
		progress := float64(stats.CheckedFiles) / float64(stats.TotalFiles) * 100
		_, err := p.publisher.Update(ctx, taskID, task.Update{Progress: &progress, Stats: &stats})
		if err != nil {
			p.logger.Warningf("could not publish verification stats: %s", err)
		}
	})
	if err != nil {
		p.emitStatus(inst.ID, "error", err.Error())
		return fmt.Errorf("could not verify instance: %w", err)
	}

	if err := res.Err(); err != nil {
		p.emitStatus(inst.ID, "invalid", err.Error())
		return err
	}

	p.emitStatus(inst.ID, "verified", "Instance files verified")
	return nil
}

func (p *Pipeline) emitStatus(instanceID, status, msg string) {
	ev := model.VerifyingStatusEvent{InstanceID: instanceID, Status: status, Message: msg}
	if err := p.emitter.Emit(model.EventInstanceVerifyingStatus, ev); err != nil {
		p.logger.Warningf("could not emit verifying status: %s", err)
	}
}

func (p *Pipeline) sleep(ctx context.Context) error {
	if p.stepDelay <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(p.stepDelay):
		return nil
	}
}

func isCounted(st model.StageType) bool {
	_, ok := model.StageCounter(newStage(st, 0, 0))
	return ok
}

func newStage(st model.StageType, current, total int) model.Stage {
	c := model.Counter{Current: current, Total: total}
	switch st {
	case model.StageTypeDownloadingFiles:
		return model.DownloadingFiles{Counter: c}
	case model.StageTypeExtractingLibraries:
		return model.ExtractingLibraries{Counter: c}
	case model.StageTypeInstallingForge:
		return model.InstallingForge{}
	case model.StageTypeDownloadingForgeLibraries:
		return model.DownloadingForgeLibraries{Counter: c}
	case model.StageTypeValidatingAssets:
		return model.ValidatingAssets{Counter: c}
	case model.StageTypeDownloadingModpackFiles:
		return model.DownloadingModpackFiles{Counter: c}
	case model.StageTypeCheckingModpackStatus:
		return model.CheckingModpackStatus{}
	default:
		return model.LightweightValidation{}
	}
}
