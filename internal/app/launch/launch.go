package launch

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/storage"
	"github.com/slok/packlaunch/internal/task"
)

// Gate decides the launch pipeline of an instance.
type Gate interface {
	Decide(ctx context.Context, inst model.Instance) model.LaunchDecision
}

// Tracker starts and tracks long-running operations.
type Tracker interface {
	Start(ctx context.Context, op task.Operation, cb task.Callbacks) (*task.Tracking, error)
}

// ServiceConfig is the configuration for the launch service.
type ServiceConfig struct {
	Repository storage.InstanceRepository
	Gate       Gate
	Tracker    Tracker
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Gate == nil {
		return fmt.Errorf("gate is required")
	}
	if c.Tracker == nil {
		return fmt.Errorf("tracker is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Launch"})
	return nil
}

// Service prepares instances for launching, running the pipeline the version gate selects.
type Service struct {
	repo    storage.InstanceRepository
	gate    Gate
	tracker Tracker
	logger  log.Logger
}

// NewService creates a new launch service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:    cfg.Repository,
		gate:    cfg.Gate,
		tracker: cfg.Tracker,
		logger:  cfg.Logger,
	}, nil
}

// Request contains the parameters for launching an instance.
type Request struct {
	NameOrID string
	// OnProgress receives every progress update of the pipeline (optional).
	OnProgress func(rec model.TaskRecord, description string)
	// OnStatus receives the verification status changes (optional).
	OnStatus func(ev model.VerifyingStatusEvent)
}

// Result is the outcome of a launch preparation.
type Result struct {
	Instance model.Instance
	Decision model.LaunchDecision
	Task     model.TaskRecord
}

// Run decides and runs the pre-launch pipeline of an instance and waits until it finishes.
// After a successful full update the instance remembers the installed latest version.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	// 1. Get instance from storage (by name or ID).
	inst, err := s.repo.GetInstanceByName(ctx, req.NameOrID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			inst, err = s.repo.GetInstance(ctx, req.NameOrID)
		}
		if err != nil {
			return nil, fmt.Errorf("could not get instance: %w", err)
		}
	}
	logger := s.logger.WithValues(log.Kv{"instance-id": inst.ID})

	// 2. Decide the pipeline.
	dec := s.gate.Decide(ctx, *inst)
	if dec.Offline {
		logger.Warningf("Latest version unknown, launching offline")
	}
	logger.Infof("Running %s pipeline for instance %s", dec.Flow, inst.Name)

	op := task.Operation{
		Command:  model.CommandVerifyInstance,
		Args:     model.CommandArgs{InstanceID: inst.ID},
		DataType: model.TaskDataTypeInstanceVerification,
		EntityID: inst.ID,
	}
	if dec.Flow == model.FlowFull {
		op.Command = model.CommandUpdateInstance
		op.DataType = model.TaskDataTypeInstanceUpdate
	}

	// 3. Run and track it.
	tracking, err := s.tracker.Start(ctx, op, task.Callbacks{
		OnUpdate: req.OnProgress,
		OnStatus: req.OnStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("could not start %s pipeline: %w", dec.Flow, err)
	}

	rec, err := tracking.Wait(ctx)
	if err != nil {
		tracking.Stop()
		return nil, fmt.Errorf("%s pipeline didn't finish: %w", dec.Flow, err)
	}

	res := &Result{Instance: *inst, Decision: dec, Task: rec}
	if rec.Status != model.TaskStatusCompleted {
		return res, fmt.Errorf("%s pipeline %s: %s: %w", dec.Flow, rec.Status, rec.Message, model.ErrOperationFailed)
	}

	// 4. Remember the installed version.
	if dec.Flow == model.FlowFull && dec.LatestVersion != "" {
		if err := s.repo.UpdateLastKnownVersion(ctx, inst.ID, dec.LatestVersion); err != nil {
			return res, fmt.Errorf("could not store last known version: %w", err)
		}
		res.Instance.LastKnownVersion = dec.LatestVersion
	}

	logger.Infof("Instance %s ready to launch", inst.Name)
	return res, nil
}
