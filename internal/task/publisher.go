package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
)

// PublisherConfig is the configuration for the task publisher.
// Remote optionally mirrors every update on the network channel.
type PublisherConfig struct {
	Emitter Emitter
	Remote  RemoteSender
	Logger  log.Logger
}

func (c *PublisherConfig) defaults() error {
	if c.Emitter == nil {
		return fmt.Errorf("emitter is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "task.Publisher"})
	return nil
}

// Publisher owns the task records of the operations started on this side
// and publishes every change.
type Publisher struct {
	emitter Emitter
	remote  RemoteSender
	logger  log.Logger

	mu    sync.Mutex
	tasks map[string]model.TaskRecord
}

// NewPublisher creates a new task publisher.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Publisher{
		emitter: cfg.Emitter,
		remote:  cfg.Remote,
		logger:  cfg.Logger,
		tasks:   map[string]model.TaskRecord{},
	}, nil
}

// Update is a change on a task record. Zero fields are left untouched except
// the message, which replaces the previous one when set.
type Update struct {
	Status   model.TaskStatus
	Progress *float64
	Message  string
	Stage    model.Stage
	Stats    *model.VerificationStats
}

// Create registers a new pending task. Task ids can't be reused, not even
// after the task finished.
func (p *Publisher) Create(ctx context.Context, id string, data *model.TaskData, message string) (model.TaskRecord, error) {
	rec := model.TaskRecord{
		ID:      id,
		Status:  model.TaskStatusPending,
		Message: message,
		Data:    data,
	}
	if err := rec.Validate(); err != nil {
		return model.TaskRecord{}, fmt.Errorf("invalid task: %w", err)
	}

	p.mu.Lock()
	if _, ok := p.tasks[id]; ok {
		p.mu.Unlock()
		return model.TaskRecord{}, fmt.Errorf("task %s: %w", id, model.ErrAlreadyExists)
	}
	p.tasks[id] = rec
	p.mu.Unlock()

	p.publish(ctx, rec)
	return rec, nil
}

// Update applies a change on a task.
// Progress never goes backwards while running and terminal tasks can't change.
func (p *Publisher) Update(ctx context.Context, id string, u Update) (model.TaskRecord, error) {
	p.mu.Lock()
	rec, ok := p.tasks[id]
	if !ok {
		p.mu.Unlock()
		return model.TaskRecord{}, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	next := u.Status
	if next == "" {
		next = model.TaskStatusRunning
	}
	if !rec.Status.CanTransitionTo(next) {
		p.mu.Unlock()
		return model.TaskRecord{}, fmt.Errorf("task %s can't transition from %s to %s: %w", id, rec.Status, next, model.ErrNotValid)
	}
	rec.Status = next

	if u.Progress != nil {
		progress := clamp(*u.Progress)
		if rec.Status != model.TaskStatusRunning || progress > rec.Progress {
			rec.Progress = progress
		}
	}
	if rec.Status == model.TaskStatusCompleted {
		rec.Progress = 100
	}
	if u.Message != "" {
		rec.Message = u.Message
	}
	if (u.Stage != nil || u.Stats != nil) && rec.Data != nil {
		data := *rec.Data
		if u.Stage != nil {
			data.Stage = u.Stage
		}
		if u.Stats != nil {
			stats := *u.Stats
			data.Stats = &stats
		}
		rec.Data = &data
	}

	p.tasks[id] = rec
	p.mu.Unlock()

	p.publish(ctx, rec)
	return rec, nil
}

// Progress moves a task to running with a new progress and message.
func (p *Publisher) Progress(ctx context.Context, id string, progress float64, message string, stage model.Stage) (model.TaskRecord, error) {
	return p.Update(ctx, id, Update{Status: model.TaskStatusRunning, Progress: &progress, Message: message, Stage: stage})
}

// Complete finishes a task successfully.
func (p *Publisher) Complete(ctx context.Context, id, message string) (model.TaskRecord, error) {
	return p.Update(ctx, id, Update{Status: model.TaskStatusCompleted, Message: message})
}

// Fail finishes a task with an error.
func (p *Publisher) Fail(ctx context.Context, id string, err error) (model.TaskRecord, error) {
	msg := "operation failed"
	if err != nil {
		msg = err.Error()
	}
	return p.Update(ctx, id, Update{Status: model.TaskStatusFailed, Message: msg})
}

// Cancel finishes a task as cancelled.
func (p *Publisher) Cancel(ctx context.Context, id, message string) (model.TaskRecord, error) {
	return p.Update(ctx, id, Update{Status: model.TaskStatusCancelled, Message: message})
}

// Get returns the current record of a task.
func (p *Publisher) Get(id string) (model.TaskRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.tasks[id]
	if !ok {
		return model.TaskRecord{}, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	return rec, nil
}

// publish is fire and forget, failing to publish doesn't fail the operation.
func (p *Publisher) publish(ctx context.Context, rec model.TaskRecord) {
	ev := model.TaskUpdatedEvent{Task: rec}

	if err := p.emitter.Emit(model.EventTaskUpdated, ev); err != nil {
		p.logger.Warningf("could not emit task %s update: %s", rec.ID, err)
	}

	if p.remote != nil {
		if err := p.remote.Send(ctx, model.MessageTypeTaskUpdated, ev); err != nil {
			p.logger.Debugf("could not mirror task %s update: %s", rec.ID, err)
		}
	}
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
