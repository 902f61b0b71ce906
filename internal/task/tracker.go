package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/packlaunch/internal/eventbridge"
	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
)

// DefaultTimeout is the ceiling of the listeners of a tracked operation.
const DefaultTimeout = eventbridge.DefaultListenerTimeout

// TrackerConfig is the configuration for the task tracker.
// Remote is optional, when set updates are also received from the network channel.
type TrackerConfig struct {
	Invoker Invoker
	Local   LocalSource
	Remote  RemoteSource
	Timeout time.Duration
	IDGen   func() string
	Logger  log.Logger
}

func (c *TrackerConfig) defaults() error {
	if c.Invoker == nil {
		return fmt.Errorf("invoker is required")
	}
	if c.Local == nil {
		return fmt.Errorf("local source is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.IDGen == nil {
		c.IDGen = func() string { return ulid.Make().String() }
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "task.Tracker"})
	return nil
}

// Tracker starts operations and follows their task records until they finish.
type Tracker struct {
	invoker Invoker
	local   LocalSource
	remote  RemoteSource
	timeout time.Duration
	idGen   func() string
	logger  log.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewTracker creates a new task tracker.
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Tracker{
		invoker: cfg.Invoker,
		local:   cfg.Local,
		remote:  cfg.Remote,
		timeout: cfg.Timeout,
		idGen:   cfg.IDGen,
		logger:  cfg.Logger,
		seen:    map[string]struct{}{},
	}, nil
}

// Operation is a long-running operation to start and track.
// DataType and EntityID correlate the updates that don't carry the tracked id.
type Operation struct {
	Command  string
	Args     model.CommandArgs
	DataType model.TaskDataType
	EntityID string
}

// Callbacks are the hooks of a tracked operation. All are optional.
// They run sequentially, never concurrently with each other.
type Callbacks struct {
	OnUpdate    func(rec model.TaskRecord, description string)
	OnCompleted func(rec model.TaskRecord)
	OnFailed    func(rec model.TaskRecord)
	OnCancelled func(rec model.TaskRecord)
	OnTimeout   func()
	OnStatus    func(ev model.VerifyingStatusEvent)
}

// Start subscribes to the task updates of the operation and then invokes it.
// If the invocation fails no listener is left behind.
func (t *Tracker) Start(ctx context.Context, op Operation, cb Callbacks) (*Tracking, error) {
	if op.Command == "" {
		return nil, fmt.Errorf("command is required: %w", model.ErrNotValid)
	}

	taskID := op.Args.TaskID
	if taskID == "" {
		taskID = t.idGen()
	}
	op.Args.TaskID = taskID

	tr := &Tracking{
		tracker: t,
		op:      op,
		cb:      cb,
		taskID:  taskID,
		logger:  t.logger.WithValues(log.Kv{"task-id": taskID, "command": op.Command}),
		done:    make(chan struct{}),
	}

	if err := tr.subscribe(); err != nil {
		tr.unsubscribe()
		return nil, fmt.Errorf("could not subscribe to task updates: %w", err)
	}

	ack, err := t.invoker.Invoke(ctx, op.Command, op.Args)
	if err != nil {
		tr.unsubscribe()
		return nil, fmt.Errorf("%w: %s: %w", model.ErrStartFailed, op.Command, err)
	}
	if ack.TaskID != "" {
		if ack.TaskID != taskID {
			tr.logger.Debugf("host acknowledged with task id %s", ack.TaskID)
		}
		tr.adopt(ack.TaskID)
	}

	go tr.watchCeiling()

	return tr, nil
}

// markTerminal returns true only the first time a task id is seen as finished.
func (t *Tracker) markTerminal(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[id]; ok {
		return false
	}
	t.seen[id] = struct{}{}
	return true
}

// Tracking is a started operation being tracked.
type Tracking struct {
	tracker *Tracker
	op      Operation
	cb      Callbacks
	logger  log.Logger

	// deliverMu serializes callbacks coming from different transports.
	deliverMu sync.Mutex

	mu       sync.Mutex
	taskID   string
	idKnown  bool
	finished bool
	result   model.TaskRecord
	err      error
	local    *eventbridge.Subscription
	subs     []interface{ Unsubscribe() }
	done     chan struct{}
}

// TaskID returns the id of the tracked task.
func (t *Tracking) TaskID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.taskID
}

// Done is closed when the tracking ends.
func (t *Tracking) Done() <-chan struct{} { return t.done }

// Wait blocks until the operation reaches a terminal status, the ceiling
// is reached or the context ends. The final record is returned for any terminal status.
func (t *Tracking) Wait(ctx context.Context) (model.TaskRecord, error) {
	select {
	case <-ctx.Done():
		return model.TaskRecord{}, ctx.Err()
	case <-t.done:
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}

// Stop stops tracking without firing any callback. The operation itself keeps running.
func (t *Tracking) Stop() {
	if !t.finish(model.TaskRecord{}, model.ErrClosed) {
		return
	}
	t.unsubscribe()
	close(t.done)
}

func (t *Tracking) subscribe() error {
	local, err := t.tracker.local.SubscribeWithTimeout(model.EventTaskUpdated, t.tracker.timeout, t.handleLocal)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.local = local
	t.subs = append(t.subs, local)
	t.mu.Unlock()

	if t.cb.OnStatus != nil {
		sub, err := t.tracker.local.SubscribeWithTimeout(model.EventInstanceVerifyingStatus, t.tracker.timeout, t.handleStatus)
		if err != nil {
			return err
		}
		t.mu.Lock()
		t.subs = append(t.subs, sub)
		t.mu.Unlock()
	}

	if t.tracker.remote != nil {
		sub, err := t.tracker.remote.On(model.MessageTypeTaskUpdated, t.handleRemote)
		if err != nil {
			return err
		}
		t.mu.Lock()
		t.subs = append(t.subs, sub)
		t.mu.Unlock()
	}

	return nil
}

func (t *Tracking) unsubscribe() {
	t.mu.Lock()
	subs := t.subs
	t.subs = nil
	t.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

// adopt fixes the id of the tracked task, from then on only records with that id match.
func (t *Tracking) adopt(id string) {
	t.mu.Lock()
	t.taskID = id
	t.idKnown = true
	t.mu.Unlock()
}

// watchCeiling ends the tracking when the local listener is force removed,
// by its ceiling or by the bridge being closed.
func (t *Tracking) watchCeiling() {
	t.mu.Lock()
	local := t.local
	t.mu.Unlock()

	select {
	case <-t.done:
		return
	case <-local.Done():
	}

	reason := local.Err()
	if reason == nil {
		reason = model.ErrClosed
	}
	if !t.finish(model.TaskRecord{}, reason) {
		return
	}
	t.unsubscribe()

	if errors.Is(reason, model.ErrTimeout) {
		t.logger.Warningf("task listeners reached the %s ceiling", t.tracker.timeout)
		t.deliverMu.Lock()
		if t.cb.OnTimeout != nil {
			t.cb.OnTimeout()
		}
		t.deliverMu.Unlock()
	} else {
		t.logger.Debugf("task listeners removed before the task finished: %s", reason)
	}

	close(t.done)
}

func (t *Tracking) handleLocal(ev eventbridge.Event) {
	var payload model.TaskUpdatedEvent
	if err := ev.Decode(&payload); err != nil {
		t.logger.Warningf("discarding invalid task event: %s", err)
		return
	}
	t.handle(payload.Task)
}

func (t *Tracking) handleRemote(env model.Envelope) {
	var payload model.TaskUpdatedEvent
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.logger.Warningf("discarding invalid task message: %s", err)
		return
	}
	t.handle(payload.Task)
}

func (t *Tracking) handleStatus(ev eventbridge.Event) {
	var payload model.VerifyingStatusEvent
	if err := ev.Decode(&payload); err != nil {
		t.logger.Warningf("discarding invalid verifying status event: %s", err)
		return
	}
	if payload.InstanceID != "" && payload.InstanceID != t.op.Args.InstanceID {
		return
	}

	t.deliverMu.Lock()
	defer t.deliverMu.Unlock()
	if t.isFinished() {
		return
	}
	t.cb.OnStatus(payload)
}

func (t *Tracking) handle(rec model.TaskRecord) {
	if err := rec.Validate(); err != nil {
		t.logger.Warningf("discarding invalid task record: %s", err)
		return
	}
	if !t.matches(rec) {
		return
	}

	t.deliverMu.Lock()
	defer t.deliverMu.Unlock()

	if t.isFinished() {
		return
	}

	if !rec.Status.IsTerminal() {
		if t.cb.OnUpdate != nil {
			t.cb.OnUpdate(rec, Describe(rec))
		}
		return
	}

	if !t.tracker.markTerminal(rec.ID) || !t.finish(rec, nil) {
		t.logger.Debugf("ignoring repeated %s status of task %s", rec.Status, rec.ID)
		return
	}
	t.unsubscribe()

	if t.cb.OnUpdate != nil {
		t.cb.OnUpdate(rec, Describe(rec))
	}
	switch rec.Status {
	case model.TaskStatusCompleted:
		if t.cb.OnCompleted != nil {
			t.cb.OnCompleted(rec)
		}
	case model.TaskStatusFailed:
		if t.cb.OnFailed != nil {
			t.cb.OnFailed(rec)
		}
	case model.TaskStatusCancelled:
		if t.cb.OnCancelled != nil {
			t.cb.OnCancelled(rec)
		}
	}

	close(t.done)
}

// matches correlates a record with the tracked task. Until the task id is known
// a record of the same data type and entity is accepted and its id adopted, so
// records of older tasks of the same entity are rejected afterwards.
func (t *Tracking) matches(rec model.TaskRecord) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec.ID == t.taskID {
		t.idKnown = true
		return true
	}
	if t.idKnown || t.op.DataType == "" || t.op.EntityID == "" || rec.Data == nil {
		return false
	}
	if rec.Data.Type != t.op.DataType || rec.Data.EntityID() != t.op.EntityID {
		return false
	}

	t.taskID = rec.ID
	t.idKnown = true
	t.logger.Debugf("correlated task %s by entity", rec.ID)
	return true
}

// finish sets the tracking result, returns false if it was already finished.
func (t *Tracking) finish(rec model.TaskRecord, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finished {
		return false
	}
	t.finished = true
	t.result = rec
	t.err = err
	return true
}

func (t *Tracking) isFinished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}
