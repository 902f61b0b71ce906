package task_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/slok/packlaunch/internal/eventbridge"
	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/realtime"
	"github.com/slok/packlaunch/internal/task"
	"github.com/slok/packlaunch/internal/task/taskmock"
)

const waitTimeout = 2 * time.Second

type fakeRemote struct {
	mu       sync.Mutex
	handlers []realtime.Handler
}

func (f *fakeRemote) On(_ model.MessageType, h realtime.Handler) (*realtime.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, h)
	return realtime.NewSubscription(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.handlers = nil
	}), nil
}

func (f *fakeRemote) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func (f *fakeRemote) send(t *testing.T, rec model.TaskRecord) {
	data, err := json.Marshal(model.TaskUpdatedEvent{Task: rec})
	require.NoError(t, err)

	f.mu.Lock()
	hs := append([]realtime.Handler(nil), f.handlers...)
	f.mu.Unlock()
	for _, h := range hs {
		h(model.Envelope{Type: model.MessageTypeTaskUpdated, Data: data})
	}
}

type callRecorder struct {
	mu        sync.Mutex
	updates   []string
	completed int
	failed    int
	cancelled int
	timeouts  int
	statuses  []string
}

func (c *callRecorder) callbacks() task.Callbacks {
	lock := func(f func()) {
		c.mu.Lock()
		defer c.mu.Unlock()
		f()
	}
	return task.Callbacks{
		OnUpdate: func(rec model.TaskRecord, desc string) {
			lock(func() { c.updates = append(c.updates, fmt.Sprintf("%s:%s", rec.Status, desc)) })
		},
		OnCompleted: func(model.TaskRecord) { lock(func() { c.completed++ }) },
		OnFailed:    func(model.TaskRecord) { lock(func() { c.failed++ }) },
		OnCancelled: func(model.TaskRecord) { lock(func() { c.cancelled++ }) },
		OnTimeout:   func() { lock(func() { c.timeouts++ }) },
		OnStatus: func(ev model.VerifyingStatusEvent) {
			lock(func() { c.statuses = append(c.statuses, ev.Status) })
		},
	}
}

func newTestTracker(t *testing.T, clk *testingclock.FakeClock, remote task.RemoteSource) (*task.Tracker, *eventbridge.Bridge, *taskmock.MockInvoker) {
	t.Helper()

	b, err := eventbridge.NewBridge(eventbridge.BridgeConfig{Clock: clk, Logger: log.Noop})
	require.NoError(t, err)
	t.Cleanup(b.Close)

	inv := taskmock.NewMockInvoker(t)
	tr, err := task.NewTracker(task.TrackerConfig{
		Invoker: inv,
		Local:   b,
		Remote:  remote,
		IDGen:   func() string { return "task-1" },
		Logger:  log.Noop,
	})
	require.NoError(t, err)

	return tr, b, inv
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	t.Cleanup(cancel)
	return ctx
}

var updateOp = task.Operation{
	Command:  model.CommandUpdateInstance,
	Args:     model.CommandArgs{InstanceID: "inst-1"},
	DataType: model.TaskDataTypeInstanceUpdate,
	EntityID: "inst-1",
}

func TestTrackerTerminalStatuses(t *testing.T) {
	tests := map[string]struct {
		events       []model.TaskRecord
		expUpdates   []string
		expCompleted int
		expFailed    int
		expCancelled int
	}{
		"A completed task should fire completion once.": {
			events: []model.TaskRecord{
				{ID: "task-1", Status: model.TaskStatusRunning, Progress: 50, Message: "half"},
				{ID: "task-1", Status: model.TaskStatusCompleted, Progress: 100, Message: "done"},
				{ID: "task-1", Status: model.TaskStatusCompleted, Progress: 100, Message: "done"},
			},
			expUpdates:   []string{"running:half", "completed:done"},
			expCompleted: 1,
		},

		"A failed task should fire failure once.": {
			events: []model.TaskRecord{
				{ID: "task-1", Status: model.TaskStatusFailed, Message: "boom"},
				{ID: "task-1", Status: model.TaskStatusFailed, Message: "boom"},
			},
			expUpdates: []string{"failed:boom"},
			expFailed:  1,
		},

		"A cancelled task should fire cancellation.": {
			events: []model.TaskRecord{
				{ID: "task-1", Status: model.TaskStatusCancelled, Message: "stop"},
			},
			expUpdates:   []string{"cancelled:stop"},
			expCancelled: 1,
		},

		"Updates of other tasks and entities should be ignored.": {
			events: []model.TaskRecord{
				{ID: "task-2", Status: model.TaskStatusCompleted, Message: "other"},
				{ID: "task-3", Status: model.TaskStatusRunning, Message: "other entity", Data: &model.TaskData{Type: model.TaskDataTypeInstanceUpdate, InstanceID: "inst-2"}},
				{ID: "task-4", Status: model.TaskStatusRunning, Message: "other type", Data: &model.TaskData{Type: model.TaskDataTypeInstanceVerification, InstanceID: "inst-1"}},
				{ID: "task-1", Status: model.TaskStatusCompleted, Message: "done"},
			},
			expUpdates:   []string{"completed:done"},
			expCompleted: 1,
		},

		"Records of an older task of the same entity should be ignored once the id is acknowledged.": {
			events: []model.TaskRecord{
				{ID: "old-task", Status: model.TaskStatusRunning, Message: "old", Data: &model.TaskData{Type: model.TaskDataTypeInstanceUpdate, InstanceID: "inst-1"}},
				{ID: "old-task", Status: model.TaskStatusCompleted, Message: "old done", Data: &model.TaskData{Type: model.TaskDataTypeInstanceUpdate, InstanceID: "inst-1"}},
				{ID: "task-1", Status: model.TaskStatusRunning, Progress: 30, Message: "new"},
				{ID: "task-1", Status: model.TaskStatusCompleted, Progress: 100, Message: "done"},
			},
			expUpdates:   []string{"running:new", "completed:done"},
			expCompleted: 1,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			tr, b, inv := newTestTracker(t, testingclock.NewFakeClock(time.Now()), nil)
			inv.On("Invoke", mock.Anything, model.CommandUpdateInstance, model.CommandArgs{InstanceID: "inst-1", TaskID: "task-1"}).Once().Return(model.CommandAck{TaskID: "task-1"}, nil)

			rec := &callRecorder{}
			tracking, err := tr.Start(context.TODO(), updateOp, rec.callbacks())
			require.NoError(err)
			assert.Equal("task-1", tracking.TaskID())

			for _, ev := range test.events {
				require.NoError(b.Emit(model.EventTaskUpdated, model.TaskUpdatedEvent{Task: ev}))
			}

			final, err := tracking.Wait(waitCtx(t))
			require.NoError(err)
			assert.True(final.Status.IsTerminal())

			rec.mu.Lock()
			defer rec.mu.Unlock()
			assert.Equal(test.expUpdates, rec.updates)
			assert.Equal(test.expCompleted, rec.completed)
			assert.Equal(test.expFailed, rec.failed)
			assert.Equal(test.expCancelled, rec.cancelled)
			assert.Equal(0, rec.timeouts)
			assert.Equal(0, b.HandlerCount(model.EventTaskUpdated))
		})
	}
}

func TestTrackerEntityCorrelation(t *testing.T) {
	entity := func(id string, status model.TaskStatus, msg string) model.TaskRecord {
		return model.TaskRecord{ID: id, Status: status, Message: msg, Data: &model.TaskData{Type: model.TaskDataTypeInstanceUpdate, InstanceID: "inst-1"}}
	}

	tests := map[string]struct {
		ack        model.CommandAck
		events     []model.TaskRecord
		expID      string
		expUpdates []string
	}{
		"Without an acknowledged id the first record of the entity should fix the tracked id.": {
			ack: model.CommandAck{},
			events: []model.TaskRecord{
				entity("host-task", model.TaskStatusRunning, "by entity"),
				entity("other-task", model.TaskStatusCompleted, "other"),
				entity("host-task", model.TaskStatusCompleted, "done"),
			},
			expID:      "host-task",
			expUpdates: []string{"running:by entity", "completed:done"},
		},

		"Without an acknowledged id the generated id should still match.": {
			ack: model.CommandAck{},
			events: []model.TaskRecord{
				{ID: "task-1", Status: model.TaskStatusRunning, Message: "own"},
				entity("other-task", model.TaskStatusCompleted, "other"),
				{ID: "task-1", Status: model.TaskStatusCompleted, Message: "done"},
			},
			expID:      "task-1",
			expUpdates: []string{"running:own", "completed:done"},
		},

		"With an acknowledged id a terminal record of another task of the entity should not finish the tracking.": {
			ack: model.CommandAck{TaskID: "task-1"},
			events: []model.TaskRecord{
				entity("old-task", model.TaskStatusCompleted, "stale"),
				entity("task-1", model.TaskStatusCompleted, "done"),
			},
			expID:      "task-1",
			expUpdates: []string{"completed:done"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			tr, b, inv := newTestTracker(t, testingclock.NewFakeClock(time.Now()), nil)
			inv.On("Invoke", mock.Anything, model.CommandUpdateInstance, mock.Anything).Once().Return(test.ack, nil)

			rec := &callRecorder{}
			tracking, err := tr.Start(context.TODO(), updateOp, rec.callbacks())
			require.NoError(err)

			for _, ev := range test.events {
				require.NoError(b.Emit(model.EventTaskUpdated, model.TaskUpdatedEvent{Task: ev}))
			}

			final, err := tracking.Wait(waitCtx(t))
			require.NoError(err)
			assert.Equal(test.expID, final.ID)
			assert.Equal(test.expID, tracking.TaskID())

			rec.mu.Lock()
			defer rec.mu.Unlock()
			assert.Equal(test.expUpdates, rec.updates)
			assert.Equal(1, rec.completed)
		})
	}
}

func TestTrackerFailedStartLeavesNoListeners(t *testing.T) {
	assert := assert.New(t)

	remote := &fakeRemote{}
	tr, b, inv := newTestTracker(t, testingclock.NewFakeClock(time.Now()), remote)
	inv.On("Invoke", mock.Anything, model.CommandUpdateInstance, mock.Anything).Once().Return(model.CommandAck{}, fmt.Errorf("host unavailable"))

	_, err := tr.Start(context.TODO(), updateOp, task.Callbacks{})
	assert.ErrorIs(err, model.ErrStartFailed)
	assert.Equal(0, b.HandlerCount(model.EventTaskUpdated))
	assert.Equal(0, remote.count())
}

func TestTrackerAdoptsAcknowledgedID(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	tr, b, inv := newTestTracker(t, testingclock.NewFakeClock(time.Now()), nil)
	inv.On("Invoke", mock.Anything, model.CommandVerifyInstance, mock.Anything).Once().Return(model.CommandAck{TaskID: "host-task"}, nil)

	tracking, err := tr.Start(context.TODO(), task.Operation{
		Command: model.CommandVerifyInstance,
		Args:    model.CommandArgs{InstanceID: "inst-1"},
	}, task.Callbacks{})
	require.NoError(err)
	assert.Equal("host-task", tracking.TaskID())

	require.NoError(b.Emit(model.EventTaskUpdated, model.TaskUpdatedEvent{Task: model.TaskRecord{ID: "host-task", Status: model.TaskStatusCompleted}}))

	final, err := tracking.Wait(waitCtx(t))
	require.NoError(err)
	assert.Equal("host-task", final.ID)
}

func TestTrackerCompletionAcrossTransportsIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	remote := &fakeRemote{}
	tr, b, inv := newTestTracker(t, testingclock.NewFakeClock(time.Now()), remote)
	inv.On("Invoke", mock.Anything, model.CommandUpdateInstance, mock.Anything).Once().Return(model.CommandAck{TaskID: "task-1"}, nil)

	rec := &callRecorder{}
	tracking, err := tr.Start(context.TODO(), updateOp, rec.callbacks())
	require.NoError(err)

	done := model.TaskRecord{ID: "task-1", Status: model.TaskStatusCompleted, Progress: 100}
	remote.send(t, done)
	require.NoError(b.Emit(model.EventTaskUpdated, model.TaskUpdatedEvent{Task: done}))

	_, err = tracking.Wait(waitCtx(t))
	require.NoError(err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(1, rec.completed)
	assert.Equal(0, remote.count())
	assert.Equal(0, b.HandlerCount(model.EventTaskUpdated))
}

func TestTrackerCeiling(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	clk := testingclock.NewFakeClock(time.Now())
	tr, b, inv := newTestTracker(t, clk, nil)
	inv.On("Invoke", mock.Anything, model.CommandUpdateInstance, mock.Anything).Once().Return(model.CommandAck{TaskID: "task-1"}, nil)

	rec := &callRecorder{}
	tracking, err := tr.Start(context.TODO(), updateOp, rec.callbacks())
	require.NoError(err)
	require.Equal(1, b.HandlerCount(model.EventTaskUpdated))

	clk.Step(task.DefaultTimeout - time.Second)
	assert.Equal(1, b.HandlerCount(model.EventTaskUpdated))

	clk.Step(time.Second)

	_, err = tracking.Wait(waitCtx(t))
	assert.ErrorIs(err, model.ErrTimeout)
	assert.Equal(0, b.HandlerCount(model.EventTaskUpdated))
	assert.Equal(0, b.HandlerCount(model.EventInstanceVerifyingStatus))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(1, rec.timeouts)
	assert.Equal(0, rec.completed)
}

func TestTrackerVerifyingStatus(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	tr, b, inv := newTestTracker(t, testingclock.NewFakeClock(time.Now()), nil)
	inv.On("Invoke", mock.Anything, model.CommandVerifyInstance, mock.Anything).Once().Return(model.CommandAck{TaskID: "task-1"}, nil)

	rec := &callRecorder{}
	tracking, err := tr.Start(context.TODO(), task.Operation{
		Command: model.CommandVerifyInstance,
		Args:    model.CommandArgs{InstanceID: "inst-1"},
	}, rec.callbacks())
	require.NoError(err)

	require.NoError(b.Emit(model.EventInstanceVerifyingStatus, model.VerifyingStatusEvent{InstanceID: "inst-2", Status: "other"}))
	require.NoError(b.Emit(model.EventInstanceVerifyingStatus, model.VerifyingStatusEvent{InstanceID: "inst-1", Status: "verifying"}))
	require.NoError(b.Emit(model.EventTaskUpdated, model.TaskUpdatedEvent{Task: model.TaskRecord{ID: "task-1", Status: model.TaskStatusCompleted}}))

	_, err = tracking.Wait(waitCtx(t))
	require.NoError(err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal([]string{"verifying"}, rec.statuses)
	assert.Equal(0, b.HandlerCount(model.EventInstanceVerifyingStatus))
}

func TestTrackerStop(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	tr, b, inv := newTestTracker(t, testingclock.NewFakeClock(time.Now()), nil)
	inv.On("Invoke", mock.Anything, model.CommandUpdateInstance, mock.Anything).Once().Return(model.CommandAck{}, nil)

	tracking, err := tr.Start(context.TODO(), updateOp, task.Callbacks{})
	require.NoError(err)

	tracking.Stop()
	tracking.Stop()

	_, err = tracking.Wait(waitCtx(t))
	assert.ErrorIs(err, model.ErrClosed)
	assert.Equal(0, b.HandlerCount(model.EventTaskUpdated))
}

func TestTrackerBridgeCloseIsNotATimeout(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	tr, b, inv := newTestTracker(t, testingclock.NewFakeClock(time.Now()), nil)
	inv.On("Invoke", mock.Anything, model.CommandUpdateInstance, mock.Anything).Once().Return(model.CommandAck{TaskID: "task-1"}, nil)

	rec := &callRecorder{}
	tracking, err := tr.Start(context.TODO(), updateOp, rec.callbacks())
	require.NoError(err)

	b.Close()

	_, err = tracking.Wait(waitCtx(t))
	assert.ErrorIs(err, model.ErrClosed)
	assert.NotErrorIs(err, model.ErrTimeout)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(0, rec.timeouts)
	assert.Equal(0, rec.completed)
}
