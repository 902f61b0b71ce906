package task_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/task"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []model.TaskRecord
	err    error
}

func (r *recordingEmitter) Emit(_ string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ev, ok := payload.(model.TaskUpdatedEvent); ok {
		r.events = append(r.events, ev.Task)
	}
	return r.err
}

func (r *recordingEmitter) Send(_ context.Context, t model.MessageType, payload any) error {
	return r.Emit(string(t), payload)
}

func (r *recordingEmitter) records() []model.TaskRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.TaskRecord(nil), r.events...)
}

func ptr[T any](v T) *T { return &v }

func TestPublisherLifecycle(t *testing.T) {
	tests := map[string]struct {
		updates []task.Update
		expErr  bool
		expLast model.TaskRecord
	}{
		"Progress should move the task to running.": {
			updates: []task.Update{
				{Progress: ptr(10.0), Message: "downloading"},
			},
			expLast: model.TaskRecord{ID: "t1", Status: model.TaskStatusRunning, Progress: 10, Message: "downloading"},
		},

		"Progress should not go backwards while running.": {
			updates: []task.Update{
				{Progress: ptr(40.0), Message: "a"},
				{Progress: ptr(20.0), Message: "b"},
			},
			expLast: model.TaskRecord{ID: "t1", Status: model.TaskStatusRunning, Progress: 40, Message: "b"},
		},

		"Progress should be clamped.": {
			updates: []task.Update{
				{Progress: ptr(140.0), Message: "a"},
			},
			expLast: model.TaskRecord{ID: "t1", Status: model.TaskStatusRunning, Progress: 100, Message: "a"},
		},

		"Completing should set the progress to 100.": {
			updates: []task.Update{
				{Progress: ptr(30.0), Message: "a"},
				{Status: model.TaskStatusCompleted, Message: "done"},
			},
			expLast: model.TaskRecord{ID: "t1", Status: model.TaskStatusCompleted, Progress: 100, Message: "done"},
		},

		"Failing should keep the progress.": {
			updates: []task.Update{
				{Progress: ptr(30.0), Message: "a"},
				{Status: model.TaskStatusFailed, Message: "boom"},
			},
			expLast: model.TaskRecord{ID: "t1", Status: model.TaskStatusFailed, Progress: 30, Message: "boom"},
		},

		"A terminal task should not change.": {
			updates: []task.Update{
				{Status: model.TaskStatusCancelled, Message: "cancelled"},
				{Progress: ptr(50.0), Message: "a"},
			},
			expErr: true,
		},

		"A task should not go back to pending.": {
			updates: []task.Update{
				{Status: model.TaskStatusPending},
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			em := &recordingEmitter{}
			p, err := task.NewPublisher(task.PublisherConfig{Emitter: em, Logger: log.Noop})
			require.NoError(err)

			_, err = p.Create(context.TODO(), "t1", nil, "")
			require.NoError(err)

			for _, u := range test.updates {
				_, err = p.Update(context.TODO(), "t1", u)
			}

			if test.expErr {
				assert.ErrorIs(err, model.ErrNotValid)
				return
			}
			assert.NoError(err)

			got, err := p.Get("t1")
			require.NoError(err)
			assert.Equal(test.expLast, got)

			recs := em.records()
			require.Len(recs, len(test.updates)+1)
			assert.Equal(test.expLast, recs[len(recs)-1])
		})
	}
}

func TestPublisherTaskIDsAreNotReused(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	p, err := task.NewPublisher(task.PublisherConfig{Emitter: &recordingEmitter{}})
	require.NoError(err)

	_, err = p.Create(context.TODO(), "t1", nil, "")
	require.NoError(err)
	_, err = p.Complete(context.TODO(), "t1", "done")
	require.NoError(err)

	_, err = p.Create(context.TODO(), "t1", nil, "")
	assert.ErrorIs(err, model.ErrAlreadyExists)

	_, err = p.Progress(context.TODO(), "missing", 10, "", nil)
	assert.ErrorIs(err, model.ErrNotFound)
}

func TestPublisherDataUpdates(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	em := &recordingEmitter{}
	remote := &recordingEmitter{}
	p, err := task.NewPublisher(task.PublisherConfig{Emitter: em, Remote: remote})
	require.NoError(err)

	data := &model.TaskData{Type: model.TaskDataTypeInstanceUpdate, InstanceID: "inst-1"}
	_, err = p.Create(context.TODO(), "t1", data, "starting")
	require.NoError(err)

	_, err = p.Progress(context.TODO(), "t1", 10, "downloading", model.DownloadingFiles{Counter: model.Counter{Current: 1, Total: 3}})
	require.NoError(err)

	stats := model.VerificationStats{CheckedFiles: 3, TotalFiles: 10}
	rec, err := p.Update(context.TODO(), "t1", task.Update{Stats: &stats})
	require.NoError(err)

	assert.Equal(model.DownloadingFiles{Counter: model.Counter{Current: 1, Total: 3}}, rec.Data.Stage)
	assert.Equal(&stats, rec.Data.Stats)
	assert.Equal("downloading", rec.Message)

	// Published records are snapshots.
	recs := em.records()
	require.Len(recs, 3)
	assert.Nil(recs[0].Data.Stage)
	assert.Nil(recs[1].Data.Stats)
	assert.Len(remote.records(), 3)
}

func TestPublisherEmitErrorsDontFailUpdates(t *testing.T) {
	require := require.New(t)

	p, err := task.NewPublisher(task.PublisherConfig{Emitter: &recordingEmitter{err: fmt.Errorf("closed")}})
	require.NoError(err)

	_, err = p.Create(context.TODO(), "t1", nil, "")
	require.NoError(err)
	_, err = p.Fail(context.TODO(), "t1", fmt.Errorf("boom"))
	require.NoError(err)
}
