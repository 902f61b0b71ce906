package fake_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/pipeline/fake"
	"github.com/slok/packlaunch/internal/storage/memory"
	"github.com/slok/packlaunch/internal/task"
	"github.com/slok/packlaunch/internal/validate"
)

type recordingEmitter struct {
	mu       sync.Mutex
	tasks    []model.TaskRecord
	statuses []string
}

func (r *recordingEmitter) Emit(name string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev := payload.(type) {
	case model.TaskUpdatedEvent:
		r.tasks = append(r.tasks, ev.Task)
	case model.VerifyingStatusEvent:
		r.statuses = append(r.statuses, ev.Status)
	}
	return nil
}

func (r *recordingEmitter) snapshot() ([]model.TaskRecord, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.TaskRecord(nil), r.tasks...), append([]string(nil), r.statuses...)
}

func newPipeline(t *testing.T, failAt model.StageType) (*fake.Pipeline, *recordingEmitter, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)
	require.NoError(t, repo.CreateInstance(context.TODO(), model.Instance{
		ID:               "inst-1",
		Name:             "test",
		ModpackID:        "mp-1",
		ModpackVersionID: model.LatestVersionMarker,
		Dir:              dir,
		CreatedAt:        time.Now(),
	}))

	em := &recordingEmitter{}
	pub, err := task.NewPublisher(task.PublisherConfig{Emitter: em})
	require.NoError(t, err)

	p, err := fake.NewPipeline(fake.PipelineConfig{
		Publisher:  pub,
		Emitter:    em,
		Repository: repo,
		FailAt:     failAt,
		Logger:     log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(p.Close)

	return p, em, dir
}

func TestPipelineUpdateInstance(t *testing.T) {
	tests := map[string]struct {
		failAt       model.StageType
		expStatus    model.TaskStatus
		expLastStage model.StageType
	}{
		"The full update should go through every stage.": {
			expStatus:    model.TaskStatusCompleted,
			expLastStage: model.StageTypeDownloadingModpackFiles,
		},

		"A failing stage should fail the task.": {
			failAt:       model.StageTypeInstallingForge,
			expStatus:    model.TaskStatusFailed,
			expLastStage: model.StageTypeExtractingLibraries,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			p, em, _ := newPipeline(t, test.failAt)

			ack, err := p.Invoke(context.TODO(), model.CommandUpdateInstance, model.CommandArgs{InstanceID: "inst-1", TaskID: "task-1"})
			require.NoError(err)
			assert.Equal("task-1", ack.TaskID)
			p.Wait()

			recs, _ := em.snapshot()
			require.NotEmpty(recs)
			assert.Equal(model.TaskStatusPending, recs[0].Status)

			last := recs[len(recs)-1]
			assert.Equal(test.expStatus, last.Status)
			require.NotNil(last.Data)
			assert.Equal(model.TaskDataTypeInstanceUpdate, last.Data.Type)
			require.NotNil(last.Data.Stage)
			assert.Equal(test.expLastStage, last.Data.Stage.Type())

			// Progress never goes backwards.
			prev := 0.0
			for _, r := range recs {
				assert.GreaterOrEqual(r.Progress, prev)
				prev = r.Progress
			}
		})
	}
}

func TestPipelineUpdateModpack(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	p, em, _ := newPipeline(t, "")

	ack, err := p.Invoke(context.TODO(), model.CommandUpdateModpack, model.CommandArgs{ModpackID: "mp-1"})
	require.NoError(err)
	assert.NotEmpty(ack.TaskID)
	p.Wait()

	recs, _ := em.snapshot()
	last := recs[len(recs)-1]
	assert.Equal(ack.TaskID, last.ID)
	assert.Equal(model.TaskStatusCompleted, last.Status)
	assert.Equal(float64(100), last.Progress)
	assert.Equal(model.TaskDataTypeModpackUpdate, last.Data.Type)
	assert.Equal("mp-1", last.Data.EntityID())
}

func TestPipelineVerifyInstance(t *testing.T) {
	tests := map[string]struct {
		setup       func(t *testing.T, dir string)
		expStatus   model.TaskStatus
		expStatuses []string
		expStats    model.VerificationStats
	}{
		"A complete instance should be verified.": {
			setup: func(t *testing.T, dir string) {
				for _, d := range validate.DefaultRequiredDirs {
					require.NoError(t, os.MkdirAll(filepath.Join(dir, d), 0o755))
					require.NoError(t, os.WriteFile(filepath.Join(dir, d, "f"), []byte("x"), 0o644))
				}
			},
			expStatus:   model.TaskStatusCompleted,
			expStatuses: []string{"verifying", "verified"},
			expStats:    model.VerificationStats{CheckedFiles: 4, TotalFiles: 4},
		},

		"A broken instance should fail.": {
			setup:       func(t *testing.T, dir string) {},
			expStatus:   model.TaskStatusFailed,
			expStatuses: []string{"verifying", "invalid"},
			expStats:    model.VerificationStats{CheckedFiles: 4, TotalFiles: 4, MissingFiles: 4},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			p, em, dir := newPipeline(t, "")
			test.setup(t, dir)

			_, err := p.Invoke(context.TODO(), model.CommandVerifyInstance, model.CommandArgs{InstanceID: "inst-1", TaskID: "task-1"})
			require.NoError(err)
			p.Wait()

			recs, statuses := em.snapshot()
			last := recs[len(recs)-1]
			assert.Equal(test.expStatus, last.Status)
			assert.Equal(model.TaskDataTypeInstanceVerification, last.Data.Type)
			require.NotNil(last.Data.Stats)
			assert.Equal(test.expStats, *last.Data.Stats)
			assert.Equal(test.expStatuses, statuses)
		})
	}
}

func TestPipelineInvalidInvocations(t *testing.T) {
	tests := map[string]struct {
		command string
		args    model.CommandArgs
		expErr  error
	}{
		"An unknown command should fail.": {
			command: "launch_rocket",
			expErr:  model.ErrNotValid,
		},

		"A missing instance should fail.": {
			command: model.CommandUpdateInstance,
			args:    model.CommandArgs{InstanceID: "missing"},
			expErr:  model.ErrNotFound,
		},

		"A modpack update without modpack should fail.": {
			command: model.CommandUpdateModpack,
			expErr:  model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			p, _, _ := newPipeline(t, "")

			_, err := p.Invoke(context.TODO(), test.command, test.args)
			assert.ErrorIs(t, err, test.expErr)
		})
	}
}

func TestPipelineReusedTaskIDFails(t *testing.T) {
	p, _, _ := newPipeline(t, "")

	_, err := p.Invoke(context.TODO(), model.CommandUpdateModpack, model.CommandArgs{ModpackID: "mp-1", TaskID: "task-1"})
	require.NoError(t, err)
	p.Wait()

	_, err = p.Invoke(context.TODO(), model.CommandUpdateModpack, model.CommandArgs{ModpackID: "mp-1", TaskID: "task-1"})
	assert.ErrorIs(t, err, model.ErrAlreadyExists)
}
