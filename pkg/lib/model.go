package lib

import (
	"errors"
	"time"

	"github.com/slok/packlaunch/internal/model"
)

var (
	// ErrNotFound is returned when an instance does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when an instance with the same name already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned on invalid input.
	ErrNotValid = errors.New("not valid")
	// ErrOperationFailed is returned when a pipeline or a processing ends with an error.
	ErrOperationFailed = errors.New("operation failed")
)

// LatestVersion is the version of the instances that follow the newest modpack version.
const LatestVersion = model.LatestVersionMarker

// Instance is a locally installed copy of a modpack.
type Instance struct {
	// ID is the unique identifier (ULID) assigned at creation.
	ID string
	// Name is the human-friendly name.
	Name      string
	ModpackID string
	// Version is the pinned modpack version or [LatestVersion].
	Version string
	// InstalledVersion is the last version the full pipeline installed. Empty if never.
	InstalledVersion string
	Dir              string
	CreatedAt        time.Time
}

// Flow is the pipeline that runs before launching an instance.
type Flow string

const (
	// FlowLightweight only validates the local instance files.
	FlowLightweight Flow = "lightweight"
	// FlowFull runs the whole installation.
	FlowFull Flow = "full"
)

// LaunchDecision is the pipeline selected for an instance.
type LaunchDecision struct {
	Flow Flow
	// Stages are the ordered stage names of the pipeline.
	Stages []string
	// Offline is set when the latest version could not be queried.
	Offline bool
	// LatestVersion is the newest modpack version, empty when unknown.
	LatestVersion string
}

// TaskStatus is the state of a pipeline run.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// TaskProgress is a progress update of a pipeline run.
type TaskProgress struct {
	TaskID   string
	Status   TaskStatus
	Progress float64
	Message  string
	// Description is the human readable line that combines the message with the stage or counters.
	Description string
}

// LaunchResult is the outcome of [Client.Launch].
type LaunchResult struct {
	Instance Instance
	Decision LaunchDecision
	Task     TaskProgress
}

// ProcessingState is the server side processing state of a modpack version.
type ProcessingState struct {
	Processing bool
	Completed  bool
	Error      string
	Message    string
	Percent    float64
	Category   string
}

func fromInternalInstance(i model.Instance) Instance {
	return Instance{
		ID:               i.ID,
		Name:             i.Name,
		ModpackID:        i.ModpackID,
		Version:          i.ModpackVersionID,
		InstalledVersion: i.LastKnownVersion,
		Dir:              i.Dir,
		CreatedAt:        i.CreatedAt,
	}
}

func fromInternalInstanceList(is []model.Instance) []Instance {
	result := make([]Instance, len(is))
	for i, inst := range is {
		result[i] = fromInternalInstance(inst)
	}
	return result
}

func fromInternalDecision(d model.LaunchDecision) LaunchDecision {
	stages := make([]string, len(d.Stages))
	for i, s := range d.Stages {
		stages[i] = string(s)
	}

	return LaunchDecision{
		Flow:          Flow(d.Flow),
		Stages:        stages,
		Offline:       d.Offline,
		LatestVersion: d.LatestVersion,
	}
}

func fromInternalTask(rec model.TaskRecord, description string) TaskProgress {
	return TaskProgress{
		TaskID:      rec.ID,
		Status:      TaskStatus(rec.Status),
		Progress:    rec.Progress,
		Message:     rec.Message,
		Description: description,
	}
}

func fromInternalProcessingState(s model.ProcessingState) ProcessingState {
	return ProcessingState{
		Processing: s.IsProcessing,
		Completed:  s.IsCompleted,
		Error:      s.Error,
		Message:    s.StatusMessage,
		Percent:    s.Percent,
		Category:   s.Category,
	}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrAlreadyExists):
		return joinErrors(err, ErrAlreadyExists)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	case errors.Is(err, model.ErrOperationFailed):
		return joinErrors(err, ErrOperationFailed)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
