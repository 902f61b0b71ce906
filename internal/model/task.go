package model

import (
	"encoding/json"
	"fmt"
)

// TaskStatus represents the state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal returns true when the status can't transition anymore.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// Valid returns true if the status is a known one.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo returns true if a task on this status can move to next.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if !next.Valid() || s.IsTerminal() {
		return false
	}

	switch s {
	case TaskStatusPending:
		return next != TaskStatusPending
	case TaskStatusRunning:
		return next != TaskStatusPending
	}
	return false
}

// TaskDataType routes a task update to the consumer that cares about it.
type TaskDataType string

const (
	TaskDataTypeModpackUpdate        TaskDataType = "modpack_update"
	TaskDataTypeInstanceUpdate       TaskDataType = "instance_update"
	TaskDataTypeInstanceVerification TaskDataType = "instance_verification"
)

// VerificationStats are the counters of an integrity check.
type VerificationStats struct {
	CheckedFiles   int `json:"checkedFiles"`
	TotalFiles     int `json:"totalFiles"`
	CorruptedFiles int `json:"corruptedFiles"`
	MissingFiles   int `json:"missingFiles"`
	FixedFiles     int `json:"fixedFiles"`
}

// TaskData is the structured payload of a task record.
type TaskData struct {
	Type       TaskDataType
	InstanceID string
	ModpackID  string
	Stats      *VerificationStats
	Stage      Stage
}

// EntityID returns the identifier of the entity that owns the task.
func (d TaskData) EntityID() string {
	if d.InstanceID != "" {
		return d.InstanceID
	}
	return d.ModpackID
}

// Validate validates the task data.
func (d TaskData) Validate() error {
	switch d.Type {
	case TaskDataTypeModpackUpdate, TaskDataTypeInstanceUpdate, TaskDataTypeInstanceVerification:
	default:
		return fmt.Errorf("unknown task data type %q: %w", d.Type, ErrNotValid)
	}

	if d.EntityID() == "" {
		return fmt.Errorf("task data requires an owning entity id: %w", ErrNotValid)
	}

	return nil
}

type taskDataJSON struct {
	Type       TaskDataType       `json:"type"`
	InstanceID string             `json:"instanceId,omitempty"`
	ModpackID  string             `json:"modpackId,omitempty"`
	Stats      *VerificationStats `json:"stats,omitempty"`
	Stage      json.RawMessage    `json:"stage,omitempty"`
}

func (d TaskData) MarshalJSON() ([]byte, error) {
	out := taskDataJSON{
		Type:       d.Type,
		InstanceID: d.InstanceID,
		ModpackID:  d.ModpackID,
		Stats:      d.Stats,
	}
	if d.Stage != nil {
		raw, err := MarshalStage(d.Stage)
		if err != nil {
			return nil, err
		}
		out.Stage = raw
	}

	return json.Marshal(out)
}

func (d *TaskData) UnmarshalJSON(data []byte) error {
	var in taskDataJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	td := TaskData{
		Type:       in.Type,
		InstanceID: in.InstanceID,
		ModpackID:  in.ModpackID,
		Stats:      in.Stats,
	}
	if len(in.Stage) > 0 && string(in.Stage) != "null" {
		st, err := ParseStage(in.Stage)
		if err != nil {
			return err
		}
		td.Stage = st
	}

	if err := td.Validate(); err != nil {
		return err
	}

	*d = td
	return nil
}

// TaskRecord is the progress and status of a single long-running operation.
type TaskRecord struct {
	ID       string     `json:"id"`
	Status   TaskStatus `json:"status"`
	Progress float64    `json:"progress"`
	Message  string     `json:"message"`
	Data     *TaskData  `json:"data,omitempty"`
}

// Validate validates the task record.
func (t TaskRecord) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required: %w", ErrNotValid)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("unknown status %q: %w", t.Status, ErrNotValid)
	}
	if t.Progress < 0 || t.Progress > 100 {
		return fmt.Errorf("progress must be in the 0-100 range: %w", ErrNotValid)
	}
	if t.Data != nil {
		if err := t.Data.Validate(); err != nil {
			return fmt.Errorf("data: %w", err)
		}
	}
	return nil
}
