package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/packlaunch/internal/model"
)

// JSONPrinter prints launcher information in JSON format.
// Task and processing updates are streamed as one compact document per line.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// instanceOutput represents an instance output.
type instanceOutput struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	ModpackID        string     `json:"modpack_id"`
	ModpackVersionID string     `json:"modpack_version_id"`
	LastKnownVersion string     `json:"last_known_version,omitempty"`
	Dir              string     `json:"dir"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

type decisionOutput struct {
	InstanceID    string   `json:"instance_id"`
	Flow          string   `json:"flow"`
	Stages        []string `json:"stages"`
	Offline       bool     `json:"offline"`
	LatestVersion string   `json:"latest_version,omitempty"`
}

type taskOutput struct {
	Task        model.TaskRecord `json:"task"`
	Description string           `json:"description"`
}

type processingOutput struct {
	Processing    bool    `json:"processing"`
	Completed     bool    `json:"completed"`
	Error         string  `json:"error,omitempty"`
	StatusMessage string  `json:"status_message,omitempty"`
	Percent       float64 `json:"percent"`
	Category      string  `json:"category,omitempty"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

func newInstanceOutput(inst model.Instance) instanceOutput {
	out := instanceOutput{
		ID:               inst.ID,
		Name:             inst.Name,
		ModpackID:        inst.ModpackID,
		ModpackVersionID: inst.ModpackVersionID,
		LastKnownVersion: inst.LastKnownVersion,
		Dir:              inst.Dir,
		CreatedAt:        inst.CreatedAt.UTC(),
	}
	if !inst.UpdatedAt.IsZero() {
		utcTime := inst.UpdatedAt.UTC()
		out.UpdatedAt = &utcTime
	}
	return out
}

// PrintInstanceList prints instances in JSON format.
func (j *JSONPrinter) PrintInstanceList(instances []model.Instance) error {
	items := make([]instanceOutput, len(instances))
	for i, inst := range instances {
		items[i] = newInstanceOutput(inst)
	}

	return j.encode(items)
}

// PrintInstance prints an instance in JSON format.
func (j *JSONPrinter) PrintInstance(inst model.Instance) error {
	return j.encode(newInstanceOutput(inst))
}

// PrintDecision prints the launch decision in JSON format.
func (j *JSONPrinter) PrintDecision(inst model.Instance, dec model.LaunchDecision) error {
	stages := make([]string, 0, len(dec.Stages))
	for _, s := range dec.Stages {
		stages = append(stages, string(s))
	}

	return j.encode(decisionOutput{
		InstanceID:    inst.ID,
		Flow:          string(dec.Flow),
		Stages:        stages,
		Offline:       dec.Offline,
		LatestVersion: dec.LatestVersion,
	})
}

// PrintTask prints a task update as a JSON line.
func (j *JSONPrinter) PrintTask(rec model.TaskRecord, description string) error {
	return json.NewEncoder(j.writer).Encode(taskOutput{Task: rec, Description: description})
}

// PrintProcessing prints a processing state as a JSON line.
func (j *JSONPrinter) PrintProcessing(state model.ProcessingState) error {
	return json.NewEncoder(j.writer).Encode(processingOutput{
		Processing:    state.IsProcessing,
		Completed:     state.IsCompleted,
		Error:         state.Error,
		StatusMessage: state.StatusMessage,
		Percent:       state.Percent,
		Category:      state.Category,
	})
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
