package printer

import "github.com/slok/packlaunch/internal/model"

// Printer knows how to print launcher information in different formats.
type Printer interface {
	PrintInstanceList(instances []model.Instance) error
	PrintInstance(inst model.Instance) error
	PrintDecision(inst model.Instance, dec model.LaunchDecision) error
	PrintTask(rec model.TaskRecord, description string) error
	PrintProcessing(state model.ProcessingState) error
	PrintMessage(msg string) error
}
