package model

// ProcessingState is the view state of a watched entity being processed remotely.
type ProcessingState struct {
	IsProcessing  bool
	IsCompleted   bool
	Error         string
	StatusMessage string
	Percent       float64
	Category      string
}

// HasError returns true if the processing ended with an error.
func (p ProcessingState) HasError() bool { return p.Error != "" }

// Idle returns true when nothing has been received for the watched entity.
func (p ProcessingState) Idle() bool {
	return !p.IsProcessing && !p.IsCompleted && !p.HasError()
}

// WatchKey identifies the entity a processing state belongs to.
type WatchKey struct {
	ModpackID string
	VersionID string
}
