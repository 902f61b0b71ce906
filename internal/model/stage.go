package model

import (
	"encoding/json"
	"fmt"
)

// StageType is the discriminator of an installation or processing stage.
type StageType string

const (
	StageTypeDownloadingFiles          StageType = "downloading_files"
	StageTypeExtractingLibraries       StageType = "extracting_libraries"
	StageTypeInstallingForge           StageType = "installing_forge"
	StageTypeDownloadingForgeLibraries StageType = "downloading_forge_libraries"
	StageTypeValidatingAssets          StageType = "validating_assets"
	StageTypeDownloadingModpackFiles   StageType = "downloading_modpack_files"
	StageTypeCheckingModpackStatus     StageType = "checking_modpack_status"
	StageTypeLightweightValidation     StageType = "lightweight_validation"
)

// Stage is a sub-phase of an installation or update operation.
// The set of implementations is closed to this package.
type Stage interface {
	Type() StageType
	isStage()
}

// Counter is the progress of a counted stage.
type Counter struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Percent returns the completion percentage of the counter in the 0-100 range.
func (c Counter) Percent() float64 {
	if c.Total <= 0 {
		return 0
	}
	return float64(c.Current) / float64(c.Total) * 100
}

func (c Counter) validate() error {
	if c.Current < 0 || c.Total < 0 {
		return fmt.Errorf("counters can't be negative: %w", ErrNotValid)
	}
	if c.Current > c.Total {
		return fmt.Errorf("current (%d) can't be greater than total (%d): %w", c.Current, c.Total, ErrNotValid)
	}
	return nil
}

type DownloadingFiles struct{ Counter }
type ExtractingLibraries struct{ Counter }
type InstallingForge struct{}
type DownloadingForgeLibraries struct{ Counter }
type ValidatingAssets struct{ Counter }
type DownloadingModpackFiles struct{ Counter }
type CheckingModpackStatus struct{}
type LightweightValidation struct{}

func (DownloadingFiles) Type() StageType          { return StageTypeDownloadingFiles }
func (ExtractingLibraries) Type() StageType       { return StageTypeExtractingLibraries }
func (InstallingForge) Type() StageType           { return StageTypeInstallingForge }
func (DownloadingForgeLibraries) Type() StageType { return StageTypeDownloadingForgeLibraries }
func (ValidatingAssets) Type() StageType          { return StageTypeValidatingAssets }
func (DownloadingModpackFiles) Type() StageType   { return StageTypeDownloadingModpackFiles }
func (CheckingModpackStatus) Type() StageType     { return StageTypeCheckingModpackStatus }
func (LightweightValidation) Type() StageType     { return StageTypeLightweightValidation }

func (DownloadingFiles) isStage()          {}
func (ExtractingLibraries) isStage()       {}
func (InstallingForge) isStage()           {}
func (DownloadingForgeLibraries) isStage() {}
func (ValidatingAssets) isStage()          {}
func (DownloadingModpackFiles) isStage()   {}
func (CheckingModpackStatus) isStage()     {}
func (LightweightValidation) isStage()     {}

// StageCounter returns the counter of a counted stage, false for stages without counters.
func StageCounter(s Stage) (Counter, bool) {
	switch st := s.(type) {
	case DownloadingFiles:
		return st.Counter, true
	case ExtractingLibraries:
		return st.Counter, true
	case DownloadingForgeLibraries:
		return st.Counter, true
	case ValidatingAssets:
		return st.Counter, true
	case DownloadingModpackFiles:
		return st.Counter, true
	default:
		return Counter{}, false
	}
}

// StageDescription returns a human readable description of the stage.
func StageDescription(s Stage) string {
	var desc string
	switch s.(type) {
	case DownloadingFiles:
		desc = "Downloading files"
	case ExtractingLibraries:
		desc = "Extracting libraries"
	case InstallingForge:
		desc = "Installing Forge"
	case DownloadingForgeLibraries:
		desc = "Downloading Forge libraries"
	case ValidatingAssets:
		desc = "Validating assets"
	case DownloadingModpackFiles:
		desc = "Downloading modpack files"
	case CheckingModpackStatus:
		desc = "Checking modpack status"
	case LightweightValidation:
		desc = "Validating instance"
	default:
		return "Unknown stage"
	}

	if c, ok := StageCounter(s); ok {
		return fmt.Sprintf("%s (%d/%d)", desc, c.Current, c.Total)
	}
	return desc
}

type stageJSON struct {
	Type    StageType `json:"type"`
	Current *int      `json:"current,omitempty"`
	Total   *int      `json:"total,omitempty"`
}

// MarshalStage encodes a stage with its discriminator.
func MarshalStage(s Stage) ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}

	out := stageJSON{Type: s.Type()}
	if c, ok := StageCounter(s); ok {
		out.Current = &c.Current
		out.Total = &c.Total
	}

	return json.Marshal(out)
}

// ParseStage decodes and validates a stage from its JSON representation.
func ParseStage(data []byte) (Stage, error) {
	var in stageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("could not decode stage: %w", err)
	}

	counted := func() (Counter, error) {
		if in.Current == nil || in.Total == nil {
			return Counter{}, fmt.Errorf("stage %q requires current and total: %w", in.Type, ErrNotValid)
		}
		c := Counter{Current: *in.Current, Total: *in.Total}
		if err := c.validate(); err != nil {
			return Counter{}, fmt.Errorf("stage %q: %w", in.Type, err)
		}
		return c, nil
	}
	empty := func() error {
		if in.Current != nil || in.Total != nil {
			return fmt.Errorf("stage %q doesn't accept counters: %w", in.Type, ErrNotValid)
		}
		return nil
	}

	var (
		st  Stage
		err error
		c   Counter
	)
	switch in.Type {
	case StageTypeDownloadingFiles:
		c, err = counted()
		st = DownloadingFiles{c}
	case StageTypeExtractingLibraries:
		c, err = counted()
		st = ExtractingLibraries{c}
	case StageTypeDownloadingForgeLibraries:
		c, err = counted()
		st = DownloadingForgeLibraries{c}
	case StageTypeValidatingAssets:
		c, err = counted()
		st = ValidatingAssets{c}
	case StageTypeDownloadingModpackFiles:
		c, err = counted()
		st = DownloadingModpackFiles{c}
	case StageTypeInstallingForge:
		err = empty()
		st = InstallingForge{}
	case StageTypeCheckingModpackStatus:
		err = empty()
		st = CheckingModpackStatus{}
	case StageTypeLightweightValidation:
		err = empty()
		st = LightweightValidation{}
	default:
		return nil, fmt.Errorf("unknown stage type %q: %w", in.Type, ErrNotValid)
	}
	if err != nil {
		return nil, err
	}

	return st, nil
}

// FullFlowStages is the stage sequence of the full update pipeline.
var FullFlowStages = []StageType{
	StageTypeDownloadingFiles,
	StageTypeExtractingLibraries,
	StageTypeInstallingForge,
	StageTypeDownloadingForgeLibraries,
	StageTypeValidatingAssets,
	StageTypeCheckingModpackStatus,
	StageTypeDownloadingModpackFiles,
}

// LightweightFlowStages is the stage sequence of the lightweight validation path.
var LightweightFlowStages = []StageType{
	StageTypeLightweightValidation,
}
