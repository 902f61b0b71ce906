package model

import (
	"fmt"
	"time"
)

// LatestVersionMarker is the floating version pin that follows the newest modpack version.
const LatestVersionMarker = "latest"

// Instance is a locally installed copy of a modpack the user can launch.
type Instance struct {
	ID               string
	Name             string
	ModpackID        string
	ModpackVersionID string
	// LastKnownVersion is the last modpack version the full pipeline installed successfully.
	// Empty means the instance has never been fully updated.
	LastKnownVersion string
	Dir              string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FollowsLatest returns true if the instance is pinned to the floating latest marker.
func (i Instance) FollowsLatest() bool {
	return i.ModpackVersionID == LatestVersionMarker
}

// Validate validates the instance.
func (i Instance) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("name is required: %w", ErrNotValid)
	}
	if i.ModpackID == "" {
		return fmt.Errorf("modpack id is required: %w", ErrNotValid)
	}
	if i.ModpackVersionID == "" {
		return fmt.Errorf("modpack version id is required: %w", ErrNotValid)
	}
	if i.Dir == "" {
		return fmt.Errorf("directory is required: %w", ErrNotValid)
	}
	return nil
}

// Flow is the launch pipeline selected for an instance.
type Flow string

const (
	FlowLightweight Flow = "lightweight"
	FlowFull        Flow = "full"
)

// VersionInfo is the result of querying the latest version of a modpack.
type VersionInfo struct {
	HasUpdate     bool   `json:"hasUpdate"`
	LatestVersion string `json:"latestVersion,omitempty"`
	OfflineMode   bool   `json:"offlineMode,omitempty"`
}

// LaunchDecision is the pipeline selected before launching an instance.
type LaunchDecision struct {
	Flow   Flow
	Stages []StageType
	// Offline is set when the latest version could not be determined.
	Offline       bool
	LatestVersion string
}
