package model

import (
	"fmt"
	"time"
)

// LauncherConfig is the launcher configuration loaded from the config file.
// Zero values are left for the components to default.
type LauncherConfig struct {
	DataDir               string
	RealtimeURL           string
	RealtimeRetryInterval time.Duration
	RealtimeMaxAttempts   int
	ListenerTimeout       time.Duration
	VersionQueryURL       string
}

// Validate validates the launcher configuration.
func (c LauncherConfig) Validate() error {
	if c.RealtimeRetryInterval < 0 {
		return fmt.Errorf("realtime retry interval can't be negative: %w", ErrNotValid)
	}
	if c.RealtimeMaxAttempts < 0 {
		return fmt.Errorf("realtime max attempts can't be negative: %w", ErrNotValid)
	}
	if c.ListenerTimeout < 0 {
		return fmt.Errorf("listener timeout can't be negative: %w", ErrNotValid)
	}
	return nil
}
