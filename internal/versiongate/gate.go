// Package versiongate decides which pipeline runs before launching an instance.
package versiongate

import (
	"context"
	"fmt"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
)

// VersionQuerier knows the latest version of modpacks.
type VersionQuerier interface {
	// LatestVersion returns the latest version information of a modpack, currentVersion
	// is the version the instance has installed, empty if it never had one.
	LatestVersion(ctx context.Context, modpackID, currentVersion string) (model.VersionInfo, error)
}

// Decide selects the launch pipeline of an instance given the latest version information.
// It has no side effects, callers persist the latest version after a successful full run.
func Decide(inst model.Instance, info model.VersionInfo) model.LaunchDecision {
	if !inst.FollowsLatest() {
		return lightweight(false, "")
	}

	if info.OfflineMode || info.LatestVersion == "" {
		return lightweight(true, "")
	}

	if inst.LastKnownVersion == "" || inst.LastKnownVersion != info.LatestVersion {
		return model.LaunchDecision{
			Flow:          model.FlowFull,
			Stages:        append([]model.StageType(nil), model.FullFlowStages...),
			LatestVersion: info.LatestVersion,
		}
	}

	return lightweight(false, info.LatestVersion)
}

func lightweight(offline bool, latest string) model.LaunchDecision {
	return model.LaunchDecision{
		Flow:          model.FlowLightweight,
		Stages:        append([]model.StageType(nil), model.LightweightFlowStages...),
		Offline:       offline,
		LatestVersion: latest,
	}
}

// GateConfig is the configuration for the version gate.
type GateConfig struct {
	// Querier is optional, without it every floating instance is decided offline.
	Querier VersionQuerier
	Logger  log.Logger
}

func (c *GateConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "versiongate.Gate"})
	return nil
}

// Gate queries the latest modpack versions and decides the launch pipelines.
// A failing query never blocks a launch.
type Gate struct {
	querier VersionQuerier
	logger  log.Logger
}

// NewGate creates a new version gate.
func NewGate(cfg GateConfig) (*Gate, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Gate{
		querier: cfg.Querier,
		logger:  cfg.Logger,
	}, nil
}

// Decide decides the launch pipeline of an instance.
func (g *Gate) Decide(ctx context.Context, inst model.Instance) model.LaunchDecision {
	logger := g.logger.WithValues(log.Kv{"instance-id": inst.ID, "modpack-id": inst.ModpackID})

	// Pinned versions don't need to know the latest version.
	if !inst.FollowsLatest() {
		return Decide(inst, model.VersionInfo{})
	}

	info := g.query(ctx, logger, inst)
	dec := Decide(inst, info)
	logger.Debugf("launch decided with %s flow (latest: %q, known: %q)", dec.Flow, dec.LatestVersion, inst.LastKnownVersion)

	return dec
}

func (g *Gate) query(ctx context.Context, logger log.Logger, inst model.Instance) model.VersionInfo {
	if g.querier == nil {
		return model.VersionInfo{OfflineMode: true}
	}

	info, err := g.querier.LatestVersion(ctx, inst.ModpackID, inst.LastKnownVersion)
	if err != nil {
		logger.Warningf("could not query latest version, continuing offline: %s", err)
		return model.VersionInfo{OfflineMode: true}
	}

	return info
}
