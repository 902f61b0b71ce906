package storage

import (
	"context"

	"github.com/slok/packlaunch/internal/model"
)

// InstanceRepository is the interface for instance persistence.
type InstanceRepository interface {
	CreateInstance(ctx context.Context, inst model.Instance) error
	GetInstance(ctx context.Context, id string) (*model.Instance, error)
	GetInstanceByName(ctx context.Context, name string) (*model.Instance, error)
	ListInstances(ctx context.Context) ([]model.Instance, error)
	UpdateInstance(ctx context.Context, inst model.Instance) error
	// UpdateLastKnownVersion persists the modpack version installed by a successful full update.
	UpdateLastKnownVersion(ctx context.Context, id, version string) error
	DeleteInstance(ctx context.Context, id string) error
}
