package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
	// Now is used for the update timestamps, defaults to time.Now.
	Now func() time.Time
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})

	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Repository is an in-memory implementation of storage.InstanceRepository.
type Repository struct {
	instances map[string]model.Instance
	mu        sync.RWMutex
	now       func() time.Time
	logger    log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		instances: make(map[string]model.Instance),
		now:       cfg.Now,
		logger:    cfg.Logger,
	}, nil
}

// CreateInstance creates a new instance in the repository.
func (r *Repository) CreateInstance(ctx context.Context, inst model.Instance) error {
	if inst.ID == "" {
		return fmt.Errorf("id is required: %w", model.ErrNotValid)
	}
	if err := inst.Validate(); err != nil {
		return fmt.Errorf("invalid instance: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[inst.ID]; ok {
		return fmt.Errorf("instance with id %s: %w", inst.ID, model.ErrAlreadyExists)
	}
	for _, existing := range r.instances {
		if existing.Name == inst.Name {
			return fmt.Errorf("instance with name %s: %w", inst.Name, model.ErrAlreadyExists)
		}
	}

	r.instances[inst.ID] = inst
	r.logger.Debugf("Created instance in repository: %s", inst.ID)

	return nil
}

// GetInstance retrieves an instance by ID.
func (r *Repository) GetInstance(ctx context.Context, id string) (*model.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, model.ErrNotFound)
	}

	return &inst, nil
}

// GetInstanceByName retrieves an instance by name.
func (r *Repository) GetInstanceByName(ctx context.Context, name string) (*model.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inst := range r.instances {
		if inst.Name == name {
			return &inst, nil
		}
	}

	return nil, fmt.Errorf("instance with name %s: %w", name, model.ErrNotFound)
}

// ListInstances returns all instances, newest first.
func (r *Repository) ListInstances(ctx context.Context) ([]model.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instances := make([]model.Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		instances = append(instances, inst)
	}
	sort.Slice(instances, func(i, j int) bool {
		if instances[i].CreatedAt.Equal(instances[j].CreatedAt) {
			return instances[i].Name < instances[j].Name
		}
		return instances[i].CreatedAt.After(instances[j].CreatedAt)
	})

	return instances, nil
}

// UpdateInstance updates an existing instance.
func (r *Repository) UpdateInstance(ctx context.Context, inst model.Instance) error {
	if err := inst.Validate(); err != nil {
		return fmt.Errorf("invalid instance: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[inst.ID]; !ok {
		return fmt.Errorf("instance %s: %w", inst.ID, model.ErrNotFound)
	}
	for id, existing := range r.instances {
		if id != inst.ID && existing.Name == inst.Name {
			return fmt.Errorf("instance name %s already in use: %w", inst.Name, model.ErrAlreadyExists)
		}
	}

	r.instances[inst.ID] = inst
	r.logger.Debugf("Updated instance in repository: %s", inst.ID)

	return nil
}

// UpdateLastKnownVersion sets the last known modpack version of an instance.
func (r *Repository) UpdateLastKnownVersion(ctx context.Context, id, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return fmt.Errorf("instance %s: %w", id, model.ErrNotFound)
	}

	inst.LastKnownVersion = version
	inst.UpdatedAt = r.now().UTC()
	r.instances[id] = inst
	r.logger.Debugf("Instance %s last known version set to %q", id, version)

	return nil
}

// DeleteInstance deletes an instance.
func (r *Repository) DeleteInstance(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[id]; !ok {
		return fmt.Errorf("instance %s: %w", id, model.ErrNotFound)
	}

	delete(r.instances, id)
	r.logger.Debugf("Deleted instance from repository: %s", id)

	return nil
}
