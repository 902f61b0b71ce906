package instanceremove

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/storage"
)

// ServiceConfig is the configuration for the instance remove service.
type ServiceConfig struct {
	Repository storage.InstanceRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.InstanceRemove"})
	return nil
}

// Service removes instances.
type Service struct {
	repo   storage.InstanceRepository
	logger log.Logger
}

// NewService creates a new instance remove service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the remove request parameters.
type Request struct {
	// NameOrID is the instance name or ID to remove.
	NameOrID string
	// RemoveFiles deletes the instance directory too.
	RemoveFiles bool
}

// Run removes an instance by name or ID. The directory is only deleted once
// the instance is no longer registered.
func (s *Service) Run(ctx context.Context, req Request) (*model.Instance, error) {
	if req.NameOrID == "" {
		return nil, fmt.Errorf("instance name or id is required: %w", model.ErrNotValid)
	}

	inst, err := s.repo.GetInstanceByName(ctx, req.NameOrID)
	if errors.Is(err, model.ErrNotFound) {
		inst, err = s.repo.GetInstance(ctx, req.NameOrID)
	}
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("instance not found: %s: %w", req.NameOrID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get instance: %w", err)
	}

	if err := s.repo.DeleteInstance(ctx, inst.ID); err != nil {
		return nil, fmt.Errorf("could not delete instance from repository: %w", err)
	}

	if req.RemoveFiles {
		if err := os.RemoveAll(inst.Dir); err != nil {
			return inst, fmt.Errorf("instance removed but its directory could not be deleted: %w", err)
		}
		s.logger.Debugf("Deleted instance directory %s", inst.Dir)
	}

	s.logger.Infof("Removed instance: %s (ID: %s)", inst.Name, inst.ID)
	return inst, nil
}
