package instancelist

import (
	"context"
	"fmt"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/storage"
)

// ServiceConfig is the configuration for the instance list service.
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

	return nil
}

// Service lists instances with optional filtering.
type Service struct {
	repo   storage.InstanceRepository
	logger log.Logger
}

// NewService creates a new instance list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the list request parameters.
type Request struct {
	// ModpackFilter is an optional filter to only show instances of this modpack.
	ModpackFilter string
}

// Run lists all instances, optionally filtered by modpack.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Instance, error) {
	s.logger.Debugf("listing instances with modpack filter: %q", req.ModpackFilter)

	instances, err := s.repo.ListInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list instances: %w", err)
	}

	if req.ModpackFilter != "" {
		filtered := make([]model.Instance, 0, len(instances))
		for _, inst := range instances {
			if inst.ModpackID == req.ModpackFilter {
				filtered = append(filtered, inst)
			}
		}
		instances = filtered
	}

	s.logger.Debugf("found %d instances", len(instances))
	return instances, nil
}
