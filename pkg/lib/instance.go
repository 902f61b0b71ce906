package lib

import (
	"context"
	"fmt"

	"github.com/slok/packlaunch/internal/app/instanceadd"
	"github.com/slok/packlaunch/internal/app/instancelist"
	"github.com/slok/packlaunch/internal/app/instanceremove"
	"github.com/slok/packlaunch/internal/app/instanceset"
	"github.com/slok/packlaunch/internal/conventions"
)

// AddInstanceOpts configures a new instance.
type AddInstanceOpts struct {
	// Name is the unique instance name. Required.
	Name string
	// ModpackID is the installed modpack. Required.
	ModpackID string
	// Version pins a modpack version. Empty follows [LatestVersion].
	Version string
	// Dir is the instance directory.
	// Default: {DataDir}/instances/{Name}.
	Dir string
	// NoMkdir skips creating the instance directory.
	NoMkdir bool
}

// ListInstancesOpts filters the listed instances.
type ListInstancesOpts struct {
	// ModpackID only lists the instances of this modpack.
	ModpackID string
}

// SetInstanceOpts are the instance changes, empty fields are left untouched.
type SetInstanceOpts struct {
	// Name renames the instance.
	Name string
	// Version pins a modpack version, [LatestVersion] follows the latest one.
	Version string
}

// RemoveInstanceOpts configures an instance removal.
type RemoveInstanceOpts struct {
	// RemoveFiles deletes the instance directory too.
	RemoveFiles bool
}

// AddInstance registers a new instance.
//
// Returns [ErrAlreadyExists] if an instance with the same name exists, or
// [ErrNotValid] if a required option is missing.
func (c *Client) AddInstance(ctx context.Context, opts AddInstanceOpts) (*Instance, error) {
	svc, err := instanceadd.NewService(instanceadd.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	dir := opts.Dir
	if dir == "" && opts.Name != "" {
		dir = conventions.InstanceDir(c.dataDir, opts.Name)
	}

	inst, err := svc.Run(ctx, instanceadd.Request{
		Name:      opts.Name,
		ModpackID: opts.ModpackID,
		Version:   opts.Version,
		Dir:       dir,
		CreateDir: !opts.NoMkdir,
	})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalInstance(*inst)
	return &result, nil
}

// GetInstance returns an instance by name or ID.
//
// Returns [ErrNotFound] if the instance does not exist.
func (c *Client) GetInstance(ctx context.Context, nameOrID string) (*Instance, error) {
	inst, err := c.getInternalInstance(ctx, nameOrID)
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalInstance(*inst)
	return &result, nil
}

// ListInstances lists the instances, newest first.
// Pass nil opts to list all of them.
func (c *Client) ListInstances(ctx context.Context, opts *ListInstancesOpts) ([]Instance, error) {
	svc, err := instancelist.NewService(instancelist.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	req := instancelist.Request{}
	if opts != nil {
		req.ModpackFilter = opts.ModpackID
	}

	instances, err := svc.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalInstanceList(instances), nil
}

// DecideLaunch returns the pipeline that [Client.Launch] would run for an instance.
// It never fails because of the version service, an unreachable one decides offline.
//
// Returns [ErrNotFound] if the instance does not exist.
func (c *Client) DecideLaunch(ctx context.Context, nameOrID string) (*LaunchDecision, error) {
	inst, err := c.getInternalInstance(ctx, nameOrID)
	if err != nil {
		return nil, mapError(err)
	}

	dec := fromInternalDecision(c.gate.Decide(ctx, *inst))
	return &dec, nil
}

// SetInstance renames an instance or changes its pinned version.
//
// Returns [ErrNotFound] if the instance does not exist, [ErrAlreadyExists] if
// the new name is taken, or [ErrNotValid] if there is nothing to change.
func (c *Client) SetInstance(ctx context.Context, nameOrID string, opts SetInstanceOpts) (*Instance, error) {
	svc, err := instanceset.NewService(instanceset.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	inst, err := svc.Run(ctx, instanceset.Request{
		NameOrID: nameOrID,
		Name:     opts.Name,
		Version:  opts.Version,
	})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalInstance(*inst)
	return &result, nil
}

// RemoveInstance removes an instance. Pass nil opts to keep its files.
//
// Returns [ErrNotFound] if the instance does not exist.
func (c *Client) RemoveInstance(ctx context.Context, nameOrID string, opts *RemoveInstanceOpts) (*Instance, error) {
	svc, err := instanceremove.NewService(instanceremove.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	req := instanceremove.Request{NameOrID: nameOrID}
	if opts != nil {
		req.RemoveFiles = opts.RemoveFiles
	}

	inst, err := svc.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalInstance(*inst)
	return &result, nil
}
