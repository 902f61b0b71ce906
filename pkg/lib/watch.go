package lib

import (
	"context"
	"fmt"

	"github.com/slok/packlaunch/internal/app/watch"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/realtime"
	"github.com/slok/packlaunch/internal/realtime/websocket"
)

// WatchOpts configures a processing watch.
type WatchOpts struct {
	// OnChange receives every state change of the watched version (optional).
	OnChange func(s ProcessingState)
}

// WatchProcessing follows the server side processing of a modpack version over the
// realtime hub, it blocks until the processing completes, fails or ctx is done.
// Pass nil opts for defaults.
//
// Returns [ErrNotValid] if no realtime hub is configured, or [ErrOperationFailed]
// if the processing failed.
func (c *Client) WatchProcessing(ctx context.Context, modpackID, versionID string, opts *WatchOpts) (*ProcessingState, error) {
	if c.realtimeURL == "" {
		return nil, mapError(fmt.Errorf("realtime url is not configured: %w", model.ErrNotValid))
	}

	d, err := websocket.NewDialer(websocket.DialerConfig{URL: c.realtimeURL, Logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("could not create websocket dialer: %w", err)
	}
	ch, err := realtime.NewChannel(realtime.ChannelConfig{Dialer: d, Logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("could not create realtime channel: %w", err)
	}
	defer ch.Close()

	svc, err := watch.NewService(watch.ServiceConfig{Source: ch, Logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	req := watch.Request{ModpackID: modpackID, VersionID: versionID}
	if opts != nil && opts.OnChange != nil {
		req.OnChange = func(s model.ProcessingState) { opts.OnChange(fromInternalProcessingState(s)) }
	}

	if err := ch.Connect(ctx); err != nil {
		c.logger.Warningf("Realtime channel not connected, retrying in background: %s", err)
	}

	st, err := svc.Run(ctx, req)
	state := fromInternalProcessingState(st)
	return &state, mapError(err)
}
