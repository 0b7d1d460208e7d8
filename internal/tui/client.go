package tui

import (
	"context"
	"time"

	"github.com/hidraeco/gatewayd/connectivity"
)

// Client is what the monitor drives.
type Client interface {
	Snapshot() connectivity.Snapshot
	Networks(ctx context.Context) (connectivity.MergedNetworkView, error)
	AutoConnect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	SetAccessPoint(ctx context.Context, enabled bool) error
}

// TaskClient runs monitor actions on a device task.
type TaskClient struct {
	Task           *connectivity.Task
	AttemptTimeout time.Duration
	MaxAttempts    int
}

var _ Client = TaskClient{}

func (c TaskClient) Snapshot() connectivity.Snapshot {
	return c.Task.Snapshot()
}

func (c TaskClient) Networks(ctx context.Context) (connectivity.MergedNetworkView, error) {
	var view connectivity.MergedNetworkView
	err := c.Task.Do(ctx, func(m *connectivity.Manager) error {
		var err error
		view, err = m.ScanAndMerge()
		return err
	})
	return view, err
}

func (c TaskClient) AutoConnect(ctx context.Context) error {
	return c.Task.Await(ctx, func(m *connectivity.Manager) error {
		return m.BeginAutoConnect(c.AttemptTimeout, c.MaxAttempts)
	})
}

func (c TaskClient) Disconnect(ctx context.Context) error {
	return c.Task.Do(ctx, func(m *connectivity.Manager) error {
		return m.Disconnect()
	})
}

func (c TaskClient) SetAccessPoint(ctx context.Context, enabled bool) error {
	return c.Task.Do(ctx, func(m *connectivity.Manager) error {
		if enabled {
			return m.StartDefaultAccessPoint()
		}
		return m.StopAccessPoint()
	})
}
