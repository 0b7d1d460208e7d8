package connectivity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTask(t *testing.T, m *Manager) (*Task, context.CancelFunc) {
	t.Helper()
	task := NewTask(m)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		task.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return task, cancel
}

func TestTaskDo(t *testing.T) {
	f := newWallFixture(t)
	task, _ := startTask(t, f.m)

	assert.Equal(t, StateOff, task.Snapshot().State)

	err := task.Do(context.Background(), func(m *Manager) error {
		return m.StartDefaultAccessPoint()
	})
	require.NoError(t, err)

	snap := task.Snapshot()
	assert.Equal(t, StateAccessPointOnly, snap.State)
	assert.True(t, snap.AccessPoint.Active)
	assert.Equal(t, DefaultHostname, snap.Hostname)
}

func TestTaskAwaitConnect(t *testing.T) {
	f := newWallFixture(t)
	task, _ := startTask(t, f.m)

	err := task.Await(context.Background(), func(m *Manager) error {
		return m.BeginConnect("X", "pw")
	})
	require.NoError(t, err)

	snap := task.Snapshot()
	assert.Equal(t, PhaseConnected, snap.Phase)
	assert.Equal(t, "X", snap.Station.SSID)
	assert.False(t, task.Busy())
}

func TestTaskAwaitFailure(t *testing.T) {
	f := newWallFixture(t)
	task, _ := startTask(t, f.m)

	err := task.Await(context.Background(), func(m *Manager) error {
		return m.BeginAutoConnect(20*time.Millisecond, 2)
	})
	assert.ErrorIs(t, err, ErrConnectionTimeout)
	assert.Equal(t, PhaseFailed, task.Snapshot().Phase)
	assert.Equal(t, uint(2), task.Snapshot().Attempt.Count)
}

func TestTaskAwaitBeginError(t *testing.T) {
	f := newWallFixture(t)
	task, _ := startTask(t, f.m)

	err := task.Await(context.Background(), func(m *Manager) error {
		return m.BeginAutoConnect(0, 0)
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTaskQueuesBehindConnect(t *testing.T) {
	f := newWallFixture(t)
	task, _ := startTask(t, f.m)

	result := make(chan error, 1)
	go func() {
		result <- task.Await(context.Background(), func(m *Manager) error {
			return m.BeginAutoConnect(100*time.Millisecond, 2)
		})
	}()
	require.Eventually(t, task.Busy, time.Second, 5*time.Millisecond)

	// This runs only once the connect has finished.
	var phase Phase
	err := task.Do(context.Background(), func(m *Manager) error {
		phase = m.Phase()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, PhaseFailed, phase)
	assert.ErrorIs(t, <-result, ErrConnectionTimeout)
}

func TestTaskStop(t *testing.T) {
	f := newWallFixture(t)
	task, cancel := startTask(t, f.m)

	result := make(chan error, 1)
	go func() {
		result <- task.Await(context.Background(), func(m *Manager) error {
			return m.BeginAutoConnect(time.Minute, 5)
		})
	}()
	require.Eventually(t, task.Busy, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-result, ErrTaskStopped)
	assert.ErrorIs(t, task.Do(context.Background(), func(*Manager) error { return nil }), ErrTaskStopped)
}

func TestTaskCallerContext(t *testing.T) {
	f := newWallFixture(t)
	task, _ := startTask(t, f.m)

	go task.Await(context.Background(), func(m *Manager) error {
		return m.BeginAutoConnect(time.Minute, 5)
	})
	require.Eventually(t, task.Busy, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := task.Do(ctx, func(*Manager) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
