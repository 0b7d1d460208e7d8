package connectivity

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTaskStopped is returned to callers once the device task has exited.
var ErrTaskStopped = errors.New("device task stopped")

const snapshotInterval = 5 * time.Second

// Snapshot is a copy of the manager state that can be read from any goroutine.
type Snapshot struct {
	Station     Status
	AccessPoint APStatus
	State       State
	Phase       Phase
	Attempt     Attempt
	Hostname    string
	UpdatedAt   time.Time
}

type op struct {
	fn     func(*Manager) error
	await  bool
	result chan error
}

// Task is the device task: it runs every Manager call on one goroutine.
// While a connect is in progress, Tick is driven at the manager's tick
// interval and queued operations wait until the connect has finished.
type Task struct {
	m       *Manager
	ops     chan op
	done    chan struct{}
	waiters []chan error
	snap    atomic.Pointer[Snapshot]
}

// NewTask wraps m. Call Run to start processing.
func NewTask(m *Manager) *Task {
	t := &Task{
		m:    m,
		ops:  make(chan op),
		done: make(chan struct{}),
	}
	t.publish()
	return t
}

// Run processes operations until ctx is cancelled.
func (t *Task) Run(ctx context.Context) error {
	defer close(t.done)

	refresh := t.m.clock.After(snapshotInterval)
	for {
		var (
			ops  chan op
			tick <-chan time.Time
		)
		if t.m.Phase() == PhaseAttempting {
			tick = t.m.clock.After(t.m.TickInterval())
		} else {
			ops = t.ops
		}

		select {
		case <-ctx.Done():
			t.release(ErrTaskStopped)
			return ctx.Err()
		case o := <-ops:
			err := o.fn(t.m)
			if err == nil && o.await && t.m.Phase() == PhaseAttempting {
				t.waiters = append(t.waiters, o.result)
			} else {
				o.result <- err
			}
		case <-tick:
			t.m.Tick()
		case <-refresh:
			refresh = t.m.clock.After(snapshotInterval)
		}

		if t.m.Phase() != PhaseAttempting {
			t.release(t.m.Err())
		}
		t.publish()
	}
}

func (t *Task) release(err error) {
	for _, w := range t.waiters {
		w <- err
	}
	t.waiters = nil
}

func (t *Task) publish() {
	t.snap.Store(&Snapshot{
		Station:     t.m.Status(),
		AccessPoint: t.m.APStatus(),
		State:       t.m.State(),
		Phase:       t.m.Phase(),
		Attempt:     t.m.Attempt(),
		Hostname:    t.m.Hostname(),
		UpdatedAt:   t.m.clock.Now(),
	})
}

// Snapshot returns the state published after the last operation.
func (t *Task) Snapshot() Snapshot {
	return *t.snap.Load()
}

// Busy reports whether a connect is in progress.
func (t *Task) Busy() bool {
	return t.Snapshot().Phase == PhaseAttempting
}

// Do runs fn on the device task and returns its error.
func (t *Task) Do(ctx context.Context, fn func(*Manager) error) error {
	return t.submit(ctx, op{fn: fn, result: make(chan error, 1)})
}

// Await runs begin on the device task and, if it started a connect, waits
// for the connect to finish.
func (t *Task) Await(ctx context.Context, begin func(*Manager) error) error {
	return t.submit(ctx, op{fn: begin, await: true, result: make(chan error, 1)})
}

func (t *Task) submit(ctx context.Context, o op) error {
	select {
	case t.ops <- o:
	case <-t.done:
		return ErrTaskStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-o.result:
		return err
	case <-t.done:
		return ErrTaskStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
