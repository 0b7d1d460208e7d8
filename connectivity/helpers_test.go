package connectivity

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/juju/clock"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"

	"github.com/hidraeco/gatewayd/kv"
	"github.com/hidraeco/gatewayd/wifi"
	"github.com/hidraeco/gatewayd/wifi/mock"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var errDisk = errors.New("disk error")

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingStore wraps a Store, failing whichever operations are switched on.
type failingStore struct {
	kv.Store
	failGet bool
	failPut bool
}

func (s *failingStore) Get(key string) (string, bool, error) {
	if s.failGet {
		return "", false, errDisk
	}
	return s.Store.Get(key)
}

func (s *failingStore) Put(key string, value string) error {
	if s.failPut {
		return errDisk
	}
	return s.Store.Put(key, value)
}

type recordingObserver struct {
	modes     [][2]State
	timeouts  []uint
	connected []AttemptKind
	failed    []AttemptKind
	scans     int
	scanErrs  int
}

func (o *recordingObserver) ModeChanged(from State, to State) {
	o.modes = append(o.modes, [2]State{from, to})
}
func (o *recordingObserver) AttemptTimedOut(attempt uint) { o.timeouts = append(o.timeouts, attempt) }
func (o *recordingObserver) Connected(kind AttemptKind) { o.connected = append(o.connected, kind) }
func (o *recordingObserver) ConnectFailed(kind AttemptKind) {
	o.failed = append(o.failed, kind)
}
func (o *recordingObserver) Scanned(count int, err error) {
	o.scans++
	if err != nil {
		o.scanErrs++
	}
}

type recordingAnnouncer struct {
	announced []string
	shutdowns int
	err       error
}

func (a *recordingAnnouncer) Announce(hostname string) error {
	if a.err != nil {
		return a.err
	}
	a.announced = append(a.announced, hostname)
	return nil
}

func (a *recordingAnnouncer) Shutdown() { a.shutdowns++ }

type fixture struct {
	m         *Manager
	radio     *mock.MockRadio
	store     *kv.Memory
	clock     *testclock.Clock
	observer  *recordingObserver
	announcer *recordingAnnouncer
}

func newRadio(t *testing.T) *mock.MockRadio {
	t.Helper()
	r, err := mock.New()
	require.NoError(t, err)
	radio := r.(*mock.MockRadio)
	radio.ActionSleep = 0
	radio.PollsToConnect = 2
	radio.Visible = append(radio.Visible, wifi.Observation{SSID: "X", RSSI: -55})
	return radio
}

// newFixture builds a Manager on a test clock. Drive connects with
// fixture.tick rather than the blocking wrappers.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		radio:     newRadio(t),
		store:     kv.NewMemory(),
		clock:     testclock.NewClock(t0),
		observer:  &recordingObserver{},
		announcer: &recordingAnnouncer{},
	}
	f.m = New(f.radio, f.store, Options{
		Clock:        f.clock,
		Observer:     f.observer,
		Announcer:    f.announcer,
		TickInterval: 50 * time.Millisecond,
	})
	return f
}

// newWallFixture builds a Manager on the wall clock with a short tick, for
// exercising the blocking calls.
func newWallFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		radio:     newRadio(t),
		store:     kv.NewMemory(),
		observer:  &recordingObserver{},
		announcer: &recordingAnnouncer{},
	}
	f.m = New(f.radio, f.store, Options{
		Clock:          clock.WallClock,
		Observer:       f.observer,
		Announcer:      f.announcer,
		TickInterval:   10 * time.Millisecond,
		ConnectTimeout: time.Second,
	})
	return f
}

// tick polls until the connect finishes, advancing the test clock by step
// after every poll that leaves it running. It returns the simulated time
// spent.
func (f *fixture) tick(t *testing.T, step time.Duration) time.Duration {
	t.Helper()
	start := f.clock.Now()
	for i := 0; i < 1000; i++ {
		if f.m.Tick() != PhaseAttempting {
			return f.clock.Now().Sub(start)
		}
		f.clock.Advance(step)
	}
	t.Fatal("connect did not finish")
	return 0
}
