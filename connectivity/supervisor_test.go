package connectivity

import (
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hidraeco/gatewayd/kv"
)

func TestAutoConnectExhaustsAttempts(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.m.BeginAutoConnect(100*time.Millisecond, 3))
	assert.Equal(t, StateStationOnly, f.m.State())

	elapsed := f.tick(t, 50*time.Millisecond)

	assert.Equal(t, PhaseFailed, f.m.Phase())
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Equal(t, uint(3), f.m.Attempt().Count)
	assert.Equal(t, []uint{1, 2, 3}, f.observer.timeouts)
	assert.Equal(t, []AttemptKind{KindAuto}, f.observer.failed)
	assert.ErrorIs(t, f.m.Err(), ErrConnectionTimeout)
	assert.Equal(t, StateOff, f.m.State(), "failure gives the station up")
	assert.Empty(t, f.announcer.announced)
}

func TestAutoConnectSingleAttempt(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.m.BeginAutoConnect(100*time.Millisecond, 1))
	elapsed := f.tick(t, 50*time.Millisecond)

	assert.Equal(t, PhaseFailed, f.m.Phase())
	assert.Equal(t, 150*time.Millisecond, elapsed)
	assert.Equal(t, uint(1), f.m.Attempt().Count)
}

func TestAutoConnectSucceeds(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.AddNetwork("Dunder MiffLAN", "x"))
	require.NoError(t, f.m.AddNetwork("TacoBoutAGoodSignal", "y"))

	require.NoError(t, f.m.BeginAutoConnect(5*time.Second, 5))
	f.tick(t, 500*time.Millisecond)

	assert.Equal(t, PhaseConnected, f.m.Phase())
	assert.NoError(t, f.m.Err())
	assert.Equal(t, StateStationOnly, f.m.State())
	assert.Equal(t, []AttemptKind{KindAuto}, f.observer.connected)
	assert.Equal(t, []string{DefaultHostname}, f.announcer.announced)

	status := f.m.Status()
	assert.True(t, status.Connected)
	assert.Equal(t, "TacoBoutAGoodSignal", status.SSID, "strongest candidate first")
	assert.Equal(t, "192.168.1.42", status.IP)
}

func TestAutoConnectWrongPassword(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.AddNetwork("Password is password", "wrong"))

	require.NoError(t, f.m.BeginAutoConnect(time.Second, 2))
	f.tick(t, 500*time.Millisecond)

	assert.Equal(t, PhaseFailed, f.m.Phase())
	assert.False(t, f.m.Status().Connected)
}

func TestAutoConnectInvalidArguments(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.m.BeginAutoConnect(0, 3), ErrInvalidArgument)
	assert.ErrorIs(t, f.m.BeginAutoConnect(time.Second, 0), ErrInvalidArgument)
	assert.Equal(t, PhaseIdle, f.m.Phase())
	assert.Equal(t, StateOff, f.m.State())
}

func TestAutoConnectUnreadableStore(t *testing.T) {
	radio := newRadio(t)
	fs := &failingStore{Store: kv.NewMemory(), failGet: true}
	m := New(radio, fs, Options{Clock: testclock.NewClock(t0)})

	require.NoError(t, m.BeginAutoConnect(time.Millisecond, 1))
	assert.Equal(t, PhaseAttempting, m.Phase())
}

func TestExplicitConnectPersistsCredential(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.m.BeginConnect("X", "pw"))
	f.tick(t, 500*time.Millisecond)

	assert.Equal(t, PhaseConnected, f.m.Phase())
	list, err := f.m.ListNetworks()
	require.NoError(t, err)
	assert.Equal(t, []SavedCredential{{Index: 0, SSID: "X", Password: "pw"}}, list)
	assert.Equal(t, []AttemptKind{KindExplicit}, f.observer.connected)
}

func TestExplicitConnectTimesOut(t *testing.T) {
	f := newFixture(t)
	disconnects := f.radio.Disconnects

	require.NoError(t, f.m.BeginConnect("Police Surveillance 2", "x"))
	elapsed := f.tick(t, time.Second)

	assert.Equal(t, PhaseFailed, f.m.Phase())
	assert.Greater(t, elapsed, DefaultConnectTimeout)
	assert.ErrorIs(t, f.m.Err(), ErrConnectionTimeout)
	assert.Equal(t, StateOff, f.m.State())
	assert.Equal(t, disconnects+2, f.radio.Disconnects, "disconnect before and after the attempt")

	list, err := f.m.ListNetworks()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestExplicitConnectRadioError(t *testing.T) {
	f := newFixture(t)
	f.radio.ConnectError = errors.New("no carrier")

	err := f.m.BeginConnect("X", "pw")
	assert.ErrorContains(t, err, "no carrier")
	assert.Equal(t, PhaseFailed, f.m.Phase())
	assert.Equal(t, StateOff, f.m.State())
	assert.Equal(t, []AttemptKind{KindExplicit}, f.observer.failed)
}

func TestExplicitConnectRejectsEmptySSID(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.m.BeginConnect("", "pw"), ErrInvalidCredential)
	assert.Equal(t, PhaseIdle, f.m.Phase())
}

func TestExplicitConnectReplacesLink(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.AddNetwork("Dunder MiffLAN", "x"))
	require.NoError(t, f.m.BeginAutoConnect(time.Second, 1))
	f.tick(t, 100*time.Millisecond)
	require.Equal(t, PhaseConnected, f.m.Phase())

	require.NoError(t, f.m.BeginConnect("X", "pw"))
	assert.Equal(t, 1, f.announcer.shutdowns, "old announcement withdrawn")
	assert.False(t, f.m.Status().Connected)

	f.tick(t, 100*time.Millisecond)
	assert.Equal(t, "X", f.m.Status().SSID)
	assert.Len(t, f.announcer.announced, 2)
}

func TestDisconnect(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.BeginConnect("X", "pw"))
	f.tick(t, 100*time.Millisecond)

	require.NoError(t, f.m.Disconnect())

	assert.Equal(t, PhaseIdle, f.m.Phase())
	assert.Equal(t, StateOff, f.m.State())
	assert.Equal(t, 1, f.announcer.shutdowns)
	assert.Equal(t, Status{IP: "0.0.0.0"}, f.m.Status())

	// Disconnecting twice is harmless.
	require.NoError(t, f.m.Disconnect())
	assert.Equal(t, 1, f.announcer.shutdowns)
}

func TestSetHostname(t *testing.T) {
	f := newFixture(t)
	f.m.SetHostname("lab")
	assert.Empty(t, f.announcer.announced, "nothing to announce before a link")

	require.NoError(t, f.m.BeginConnect("X", "pw"))
	f.tick(t, 100*time.Millisecond)
	f.m.SetHostname("bench")

	assert.Equal(t, []string{"lab", "bench"}, f.announcer.announced)
	assert.Equal(t, 1, f.announcer.shutdowns)
	assert.Equal(t, "bench", f.m.Hostname())
}

func TestAnnounceFailureKeepsLink(t *testing.T) {
	f := newFixture(t)
	f.announcer.err = errors.New("multicast unavailable")

	require.NoError(t, f.m.BeginConnect("X", "pw"))
	f.tick(t, 100*time.Millisecond)

	assert.Equal(t, PhaseConnected, f.m.Phase())
	f.m.Close()
	assert.Zero(t, f.announcer.shutdowns)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "attempting", PhaseAttempting.String())
	assert.Equal(t, "connected", PhaseConnected.String())
	assert.Equal(t, "failed", PhaseFailed.String())
	assert.Equal(t, "auto", KindAuto.String())
	assert.Equal(t, "explicit", KindExplicit.String())
}
