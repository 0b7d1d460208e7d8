package connectivity

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/juju/clock"

	"github.com/hidraeco/gatewayd/wifi"
)

// Phase is the state of the connection supervisor.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAttempting
	PhaseConnected
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAttempting:
		return "attempting"
	case PhaseConnected:
		return "connected"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// AttemptKind tells the bounded multi-credential protocol apart from a
// user-initiated connect to one network.
type AttemptKind int

const (
	KindAuto AttemptKind = iota
	KindExplicit
)

func (k AttemptKind) String() string {
	if k == KindExplicit {
		return "explicit"
	}
	return "auto"
}

// Attempt is the transient bookkeeping of one connect protocol run.
type Attempt struct {
	Kind      AttemptKind
	StartTick time.Time
	Count     uint
	// Target is set for explicit connects.
	Target wifi.Credential
}

// ConnectionSupervisor drives station association as a tick-driven state
// machine over Idle, Attempting, Connected and Failed. Tick must be called
// at a fixed cadence while the phase is Attempting.
type ConnectionSupervisor struct {
	radio     wifi.Radio
	arbiter   *arbiter
	creds     *CredentialStore
	clock     clock.Clock
	log       *slog.Logger
	observer  Observer
	announcer Announcer

	hostname  string
	announced bool

	phase       Phase
	attempt     Attempt
	timeout     time.Duration
	maxAttempts uint
	candidates  []wifi.Credential
}

// BeginAuto starts the bounded-retry auto-connect protocol against the
// remembered credentials.
func (s *ConnectionSupervisor) BeginAuto(perAttemptTimeout time.Duration, maxAttempts int) error {
	if perAttemptTimeout <= 0 {
		return fmt.Errorf("per-attempt timeout %s: %w", perAttemptTimeout, ErrInvalidArgument)
	}
	if maxAttempts < 1 {
		return fmt.Errorf("max attempts %d: %w", maxAttempts, ErrInvalidArgument)
	}

	saved, err := s.creds.List()
	if err != nil {
		// Without the list there is nothing to associate with, but the
		// protocol still runs so the failure path demotes the mode.
		s.log.Error("could not load saved networks", "error", err)
	}
	s.candidates = s.candidates[:0]
	for _, c := range saved {
		s.candidates = append(s.candidates, c.Credential())
	}

	s.arbiter.SetStation(true)
	s.timeout = perAttemptTimeout
	s.maxAttempts = uint(maxAttempts)
	s.attempt = Attempt{Kind: KindAuto, StartTick: s.clock.Now()}
	s.phase = PhaseAttempting
	s.log.Info("auto-connect started", "networks", len(s.candidates), "timeout", perAttemptTimeout, "attempts", maxAttempts)
	return nil
}

// BeginExplicit drops any station link and starts a single-shot connect to
// one network, bounded by timeout with no retries.
func (s *ConnectionSupervisor) BeginExplicit(ssid string, password string, timeout time.Duration) error {
	if ssid == "" {
		return fmt.Errorf("empty ssid: %w", ErrInvalidCredential)
	}
	if timeout <= 0 {
		return fmt.Errorf("connect timeout %s: %w", timeout, ErrInvalidArgument)
	}

	if err := s.radio.Disconnect(); err != nil {
		s.log.Debug("disconnect before connect failed", "error", err)
	}
	s.withdraw()

	s.arbiter.SetStation(true)
	if err := s.radio.Connect(ssid, password); err != nil {
		s.arbiter.SetStation(false)
		s.phase = PhaseFailed
		s.observer.ConnectFailed(KindExplicit)
		return fmt.Errorf("could not connect to %s: %w", ssid, err)
	}

	s.timeout = timeout
	s.maxAttempts = 1
	s.attempt = Attempt{
		Kind:      KindExplicit,
		StartTick: s.clock.Now(),
		Target:    wifi.Credential{SSID: ssid, Password: password},
	}
	s.phase = PhaseAttempting
	s.log.Info("connecting", "ssid", ssid, "timeout", timeout)
	return nil
}

// Tick advances the current attempt by one poll and returns the phase.
func (s *ConnectionSupervisor) Tick() Phase {
	if s.phase != PhaseAttempting {
		return s.phase
	}

	if s.attempt.Kind == KindExplicit {
		return s.tickExplicit()
	}
	return s.tickAuto()
}

func (s *ConnectionSupervisor) tickAuto() Phase {
	connected, err := s.radio.ConnectAny(s.candidates)
	if err != nil {
		s.log.Debug("association poll failed", "error", err)
	}
	if connected {
		s.succeed()
		return s.phase
	}

	now := s.clock.Now()
	if now.Sub(s.attempt.StartTick) <= s.timeout {
		return s.phase
	}

	s.attempt.Count++
	s.attempt.StartTick = now
	s.observer.AttemptTimedOut(s.attempt.Count)
	s.log.Info("connect attempt timed out", "attempt", s.attempt.Count, "max", s.maxAttempts)

	if s.attempt.Count >= s.maxAttempts {
		s.fail()
	}
	return s.phase
}

func (s *ConnectionSupervisor) tickExplicit() Phase {
	link, err := s.radio.Link()
	if err != nil {
		s.log.Debug("link poll failed", "error", err)
	}
	if err == nil && link.Connected {
		s.succeed()
		if err := s.creds.Add(s.attempt.Target.SSID, s.attempt.Target.Password); err != nil {
			s.log.Error("could not save network", "ssid", s.attempt.Target.SSID, "error", err)
		}
		return s.phase
	}

	now := s.clock.Now()
	if now.Sub(s.attempt.StartTick) <= s.timeout {
		return s.phase
	}

	s.attempt.Count++
	s.log.Error("timed out connecting", "ssid", s.attempt.Target.SSID)
	if err := s.radio.Disconnect(); err != nil {
		s.log.Debug("disconnect after timeout failed", "error", err)
	}
	s.fail()
	return s.phase
}

func (s *ConnectionSupervisor) succeed() {
	s.phase = PhaseConnected
	s.observer.Connected(s.attempt.Kind)

	link, err := s.radio.Link()
	if err == nil {
		s.log.Info("connected", "ssid", link.SSID, "ip", link.IP, "rssi", link.RSSI)
	}
	s.announce()
}

func (s *ConnectionSupervisor) fail() {
	s.phase = PhaseFailed
	s.arbiter.SetStation(false)
	s.observer.ConnectFailed(s.attempt.Kind)
	s.log.Warn("could not connect to any network", "kind", s.attempt.Kind, "attempts", s.attempt.Count)
}

func (s *ConnectionSupervisor) announce() {
	if s.announced {
		s.announcer.Shutdown()
	}
	if err := s.announcer.Announce(s.hostname); err != nil {
		s.log.Error("could not start service discovery", "hostname", s.hostname, "error", err)
		s.announced = false
		return
	}
	s.announced = true
	s.log.Info("service discovery started", "url", "http://"+s.hostname+".local")
}

func (s *ConnectionSupervisor) withdraw() {
	if s.announced {
		s.announcer.Shutdown()
		s.announced = false
	}
}

// Disconnect tears the station link down unconditionally.
func (s *ConnectionSupervisor) Disconnect() error {
	err := s.radio.Disconnect()
	s.withdraw()
	s.arbiter.SetStation(false)
	s.phase = PhaseIdle
	s.attempt = Attempt{}
	s.log.Info("station disconnected")
	if err != nil {
		return fmt.Errorf("could not disconnect: %w", err)
	}
	return nil
}

// SetHostname changes the name used for the next announcement.
func (s *ConnectionSupervisor) SetHostname(hostname string) {
	s.hostname = hostname
	if s.announced {
		s.announce()
	}
}

// Phase returns the current phase.
func (s *ConnectionSupervisor) Phase() Phase {
	return s.phase
}

// Attempt returns the bookkeeping of the current or last attempt.
func (s *ConnectionSupervisor) Attempt() Attempt {
	return s.attempt
}

// Err reports the outcome of the last finished attempt.
func (s *ConnectionSupervisor) Err() error {
	if s.phase == PhaseFailed {
		return ErrConnectionTimeout
	}
	return nil
}
