// Package connectivity keeps the gateway reachable. It arbitrates the radio
// between station and access point operation, auto-connects to remembered
// networks with bounded retries, merges discovery scans with the remembered
// list and persists credentials of networks that were joined.
//
// A Manager is not safe for concurrent use. Every call must come from one
// device task; use Task to serialize callers running on other goroutines.
package connectivity

import (
	"io"
	"log/slog"
	"net/netip"
	"time"

	"github.com/juju/clock"

	"github.com/hidraeco/gatewayd/kv"
	"github.com/hidraeco/gatewayd/wifi"
)

// Defaults match the gateway firmware.
const (
	DefaultHostname          = "hidra"
	DefaultAttemptTimeout    = 5 * time.Second
	DefaultMaxAttempts       = 5
	DefaultConnectTimeout    = 10 * time.Second
	DefaultTickInterval      = 500 * time.Millisecond
	DefaultAccessPointSSID   = "Hidra"
	DefaultAccessPointSecret = "HidraGateway"
)

// DefaultAccessPoint is the addressing the gateway uses for its own network.
func DefaultAccessPoint() wifi.APConfig {
	return wifi.APConfig{
		SSID:     DefaultAccessPointSSID,
		Password: DefaultAccessPointSecret,
		Address:  netip.AddrFrom4([4]byte{192, 168, 4, 1}),
		Gateway:  netip.AddrFrom4([4]byte{192, 168, 4, 1}),
		Netmask:  netip.AddrFrom4([4]byte{255, 255, 255, 0}),
	}
}

// Options configures a Manager. Zero values select the defaults.
type Options struct {
	Logger      *slog.Logger
	Clock       clock.Clock
	Observer    Observer
	Announcer   Announcer
	Hostname    string
	AccessPoint wifi.APConfig
	// TickInterval is the delay between polls of a blocking connect.
	TickInterval time.Duration
	// ConnectTimeout bounds an explicit connect.
	ConnectTimeout time.Duration
}

// Status is the station link as reported to the web layer.
type Status struct {
	Connected bool   `json:"connected"`
	SSID      string `json:"ssid"`
	RSSI      int    `json:"rssi"`
	IP        string `json:"ip"`
}

// Manager is the single entry point for connectivity. It owns the live
// state and the current connection attempt.
type Manager struct {
	radio wifi.Radio
	log   *slog.Logger
	clock clock.Clock

	creds      *CredentialStore
	arbiter    *arbiter
	ap         *AccessPointController
	supervisor *ConnectionSupervisor
	scanner    *NetworkScanner

	tick           time.Duration
	connectTimeout time.Duration
}

// New composes a Manager over radio, persisting credentials in store.
func New(radio wifi.Radio, store kv.Store, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	var observer Observer = nopObserver{}
	if opts.Observer != nil {
		observer = opts.Observer
	}
	var announcer Announcer = nopAnnouncer{}
	if opts.Announcer != nil {
		announcer = opts.Announcer
	}
	hostname := opts.Hostname
	if hostname == "" {
		hostname = DefaultHostname
	}
	apCfg := opts.AccessPoint
	if apCfg.SSID == "" {
		apCfg = DefaultAccessPoint()
	}
	tick := opts.TickInterval
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}

	creds := NewCredentialStore(store)
	arb := newArbiter(radio, logger, observer)

	return &Manager{
		radio:   radio,
		log:     logger,
		clock:   clk,
		creds:   creds,
		arbiter: arb,
		ap:      newAccessPointController(radio, arb, logger, apCfg),
		supervisor: &ConnectionSupervisor{
			radio:     radio,
			arbiter:   arb,
			creds:     creds,
			clock:     clk,
			log:       logger,
			observer:  observer,
			announcer: announcer,
			hostname:  hostname,
		},
		scanner: &NetworkScanner{
			radio:    radio,
			creds:    creds,
			log:      logger,
			observer: observer,
		},
		tick:           tick,
		connectTimeout: connectTimeout,
	}
}

// State is the current connectivity state.
func (m *Manager) State() State {
	return m.arbiter.State()
}

// Phase is the current phase of the connection supervisor.
func (m *Manager) Phase() Phase {
	return m.supervisor.Phase()
}

// Attempt returns the current or last connection attempt.
func (m *Manager) Attempt() Attempt {
	return m.supervisor.Attempt()
}

// Status reports the station link.
func (m *Manager) Status() Status {
	link, err := m.radio.Link()
	if err != nil {
		m.log.Debug("could not read link", "error", err)
	}
	if err != nil || !link.Connected {
		return Status{IP: "0.0.0.0"}
	}
	ip := "0.0.0.0"
	if link.IP.IsValid() {
		ip = link.IP.String()
	}
	return Status{
		Connected: true,
		SSID:      link.SSID,
		RSSI:      link.RSSI,
		IP:        ip,
	}
}

// APStatus reports the local access point.
func (m *Manager) APStatus() APStatus {
	return m.ap.Status()
}

// AccessPointConfig returns the config the access point runs, or will run, with.
func (m *Manager) AccessPointConfig() wifi.APConfig {
	return m.ap.Config()
}

// AddNetwork remembers a network for auto-connect.
func (m *Manager) AddNetwork(ssid string, password string) error {
	if err := m.creds.Add(ssid, password); err != nil {
		return err
	}
	m.log.Info("network added", "ssid", ssid)
	return nil
}

// ListNetworks returns the remembered networks.
func (m *Manager) ListNetworks() ([]SavedCredential, error) {
	return m.creds.List()
}

// ForgetNetwork removes the remembered network at index. Out of range
// indices are ignored.
func (m *Manager) ForgetNetwork(index int) error {
	if err := m.creds.RemoveAt(index); err != nil {
		return err
	}
	m.log.Info("network forgotten", "index", index)
	return nil
}

// ClearNetworks forgets every remembered network.
func (m *Manager) ClearNetworks() error {
	return m.creds.Clear()
}

// BeginAutoConnect starts auto-connect without blocking. Drive it with Tick.
func (m *Manager) BeginAutoConnect(perAttemptTimeout time.Duration, maxAttempts int) error {
	return m.supervisor.BeginAuto(perAttemptTimeout, maxAttempts)
}

// BeginConnect starts an explicit connect without blocking. Drive it with Tick.
func (m *Manager) BeginConnect(ssid string, password string) error {
	return m.supervisor.BeginExplicit(ssid, password, m.connectTimeout)
}

// Tick advances a running connect by one poll.
func (m *Manager) Tick() Phase {
	return m.supervisor.Tick()
}

// TickInterval is the cadence Tick expects to be called at.
func (m *Manager) TickInterval() time.Duration {
	return m.tick
}

// Err reports the outcome of the last finished connect.
func (m *Manager) Err() error {
	return m.supervisor.Err()
}

// AutoConnect runs the bounded-retry protocol and blocks for up to
// maxAttempts x perAttemptTimeout. On failure the station is given up and
// the gateway stays reachable through its access point, if any.
func (m *Manager) AutoConnect(perAttemptTimeout time.Duration, maxAttempts int) error {
	if err := m.BeginAutoConnect(perAttemptTimeout, maxAttempts); err != nil {
		return err
	}
	return m.wait()
}

// ConnectToNetwork joins one network, blocking up to the connect timeout.
// On success the credential is remembered.
func (m *Manager) ConnectToNetwork(ssid string, password string) error {
	if err := m.BeginConnect(ssid, password); err != nil {
		return err
	}
	return m.wait()
}

func (m *Manager) wait() error {
	for {
		switch m.Tick() {
		case PhaseConnected:
			return nil
		case PhaseFailed:
			return m.Err()
		case PhaseIdle:
			return nil
		}
		<-m.clock.After(m.tick)
	}
}

// Disconnect drops the station link.
func (m *Manager) Disconnect() error {
	return m.supervisor.Disconnect()
}

// ToggleStation starts auto-connect when enabled, or disconnects.
func (m *Manager) ToggleStation(enabled bool, perAttemptTimeout time.Duration, maxAttempts int) error {
	if enabled {
		return m.AutoConnect(perAttemptTimeout, maxAttempts)
	}
	return m.Disconnect()
}

// StartAccessPoint brings the local access point up with cfg.
func (m *Manager) StartAccessPoint(cfg wifi.APConfig) error {
	return m.ap.Start(cfg)
}

// StartDefaultAccessPoint brings the access point up with its current config.
func (m *Manager) StartDefaultAccessPoint() error {
	return m.ap.Start(m.ap.Config())
}

// SetAccessPointConfig stores cfg, restarting the access point if it is up.
func (m *Manager) SetAccessPointConfig(cfg wifi.APConfig) error {
	return m.ap.SetConfig(cfg)
}

// StopAccessPoint tears the local access point down.
func (m *Manager) StopAccessPoint() error {
	return m.ap.Stop()
}

// Scan runs one discovery scan.
func (m *Manager) Scan() ([]wifi.Observation, error) {
	return m.scanner.Scan()
}

// ScanAndMerge scans and merges the result with the remembered networks.
func (m *Manager) ScanAndMerge() (MergedNetworkView, error) {
	return m.scanner.MergedView()
}

// SetHostname changes the service discovery hostname.
func (m *Manager) SetHostname(hostname string) {
	m.log.Info("hostname changed", "hostname", hostname)
	m.supervisor.SetHostname(hostname)
}

// Hostname is the service discovery hostname.
func (m *Manager) Hostname() string {
	return m.supervisor.hostname
}

// Close withdraws the service discovery announcement.
func (m *Manager) Close() {
	m.supervisor.withdraw()
}
