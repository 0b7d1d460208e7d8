package mock

import (
	"fmt"
	"math/rand"
	"net/netip"
	"time"

	"github.com/hidraeco/gatewayd/wifi"
)

var DefaultActionSleep = 200 * time.Millisecond

// MockRadio is a simulated wifi.Radio for tests and the mock build.
type MockRadio struct {
	// Visible is what a scan returns, in discovery order.
	Visible []wifi.Observation
	// Unreachable networks are visible but never associate.
	Unreachable map[string]bool
	// Secrets holds the password a network requires. Networks without an
	// entry accept any password.
	Secrets map[string]string
	// PollsToConnect is how many polls association takes once a reachable
	// network has been picked.
	PollsToConnect int
	// IP is the address handed out on association.
	IP netip.Addr

	Mode            wifi.Mode
	ModeChanges     []wifi.Mode
	AccessPoint     *wifi.APConfig
	APStarts        int
	APStops         int
	ConnectAnyCalls int
	Disconnects     int
	Scans           int

	SetModeError    error
	StartAPError    error
	StopAPError     error
	ConnectError    error
	DisconnectError error
	LinkError       error
	ScanError       error

	// ActionSleep is a delay before scans, to better emulate a real radio for the frontend. Set to 0 during testing.
	ActionSleep time.Duration

	link    wifi.Link
	pending *wifi.Credential
	polls   int
}

// New creates a MockRadio with a list of fun wifi networks around it.
func New() (wifi.Radio, error) {
	return &MockRadio{
		Visible: []wifi.Observation{
			{SSID: "HideYoKidsHideYoWiFi", RSSI: -48},
			{SSID: "Password is password", RSSI: -61},
			{SSID: "NeverGonnaGiveYouIP", RSSI: -67},
			{SSID: "Unencrypted_Honeypot", RSSI: -72},
			{SSID: "Dunder MiffLAN", RSSI: -80},
			{SSID: "TacoBoutAGoodSignal", RSSI: -39},
			{SSID: "Police Surveillance 2", RSSI: -85},
		},
		Unreachable:    map[string]bool{"Police Surveillance 2": true},
		Secrets:        map[string]string{"Password is password": "password"},
		PollsToConnect: 4,
		IP:             netip.MustParseAddr("192.168.1.42"),
		ActionSleep:    DefaultActionSleep,
	}, nil
}

func (m *MockRadio) SetMode(mode wifi.Mode) error {
	if m.SetModeError != nil {
		return m.SetModeError
	}
	m.Mode = mode
	m.ModeChanges = append(m.ModeChanges, mode)
	if !mode.Station() {
		m.dropLink()
	}
	if !mode.AccessPoint() {
		m.AccessPoint = nil
	}
	return nil
}

func (m *MockRadio) StartAccessPoint(cfg wifi.APConfig) error {
	if m.StartAPError != nil {
		return m.StartAPError
	}
	if !m.Mode.AccessPoint() {
		return fmt.Errorf("radio in %s mode cannot host an access point: %w", m.Mode, wifi.ErrOperationFailed)
	}
	m.AccessPoint = &cfg
	m.APStarts++
	return nil
}

func (m *MockRadio) StopAccessPoint() error {
	if m.StopAPError != nil {
		return m.StopAPError
	}
	m.AccessPoint = nil
	m.APStops++
	return nil
}

func (m *MockRadio) reachable(c wifi.Credential) (wifi.Observation, bool) {
	if m.Unreachable[c.SSID] {
		return wifi.Observation{}, false
	}
	if secret, ok := m.Secrets[c.SSID]; ok && secret != c.Password {
		return wifi.Observation{}, false
	}
	for _, o := range m.Visible {
		if o.SSID == c.SSID {
			return o, true
		}
	}
	return wifi.Observation{}, false
}

func (m *MockRadio) ConnectAny(candidates []wifi.Credential) (bool, error) {
	m.ConnectAnyCalls++
	if !m.Mode.Station() {
		return false, fmt.Errorf("radio in %s mode: %w", m.Mode, wifi.ErrOperationFailed)
	}
	if m.link.Connected {
		return true, nil
	}

	for _, c := range wifi.RankCandidates(m.Visible, candidates) {
		o, ok := m.reachable(c)
		if !ok {
			continue
		}
		m.polls++
		if m.polls >= m.PollsToConnect {
			m.associate(o)
			return true, nil
		}
		return false, nil
	}
	return false, nil
}

func (m *MockRadio) Connect(ssid string, password string) error {
	if m.ConnectError != nil {
		return m.ConnectError
	}
	m.dropLink()
	m.pending = &wifi.Credential{SSID: ssid, Password: password}
	return nil
}

func (m *MockRadio) Disconnect() error {
	m.Disconnects++
	if m.DisconnectError != nil {
		return m.DisconnectError
	}
	m.dropLink()
	return nil
}

func (m *MockRadio) Link() (wifi.Link, error) {
	if m.LinkError != nil {
		return wifi.Link{}, m.LinkError
	}
	if m.pending != nil && m.Mode.Station() {
		if o, ok := m.reachable(*m.pending); ok {
			m.polls++
			if m.polls >= m.PollsToConnect {
				m.associate(o)
			}
		}
	}
	return m.link, nil
}

func (m *MockRadio) Scan() ([]wifi.Observation, error) {
	time.Sleep(m.ActionSleep)
	m.Scans++

	if m.ScanError != nil {
		return nil, m.ScanError
	}

	// Signal drifts a little between scans.
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	result := make([]wifi.Observation, len(m.Visible))
	for i, o := range m.Visible {
		if m.ActionSleep > 0 {
			o.RSSI += r.Intn(5) - 2
		}
		result[i] = o
	}
	return result, nil
}

// Associate forces the link up, as if the radio joined ssid on its own.
func (m *MockRadio) Associate(ssid string, rssi int) {
	m.associate(wifi.Observation{SSID: ssid, RSSI: rssi})
}

func (m *MockRadio) associate(o wifi.Observation) {
	m.link = wifi.Link{Connected: true, SSID: o.SSID, RSSI: o.RSSI, IP: m.IP}
	m.pending = nil
	m.polls = 0
}

func (m *MockRadio) dropLink() {
	m.link = wifi.Link{}
	m.pending = nil
	m.polls = 0
}
