//go:build linux

package networkmanager

import (
	"fmt"
	"net/netip"

	gonetworkmanager "github.com/Wifx/gonetworkmanager/v3"
	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/hidraeco/gatewayd/wifi"
)

const (
	stationProfile     = "gatewayd-station"
	accessPointProfile = "gatewayd-ap"
)

// Radio implements wifi.Radio on top of NetworkManager over D-Bus. Station
// and access point each get a transient connection profile that is removed
// again when it is torn down.
type Radio struct {
	NM gonetworkmanager.NetworkManager

	device gonetworkmanager.DeviceWireless
	mode   wifi.Mode

	station        gonetworkmanager.ActiveConnection
	stationProfile gonetworkmanager.Connection
	target         wifi.Credential
	next           int

	accessPoint        gonetworkmanager.ActiveConnection
	accessPointProfile gonetworkmanager.Connection
}

// New connects to the system NetworkManager.
func New() (wifi.Radio, error) {
	nm, err := gonetworkmanager.NewNetworkManager()
	if err != nil {
		return nil, fmt.Errorf("failed to create network manager client: %w", wifi.ErrNotAvailable)
	}
	return &Radio{NM: nm}, nil
}

func (r *Radio) getWirelessDevice() (gonetworkmanager.DeviceWireless, error) {
	if r.device != nil {
		return r.device, nil
	}
	devices, err := r.NM.GetDevices()
	if err != nil {
		return nil, fmt.Errorf("could not list devices: %w: %w", wifi.ErrOperationFailed, err)
	}
	for _, device := range devices {
		if dev, ok := device.(gonetworkmanager.DeviceWireless); ok {
			r.device = dev
			return dev, nil
		}
	}
	return nil, fmt.Errorf("no wireless device found: %w", wifi.ErrNotFound)
}

// SetMode switches the radio on or off. NetworkManager decides per profile
// whether a connection runs as station or access point, so any mode other
// than off only needs the radio enabled.
func (r *Radio) SetMode(mode wifi.Mode) error {
	if err := r.NM.SetPropertyWirelessEnabled(mode != wifi.ModeOff); err != nil {
		return fmt.Errorf("could not switch radio to %s: %w: %w", mode, wifi.ErrOperationFailed, err)
	}
	r.mode = mode
	if !mode.Station() {
		r.dropStation()
	}
	if !mode.AccessPoint() {
		r.dropAccessPoint()
	}
	return nil
}

func accessPointSettings(iface string, cfg wifi.APConfig) (map[string]map[string]interface{}, error) {
	prefix, err := cfg.PrefixLen()
	if err != nil {
		return nil, err
	}
	connection := map[string]map[string]interface{}{
		"connection": {
			"id":             accessPointProfile,
			"uuid":           uuid.New().String(),
			"type":           "802-11-wireless",
			"interface-name": iface,
			"autoconnect":    false,
		},
		"802-11-wireless": {
			"mode": "ap",
			"ssid": []byte(cfg.SSID),
			"band": "bg",
		},
		"ipv4": {
			// shared runs a DHCP server for joining clients.
			"method": "shared",
			"address-data": []map[string]dbus.Variant{{
				"address": dbus.MakeVariant(cfg.Address.String()),
				"prefix":  dbus.MakeVariant(uint32(prefix)),
			}},
			"gateway": cfg.Gateway.String(),
		},
		"ipv6": {"method": "ignore"},
	}
	if cfg.Password != "" {
		connection["802-11-wireless"]["security"] = "802-11-wireless-security"
		connection["802-11-wireless-security"] = map[string]interface{}{
			"key-mgmt": "wpa-psk",
			"psk":      cfg.Password,
		}
	}
	return connection, nil
}

func (r *Radio) StartAccessPoint(cfg wifi.APConfig) error {
	device, err := r.getWirelessDevice()
	if err != nil {
		return err
	}
	iface, _ := device.GetPropertyInterface()
	settings, err := accessPointSettings(iface, cfg)
	if err != nil {
		return err
	}

	r.dropAccessPoint()
	active, err := r.NM.AddAndActivateConnection(settings, device)
	if err != nil {
		return fmt.Errorf("could not start access point %s: %w: %w", cfg.SSID, wifi.ErrOperationFailed, err)
	}
	r.accessPoint = active
	r.accessPointProfile, _ = active.GetPropertyConnection()
	return nil
}

func (r *Radio) StopAccessPoint() error {
	if r.accessPoint == nil {
		return nil
	}
	err := r.NM.DeactivateConnection(r.accessPoint)
	r.dropAccessPoint()
	if err != nil {
		return fmt.Errorf("could not stop access point: %w: %w", wifi.ErrOperationFailed, err)
	}
	return nil
}

func (r *Radio) dropAccessPoint() {
	if r.accessPointProfile != nil {
		r.accessPointProfile.Delete()
	}
	r.accessPoint = nil
	r.accessPointProfile = nil
}

func stationSettings(iface string, c wifi.Credential) map[string]map[string]interface{} {
	connection := map[string]map[string]interface{}{
		"connection": {
			"id":             stationProfile,
			"uuid":           uuid.New().String(),
			"type":           "802-11-wireless",
			"interface-name": iface,
			"autoconnect":    false,
		},
		"802-11-wireless": {
			"mode": "infrastructure",
			"ssid": []byte(c.SSID),
		},
		"ipv4": {"method": "auto"},
		"ipv6": {"method": "auto"},
	}
	if c.Password != "" {
		connection["802-11-wireless"]["security"] = "802-11-wireless-security"
		connection["802-11-wireless-security"] = map[string]interface{}{
			"key-mgmt": "wpa-psk",
			"psk":      c.Password,
		}
	}
	return connection
}

func (r *Radio) activate(c wifi.Credential) error {
	device, err := r.getWirelessDevice()
	if err != nil {
		return err
	}
	iface, _ := device.GetPropertyInterface()

	r.dropStation()
	active, err := r.NM.AddAndActivateConnection(stationSettings(iface, c), device)
	if err != nil {
		return fmt.Errorf("could not activate %s: %w: %w", c.SSID, wifi.ErrOperationFailed, err)
	}
	r.station = active
	r.stationProfile, _ = active.GetPropertyConnection()
	r.target = c
	return nil
}

// stationState reports whether the station profile is up, still coming up,
// or gone.
func (r *Radio) stationState() (up bool, pending bool, err error) {
	if r.station == nil {
		return false, false, nil
	}
	state, err := r.station.GetPropertyState()
	if err != nil {
		return false, false, fmt.Errorf("could not read connection state: %w: %w", wifi.ErrOperationFailed, err)
	}
	switch state {
	case gonetworkmanager.NmActiveConnectionStateActivated:
		return true, false, nil
	case gonetworkmanager.NmActiveConnectionStateActivating:
		return false, true, nil
	default:
		return false, false, nil
	}
}

// ConnectAny polls the pending activation and, once it has failed, moves on
// to the next visible candidate.
func (r *Radio) ConnectAny(candidates []wifi.Credential) (bool, error) {
	if !r.mode.Station() {
		return false, fmt.Errorf("radio in %s mode: %w", r.mode, wifi.ErrOperationFailed)
	}

	up, pending, err := r.stationState()
	if err != nil {
		r.dropStation()
		return false, err
	}
	if up {
		return true, nil
	}
	if pending {
		return false, nil
	}

	observations, err := r.visible()
	if err != nil {
		return false, err
	}
	ranked := wifi.RankCandidates(observations, candidates)
	if len(ranked) == 0 {
		return false, nil
	}
	c := ranked[r.next%len(ranked)]
	r.next++
	return false, r.activate(c)
}

func (r *Radio) Connect(ssid string, password string) error {
	return r.activate(wifi.Credential{SSID: ssid, Password: password})
}

func (r *Radio) Disconnect() error {
	if r.station == nil {
		return nil
	}
	err := r.NM.DeactivateConnection(r.station)
	r.dropStation()
	if err != nil {
		return fmt.Errorf("could not disconnect: %w: %w", wifi.ErrOperationFailed, err)
	}
	return nil
}

func (r *Radio) dropStation() {
	if r.stationProfile != nil {
		r.stationProfile.Delete()
	}
	r.station = nil
	r.stationProfile = nil
	r.target = wifi.Credential{}
}

func (r *Radio) Link() (wifi.Link, error) {
	up, _, err := r.stationState()
	if err != nil || !up {
		return wifi.Link{}, err
	}

	link := wifi.Link{Connected: true, SSID: r.target.SSID}
	if device, err := r.getWirelessDevice(); err == nil {
		if ap, err := device.GetPropertyActiveAccessPoint(); err == nil && ap != nil {
			if strength, err := ap.GetPropertyStrength(); err == nil {
				link.RSSI = strengthToRSSI(strength)
			}
		}
	}
	if cfg, err := r.station.GetPropertyIP4Config(); err == nil && cfg != nil {
		if addrs, err := cfg.GetPropertyAddressData(); err == nil && len(addrs) > 0 {
			link.IP, _ = netip.ParseAddr(addrs[0].Address)
		}
	}
	return link, nil
}

// strengthToRSSI maps NetworkManager's 0-100 signal quality onto dBm.
func strengthToRSSI(strength uint8) int {
	return int(strength)/2 - 100
}

// Scan asks NetworkManager for a fresh scan and returns what it currently
// sees. Multiple BSSIDs of one network collapse into one observation at the
// position of the first, carrying the strongest signal.
func (r *Radio) Scan() ([]wifi.Observation, error) {
	enabled, err := r.NM.GetPropertyWirelessEnabled()
	if err != nil {
		return nil, fmt.Errorf("could not read radio state: %w: %w", wifi.ErrOperationFailed, err)
	}
	if !enabled {
		return nil, wifi.ErrWirelessDisabled
	}
	device, err := r.getWirelessDevice()
	if err != nil {
		return nil, err
	}
	if err := device.RequestScan(); err != nil {
		return nil, fmt.Errorf("scan request failed: %w: %w", wifi.ErrOperationFailed, err)
	}
	return r.visible()
}

func (r *Radio) visible() ([]wifi.Observation, error) {
	device, err := r.getWirelessDevice()
	if err != nil {
		return nil, err
	}
	accessPoints, err := device.GetAccessPoints()
	if err != nil {
		return nil, fmt.Errorf("could not list access points: %w: %w", wifi.ErrOperationFailed, err)
	}

	var observations []wifi.Observation
	seen := make(map[string]int)
	for _, ap := range accessPoints {
		ssid, err := ap.GetPropertySSID()
		if err != nil || ssid == "" {
			continue
		}
		strength, _ := ap.GetPropertyStrength()
		rssi := strengthToRSSI(strength)
		if i, ok := seen[ssid]; ok {
			if rssi > observations[i].RSSI {
				observations[i].RSSI = rssi
			}
			continue
		}
		seen[ssid] = len(observations)
		observations = append(observations, wifi.Observation{SSID: ssid, RSSI: rssi, SourceID: len(observations)})
	}
	return observations, nil
}
