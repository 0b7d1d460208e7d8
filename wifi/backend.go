package wifi

import (
	"fmt"
	"net/netip"
)

// Mode is the combined operating mode of the radio.
type Mode int

const (
	ModeOff Mode = iota
	ModeStation
	ModeAccessPoint
	ModeStationAndAccessPoint
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeStation:
		return "sta"
	case ModeAccessPoint:
		return "ap"
	case ModeStationAndAccessPoint:
		return "ap+sta"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Station reports whether the mode includes station operation.
func (m Mode) Station() bool {
	return m == ModeStation || m == ModeStationAndAccessPoint
}

// AccessPoint reports whether the mode includes access point operation.
func (m Mode) AccessPoint() bool {
	return m == ModeAccessPoint || m == ModeStationAndAccessPoint
}

// Credential is a remembered network name and its password.
type Credential struct {
	SSID     string
	Password string
}

// Link describes the current station link.
type Link struct {
	Connected bool
	SSID      string
	RSSI      int // dBm
	IP        netip.Addr
}

// Observation is a single network seen during a scan.
type Observation struct {
	SSID string
	RSSI int // dBm
	// SourceID is the position of the observation in the scan result.
	SourceID int
}

// APConfig is the addressing and credentials of the local access point.
type APConfig struct {
	SSID     string
	Password string
	Address  netip.Addr
	Gateway  netip.Addr
	Netmask  netip.Addr
}

// Equal reports whether both configs would bring up an identical access point.
func (c APConfig) Equal(other APConfig) bool {
	return c == other
}

// Validate checks that the config can be applied to a radio.
func (c APConfig) Validate() error {
	if c.SSID == "" {
		return fmt.Errorf("access point ssid is empty: %w", ErrInvalidConfig)
	}
	if c.Password != "" && len(c.Password) < 8 {
		return fmt.Errorf("access point password must be at least 8 characters: %w", ErrInvalidConfig)
	}
	fields := []struct {
		name string
		addr netip.Addr
	}{{"address", c.Address}, {"gateway", c.Gateway}, {"netmask", c.Netmask}}
	for _, f := range fields {
		if !f.addr.Is4() {
			return fmt.Errorf("access point %s %q is not an IPv4 address: %w", f.name, f.addr, ErrInvalidConfig)
		}
	}
	if _, err := c.PrefixLen(); err != nil {
		return err
	}
	return nil
}

// PrefixLen converts the dotted netmask into a prefix length.
func (c APConfig) PrefixLen() (int, error) {
	b := c.Netmask.As4()
	bits := 0
	seenZero := false
	for _, octet := range b {
		for i := 7; i >= 0; i-- {
			if octet&(1<<i) != 0 {
				if seenZero {
					return 0, fmt.Errorf("netmask %s is not contiguous: %w", c.Netmask, ErrInvalidConfig)
				}
				bits++
			} else {
				seenZero = true
			}
		}
	}
	return bits, nil
}

// Radio is the single wireless device shared by station and access point operation.
type Radio interface {
	// SetMode applies the combined operating mode.
	SetMode(mode Mode) error

	// StartAccessPoint applies addressing and brings the access point up.
	StartAccessPoint(cfg APConfig) error
	// StopAccessPoint tears the access point down.
	StopAccessPoint() error

	// ConnectAny advances association against the candidate set and reports
	// whether the station link is up. It is called repeatedly on a fixed tick.
	ConnectAny(candidates []Credential) (bool, error)
	// Connect begins association with a single network without waiting for it.
	Connect(ssid string, password string) error
	// Disconnect tears down the station link.
	Disconnect() error
	// Link reports the current station link.
	Link() (Link, error)

	// Scan blocks for the duration of a discovery scan and returns its snapshot.
	Scan() ([]Observation, error)
}
