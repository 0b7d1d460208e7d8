package wifi

import (
	"errors"
	"net/netip"
	"testing"
)

func validAP() APConfig {
	return APConfig{
		SSID:     "Hidra",
		Password: "HidraGateway",
		Address:  netip.MustParseAddr("192.168.4.1"),
		Gateway:  netip.MustParseAddr("192.168.4.1"),
		Netmask:  netip.MustParseAddr("255.255.255.0"),
	}
}

func TestAPConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*APConfig)
		ok     bool
	}{
		{name: "Defaults", mutate: func(c *APConfig) {}, ok: true},
		{name: "Open network", mutate: func(c *APConfig) { c.Password = "" }, ok: true},
		{name: "Empty ssid", mutate: func(c *APConfig) { c.SSID = "" }},
		{name: "Short password", mutate: func(c *APConfig) { c.Password = "short" }},
		{name: "Missing gateway", mutate: func(c *APConfig) { c.Gateway = netip.Addr{} }},
		{name: "IPv6 address", mutate: func(c *APConfig) { c.Address = netip.MustParseAddr("fe80::1") }},
		{name: "Holey netmask", mutate: func(c *APConfig) { c.Netmask = netip.MustParseAddr("255.0.255.0") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAP()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate() failed: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() got %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestAPConfigPrefixLen(t *testing.T) {
	cfg := validAP()
	bits, err := cfg.PrefixLen()
	if err != nil {
		t.Fatalf("PrefixLen() failed: %v", err)
	}
	if bits != 24 {
		t.Errorf("PrefixLen() got %d, want 24", bits)
	}
}

func TestModeFlags(t *testing.T) {
	tests := []struct {
		mode    Mode
		station bool
		ap      bool
		name    string
	}{
		{ModeOff, false, false, "off"},
		{ModeStation, true, false, "sta"},
		{ModeAccessPoint, false, true, "ap"},
		{ModeStationAndAccessPoint, true, true, "ap+sta"},
	}
	for _, tt := range tests {
		if tt.mode.Station() != tt.station || tt.mode.AccessPoint() != tt.ap {
			t.Errorf("%v: got station=%t ap=%t", tt.mode, tt.mode.Station(), tt.mode.AccessPoint())
		}
		if tt.mode.String() != tt.name {
			t.Errorf("String() got %q, want %q", tt.mode.String(), tt.name)
		}
	}
}
