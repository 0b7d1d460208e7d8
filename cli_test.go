package main

import (
	"bytes"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/hidraeco/gatewayd/connectivity"
	"github.com/hidraeco/gatewayd/wifi"
	"github.com/hidraeco/gatewayd/wifi/mock"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	var cfg Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cfg.Storage = storageMemory
	cfg.Tick = 10 * time.Millisecond
	cfg.AttemptTimeout = 100 * time.Millisecond
	cfg.MaxAttempts = 2
	cfg.ConnectTimeout = 500 * time.Millisecond
	return cfg
}

func testRadio() *mock.MockRadio {
	return &mock.MockRadio{
		Visible: []wifi.Observation{
			{SSID: "TestNet 1", RSSI: -48},
			{SSID: "TestNet 2", RSSI: -70},
		},
		Secrets:        map[string]string{"TestNet 1": "password123"},
		PollsToConnect: 2,
		IP:             netip.MustParseAddr("192.168.1.42"),
	}
}

func newTestApp(t *testing.T) (*app, *mock.MockRadio) {
	t.Helper()
	radio := testRadio()
	a, err := newApp(testConfig(t), radio, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newApp() failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, radio
}

func TestRunStatus(t *testing.T) {
	a, radio := newTestApp(t)
	var buf bytes.Buffer

	if err := runStatus(&buf, false, a.manager); err != nil {
		t.Fatalf("runStatus() failed: %v", err)
	}
	output := buf.String()
	for _, want := range []string{
		"State: OFF",
		"Station: not connected",
		"Access point: Hidra\t192.168.4.1\toff",
		"Hostname: hidra.local",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("runStatus() output missing %q. got=%q", want, output)
		}
	}

	radio.Associate("TestNet 1", -48)
	buf.Reset()
	if err := runStatus(&buf, true, a.manager); err != nil {
		t.Fatalf("runStatus() failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"ssid": "TestNet 1"`) {
		t.Errorf("runStatus() json missing station. got=%q", buf.String())
	}
}

func TestRunNetworks(t *testing.T) {
	a, _ := newTestApp(t)
	var buf bytes.Buffer

	if err := runNetworks(&buf, true, false, a.manager); err != nil {
		t.Fatalf("runNetworks() failed: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("runNetworks() with nothing saved = %q, want []", got)
	}

	for _, ssid := range []string{"TestNet 1", "Elsewhere"} {
		buf.Reset()
		if err := runAdd(&buf, a.manager, ssid, "pw"); err != nil {
			t.Fatalf("runAdd() failed: %v", err)
		}
	}

	buf.Reset()
	if err := runNetworks(&buf, false, false, a.manager); err != nil {
		t.Fatalf("runNetworks() failed: %v", err)
	}
	expected := "0\tTestNet 1\n1\tElsewhere\n"
	if buf.String() != expected {
		t.Errorf("runNetworks() = %q, want %q", buf.String(), expected)
	}

	buf.Reset()
	if err := runNetworks(&buf, false, true, a.manager); err != nil {
		t.Fatalf("runNetworks() with scan failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	expectedLines := []string{
		"saved\t0\tTestNet 1",
		"saved\t1\tElsewhere",
		"near\t0\tTestNet 1\t-48 dBm",
		"near\t1\tTestNet 2\t-70 dBm",
	}
	if len(lines) != len(expectedLines) {
		t.Fatalf("runNetworks() output has wrong number of lines. got=%d, want=%d\n---\n%s\n---", len(lines), len(expectedLines), buf.String())
	}
	for i, expectedLine := range expectedLines {
		if lines[i] != expectedLine {
			t.Errorf("runNetworks() output line %d wrong. got=%q, want=%q", i, lines[i], expectedLine)
		}
	}
}

func TestRunNetworksScanFailure(t *testing.T) {
	a, radio := newTestApp(t)
	radio.ScanError = wifi.ErrWirelessDisabled

	err := runNetworks(io.Discard, false, true, a.manager)
	if !errors.Is(err, connectivity.ErrScanFailure) {
		t.Errorf("runNetworks() error = %v, want ErrScanFailure", err)
	}
}

func TestRunAddEmptySSID(t *testing.T) {
	a, _ := newTestApp(t)
	err := runAdd(io.Discard, a.manager, "", "pw")
	if !errors.Is(err, connectivity.ErrInvalidCredential) {
		t.Errorf("runAdd() error = %v, want ErrInvalidCredential", err)
	}
}

func TestRunForget(t *testing.T) {
	a, _ := newTestApp(t)
	for _, ssid := range []string{"A", "B", "C"} {
		if err := a.manager.AddNetwork(ssid, ""); err != nil {
			t.Fatalf("AddNetwork: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := runForget(&buf, a.manager, false, []string{"1"}); err != nil {
		t.Fatalf("runForget() failed: %v", err)
	}
	saved, _ := a.manager.ListNetworks()
	if len(saved) != 2 || saved[0].SSID != "A" || saved[1].SSID != "C" {
		t.Errorf("after forgetting 1, saved = %+v", saved)
	}

	// Out of range is silently ignored.
	if err := runForget(&buf, a.manager, false, []string{"7"}); err != nil {
		t.Errorf("runForget() out of range failed: %v", err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"no index", nil},
		{"not a number", []string{"first"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runForget(io.Discard, a.manager, false, tt.args); err == nil {
				t.Error("runForget() should have failed")
			}
		})
	}

	if err := runForget(&buf, a.manager, true, nil); err != nil {
		t.Fatalf("runForget(all) failed: %v", err)
	}
	saved, _ = a.manager.ListNetworks()
	if len(saved) != 0 {
		t.Errorf("after forgetting all, saved = %+v", saved)
	}
}

func TestRunConnect(t *testing.T) {
	a, _ := newTestApp(t)
	var buf bytes.Buffer

	if err := runConnect(&buf, a.manager, a.cfg, "TestNet 1", "password123"); err != nil {
		t.Fatalf("runConnect() failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "Connected to TestNet 1 as 192.168.1.42 in ") {
		t.Errorf("runConnect() output = %q", buf.String())
	}
	saved, _ := a.manager.ListNetworks()
	if len(saved) != 1 || saved[0].Password != "password123" {
		t.Errorf("runConnect() should save the network, saved = %+v", saved)
	}

	err := runConnect(io.Discard, a.manager, a.cfg, "TestNet 1", "wrong")
	if !errors.Is(err, connectivity.ErrConnectionTimeout) {
		t.Errorf("runConnect() with wrong password error = %v, want ErrConnectionTimeout", err)
	}
}

func TestRunConnectSaved(t *testing.T) {
	a, _ := newTestApp(t)
	if err := a.manager.AddNetwork("TestNet 1", "password123"); err != nil {
		t.Fatalf("AddNetwork: %v", err)
	}

	var buf bytes.Buffer
	if err := runConnect(&buf, a.manager, a.cfg, "", ""); err != nil {
		t.Fatalf("runConnect() failed: %v", err)
	}
	if a.manager.State() != connectivity.StateStationOnly {
		t.Errorf("state = %s, want STA", a.manager.State())
	}
}

func TestRunAccessPoint(t *testing.T) {
	a, radio := newTestApp(t)
	var buf bytes.Buffer

	if err := runAccessPoint(&buf, a.manager, "start"); err != nil {
		t.Fatalf("runAccessPoint(start) failed: %v", err)
	}
	if buf.String() != "Access point Hidra up at 192.168.4.1\n" {
		t.Errorf("runAccessPoint(start) = %q", buf.String())
	}
	if radio.AccessPoint == nil {
		t.Error("radio should host the access point")
	}

	buf.Reset()
	if err := runAccessPoint(&buf, a.manager, "qr"); err != nil {
		t.Fatalf("runAccessPoint(qr) failed: %v", err)
	}
	if !strings.Contains(buf.String(), "WIFI:S:Hidra;T:WPA;P:HidraGateway;;") {
		t.Errorf("runAccessPoint(qr) missing join string. got=%q", buf.String())
	}

	buf.Reset()
	if err := runAccessPoint(&buf, a.manager, "STOP"); err != nil {
		t.Fatalf("runAccessPoint(stop) failed: %v", err)
	}
	if a.manager.State() != connectivity.StateOff {
		t.Errorf("state = %s, want OFF", a.manager.State())
	}

	if err := runAccessPoint(io.Discard, a.manager, "reboot"); err == nil {
		t.Error("runAccessPoint(reboot) should have failed")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{3 * time.Second, "3 seconds"},
		{5 * time.Minute, "5 minutes"},
		{90 * time.Minute, "90 minutes"},
		{3 * time.Hour, "3.0 hours"},
		{72 * time.Hour, "3 days"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%s) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
