package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hidraeco/gatewayd/connectivity"
	"github.com/hidraeco/gatewayd/internal/qr"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type statusOutput struct {
	State       string                `json:"state"`
	Station     connectivity.Status   `json:"station"`
	AccessPoint connectivity.APStatus `json:"accessPoint"`
	Hostname    string                `json:"hostname"`
}

func runStatus(w io.Writer, asJSON bool, m *connectivity.Manager) error {
	out := statusOutput{
		State:       m.State().String(),
		Station:     m.Status(),
		AccessPoint: m.APStatus(),
		Hostname:    m.Hostname(),
	}
	if asJSON {
		return writeJSON(w, out)
	}

	fmt.Fprintf(w, "State: %s\n", out.State)
	if out.Station.Connected {
		fmt.Fprintf(w, "Station: %s\t%s\t%d dBm\n", out.Station.SSID, out.Station.IP, out.Station.RSSI)
	} else {
		fmt.Fprintln(w, "Station: not connected")
	}
	ap := "off"
	if out.AccessPoint.Active {
		ap = "on"
	}
	fmt.Fprintf(w, "Access point: %s\t%s\t%s\n", out.AccessPoint.SSID, out.AccessPoint.IP, ap)
	fmt.Fprintf(w, "Hostname: %s.local\n", out.Hostname)
	return nil
}

func runNetworks(w io.Writer, asJSON bool, scan bool, m *connectivity.Manager) error {
	if !scan {
		saved, err := m.ListNetworks()
		if err != nil {
			return fmt.Errorf("failed to list networks: %w", err)
		}
		if asJSON {
			if saved == nil {
				saved = []connectivity.SavedCredential{}
			}
			return writeJSON(w, saved)
		}
		for _, c := range saved {
			fmt.Fprintf(w, "%d\t%s\n", c.Index, c.SSID)
		}
		return nil
	}

	view, err := m.ScanAndMerge()
	if err != nil {
		return fmt.Errorf("failed to scan networks: %w", err)
	}
	if asJSON {
		return writeJSON(w, view)
	}
	for _, n := range view.Saved {
		fmt.Fprintf(w, "saved\t%d\t%s\n", n.SavedID, n.SSID)
	}
	for _, n := range view.Nearby {
		fmt.Fprintf(w, "near\t%d\t%s\t%d dBm\n", n.ScanID, n.SSID, n.RSSI)
	}
	return nil
}

func runAdd(w io.Writer, m *connectivity.Manager, ssid string, password string) error {
	if err := m.AddNetwork(ssid, password); err != nil {
		return fmt.Errorf("failed to save network: %w", err)
	}
	fmt.Fprintf(w, "Saved %s\n", ssid)
	return nil
}

func runForget(w io.Writer, m *connectivity.Manager, all bool, args []string) error {
	if all {
		if err := m.ClearNetworks(); err != nil {
			return fmt.Errorf("failed to forget networks: %w", err)
		}
		fmt.Fprintln(w, "Forgot all networks")
		return nil
	}
	if len(args) != 1 {
		return errors.New("forget requires one saved network index, or -all")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q: %w", args[0], err)
	}
	if err := m.ForgetNetwork(index); err != nil {
		return fmt.Errorf("failed to forget network: %w", err)
	}
	fmt.Fprintf(w, "Forgot network %d\n", index)
	return nil
}

// runConnect joins ssid, or the saved networks when ssid is empty.
func runConnect(w io.Writer, m *connectivity.Manager, cfg Config, ssid string, password string) error {
	start := time.Now()
	var err error
	if ssid == "" {
		err = m.AutoConnect(cfg.AttemptTimeout, cfg.MaxAttempts)
	} else {
		err = m.ConnectToNetwork(ssid, password)
	}
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	st := m.Status()
	fmt.Fprintf(w, "Connected to %s as %s in %s\n", st.SSID, st.IP, formatDuration(time.Since(start)))
	return nil
}

func runAccessPoint(w io.Writer, m *connectivity.Manager, action string) error {
	switch strings.ToLower(action) {
	case "start", "":
		if err := m.StartDefaultAccessPoint(); err != nil {
			return fmt.Errorf("failed to start access point: %w", err)
		}
		ap := m.APStatus()
		fmt.Fprintf(w, "Access point %s up at %s\n", ap.SSID, ap.IP)
	case "stop":
		if err := m.StopAccessPoint(); err != nil {
			return fmt.Errorf("failed to stop access point: %w", err)
		}
		fmt.Fprintln(w, "Access point stopped")
	case "qr":
		code, err := qr.Terminal(m.AccessPointConfig())
		if err != nil {
			return fmt.Errorf("failed to render join code: %w", err)
		}
		fmt.Fprint(w, code)
		fmt.Fprintln(w, qr.JoinString(m.AccessPointConfig()))
	default:
		return fmt.Errorf("unknown access point action %q, want start, stop or qr", action)
	}
	return nil
}
