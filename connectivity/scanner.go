package connectivity

import (
	"fmt"
	"log/slog"

	"github.com/hidraeco/gatewayd/wifi"
)

// SavedNetwork is a remembered network in the merged view. SavedID is the
// credential store index and only meaningful within the saved list.
type SavedNetwork struct {
	SavedID  int    `json:"savedId"`
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

// NearbyNetwork is a scanned network in the merged view. ScanID is the
// position in this scan and only meaningful within the nearby list.
type NearbyNetwork struct {
	ScanID int    `json:"scanId"`
	SSID   string `json:"ssid"`
	RSSI   int    `json:"rssi"`
}

// MergedNetworkView combines remembered and nearby networks. The two lists
// number their entries independently.
type MergedNetworkView struct {
	Saved  []SavedNetwork  `json:"saved"`
	Nearby []NearbyNetwork `json:"near"`
}

// NetworkScanner runs discovery scans and merges them with the saved list.
type NetworkScanner struct {
	radio    wifi.Radio
	creds    *CredentialStore
	log      *slog.Logger
	observer Observer
}

// Scan blocks for the duration of one discovery scan. Observations keep
// discovery order and SourceID is set to their position.
func (s *NetworkScanner) Scan() ([]wifi.Observation, error) {
	s.log.Info("scanning for networks")
	observations, err := s.radio.Scan()
	if err != nil {
		s.observer.Scanned(0, err)
		return nil, fmt.Errorf("%w: %w", ErrScanFailure, err)
	}

	result := make([]wifi.Observation, len(observations))
	for i, o := range observations {
		o.SourceID = i
		result[i] = o
	}
	s.observer.Scanned(len(result), nil)
	s.log.Info("scan finished", "count", len(result))
	return result, nil
}

// MergedView scans and combines the result with the credential store. When
// the scan fails the saved list is still filled in and the error wraps
// ErrScanFailure.
func (s *NetworkScanner) MergedView() (MergedNetworkView, error) {
	view := MergedNetworkView{
		Saved:  []SavedNetwork{},
		Nearby: []NearbyNetwork{},
	}

	saved, err := s.creds.List()
	if err != nil {
		return view, err
	}
	for _, c := range saved {
		view.Saved = append(view.Saved, SavedNetwork{SavedID: c.Index, SSID: c.SSID, Password: c.Password})
	}

	observations, err := s.Scan()
	if err != nil {
		return view, err
	}
	for _, o := range observations {
		view.Nearby = append(view.Nearby, NearbyNetwork{ScanID: o.SourceID, SSID: o.SSID, RSSI: o.RSSI})
	}
	return view, nil
}
