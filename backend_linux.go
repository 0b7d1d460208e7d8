//go:build linux && !mock

package main

import (
	"fmt"

	"github.com/hidraeco/gatewayd/wifi"
	"github.com/hidraeco/gatewayd/wifi/networkmanager"
)

// GetRadio connects to NetworkManager over the system bus.
func GetRadio() (wifi.Radio, error) {
	r, err := networkmanager.New()
	if err != nil {
		return nil, fmt.Errorf("networkmanager: %w", err)
	}
	return r, nil
}
