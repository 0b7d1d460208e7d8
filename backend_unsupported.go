//go:build !linux && !mock

package main

import (
	"fmt"

	"github.com/hidraeco/gatewayd/wifi"
)

// GetRadio fails on systems without a supported radio. Build with -tags mock
// to run against the simulated radio.
func GetRadio() (wifi.Radio, error) {
	return nil, fmt.Errorf("no radio for this operating system: %w", wifi.ErrNotSupported)
}
