//go:build mock

package main

import (
	"github.com/hidraeco/gatewayd/wifi"
	"github.com/hidraeco/gatewayd/wifi/mock"
)

func GetRadio() (wifi.Radio, error) {
	return mock.New()
}
