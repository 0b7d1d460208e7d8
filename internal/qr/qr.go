// Package qr renders Wi-Fi join codes for the gateway access point.
package qr

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/hidraeco/gatewayd/wifi"
)

// EscapeWifiString handles the special character escaping for SSID and Password.
func EscapeWifiString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`;`, `\;`,
		`,`, `\,`,
		`:`, `\:`,
		`"`, `\"`,
	)
	return r.Replace(s)
}

// JoinString builds the Wi-Fi connection string phones understand for cfg.
func JoinString(cfg wifi.APConfig) string {
	var b strings.Builder

	b.WriteString("WIFI:S:")
	b.WriteString(EscapeWifiString(cfg.SSID))
	b.WriteString(";")

	// The access point only runs open or WPA2-PSK.
	if cfg.Password == "" {
		b.WriteString("T:nopass;")
	} else {
		b.WriteString("T:WPA;P:")
		b.WriteString(EscapeWifiString(cfg.Password))
		b.WriteString(";")
	}

	b.WriteString(";")
	return b.String()
}

// Terminal returns the join code as a string for printing to a terminal.
func Terminal(cfg wifi.APConfig) (string, error) {
	q, err := qrcode.New(JoinString(cfg), qrcode.Medium)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}

// PNG returns the join code as a size x size PNG image.
func PNG(cfg wifi.APConfig, size int) ([]byte, error) {
	return qrcode.Encode(JoinString(cfg), qrcode.Medium, size)
}
