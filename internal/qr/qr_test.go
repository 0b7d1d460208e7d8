package qr

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hidraeco/gatewayd/wifi"
)

func TestEscapeWifiString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{`a;b`, `a\;b`},
		{`c:d,e`, `c\:d\,e`},
		{`"q"\`, `\"q\"\\`},
	}
	for _, tt := range tests {
		if got := EscapeWifiString(tt.in); got != tt.want {
			t.Errorf("EscapeWifiString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinString(t *testing.T) {
	tests := []struct {
		name string
		cfg  wifi.APConfig
		want string
	}{
		{"wpa", wifi.APConfig{SSID: "Hidra", Password: "HidraGateway"}, "WIFI:S:Hidra;T:WPA;P:HidraGateway;;"},
		{"open", wifi.APConfig{SSID: "Hidra Lab"}, "WIFI:S:Hidra Lab;T:nopass;;"},
		{"escaped", wifi.APConfig{SSID: "a;b", Password: "p:w"}, `WIFI:S:a\;b;T:WPA;P:p\:w;;`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinString(tt.cfg); got != tt.want {
				t.Errorf("JoinString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	cfg := wifi.APConfig{SSID: "Hidra", Password: "HidraGateway"}

	s, err := Terminal(cfg)
	if err != nil {
		t.Fatalf("Terminal() failed: %v", err)
	}
	if len(strings.Split(s, "\n")) < 10 {
		t.Errorf("terminal code looks too small:\n%s", s)
	}

	png, err := PNG(cfg, 128)
	if err != nil {
		t.Fatalf("PNG() failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("PNG() did not return a PNG image")
	}
}
