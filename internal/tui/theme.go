package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Color is a terminal color that a theme file can set either as a single
// hex string or as a [light, dark] pair.
type Color struct {
	lipgloss.TerminalColor
}

// UnmarshalTOML implements toml.Unmarshaler.
func (c *Color) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case string:
		c.TerminalColor = lipgloss.Color(v)
	case []any:
		if len(v) != 2 {
			return fmt.Errorf("color pair needs 2 entries, got %d", len(v))
		}
		light, ok1 := v[0].(string)
		dark, ok2 := v[1].(string)
		if !ok1 || !ok2 {
			return fmt.Errorf("color pair must be strings")
		}
		c.TerminalColor = lipgloss.AdaptiveColor{Light: light, Dark: dark}
	default:
		return fmt.Errorf("unsupported color value %T", v)
	}
	return nil
}

// hex resolves c against the terminal background.
func (c Color) hex() string {
	switch tc := c.TerminalColor.(type) {
	case lipgloss.AdaptiveColor:
		if lipgloss.HasDarkBackground() {
			return tc.Dark
		}
		return tc.Light
	case lipgloss.Color:
		return string(tc)
	}
	return ""
}

// Theme contains the colors for the monitor.
type Theme struct {
	Primary  Color `toml:"Primary"`
	Subtle   Color `toml:"Subtle"`
	Success  Color `toml:"Success"`
	Error    Color `toml:"Error"`
	Normal   Color `toml:"Normal"`
	Disabled Color `toml:"Disabled"`
	Border   Color `toml:"Border"`

	SignalHigh Color `toml:"SignalHigh"`
	SignalLow  Color `toml:"SignalLow"`
}

// CurrentTheme is the active theme.
var CurrentTheme = NewDefaultTheme()

// NewDefaultTheme creates a new default theme.
func NewDefaultTheme() Theme {
	return Theme{
		Primary:  Color{lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#D359E3"}}, // Purple/Pink
		Subtle:   Color{lipgloss.AdaptiveColor{Light: "#BDBDBD", Dark: "#616161"}}, // Gray
		Success:  Color{lipgloss.AdaptiveColor{Light: "#388E3C", Dark: "#81C784"}}, // Green
		Error:    Color{lipgloss.AdaptiveColor{Light: "#D32F2F", Dark: "#E57373"}}, // Red
		Normal:   Color{lipgloss.AdaptiveColor{Light: "#212121", Dark: "#FFFFFF"}}, // Black/White
		Disabled: Color{lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#424242"}},
		Border:   Color{lipgloss.AdaptiveColor{Light: "#BDBDBD", Dark: "#616161"}},

		SignalHigh: Color{lipgloss.AdaptiveColor{Light: "#00B300", Dark: "#00FF00"}},
		SignalLow:  Color{lipgloss.AdaptiveColor{Light: "#D05F00", Dark: "#BC3C00"}},
	}
}

// Signal strength bounds for the gradient, in dBm.
const (
	rssiFloor   = -90
	rssiCeiling = -30
)

// signalStrength maps rssi onto [0, 1].
func signalStrength(rssi int) float64 {
	switch {
	case rssi <= rssiFloor:
		return 0
	case rssi >= rssiCeiling:
		return 1
	}
	return float64(rssi-rssiFloor) / float64(rssiCeiling-rssiFloor)
}

// SignalColor blends between the theme's low and high signal colors.
func (t Theme) SignalColor(rssi int) lipgloss.TerminalColor {
	start, err := colorful.Hex(t.SignalLow.hex())
	if err != nil {
		return t.Subtle
	}
	end, err := colorful.Hex(t.SignalHigh.hex())
	if err != nil {
		return t.Subtle
	}
	return lipgloss.Color(start.BlendRgb(end, signalStrength(rssi)).Hex())
}
