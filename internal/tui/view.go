package tui

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hidraeco/gatewayd/connectivity"
)

const ssidColumnWidth = 30

func style(c Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// padSSID truncates or pads ssid to the list column.
func padSSID(ssid string) string {
	r := []rune(ssid)
	if len(r) > ssidColumnWidth {
		return string(r[:ssidColumnWidth-1]) + "…"
	}
	return ssid + strings.Repeat(" ", ssidColumnWidth-len(r))
}

func (m *Model) viewStation() string {
	st := m.snap.Station
	label := style(CurrentTheme.Primary).Bold(true).Render("Station")
	switch {
	case st.Connected:
		return fmt.Sprintf("%s  %s %s  %s  %s",
			label,
			style(CurrentTheme.Success).Render(st.SSID),
			style(CurrentTheme.Normal).Render(st.IP),
			lipgloss.NewStyle().Foreground(CurrentTheme.SignalColor(st.RSSI)).Render(fmt.Sprintf("%d dBm", st.RSSI)),
			style(CurrentTheme.Subtle).Render(m.snap.Hostname+".local"),
		)
	case m.snap.Phase == connectivity.PhaseAttempting:
		a := m.snap.Attempt
		progress := fmt.Sprintf("auto-connect attempt %d", a.Count)
		if a.Kind == connectivity.KindExplicit {
			progress = "joining " + a.Target.SSID
		}
		return fmt.Sprintf("%s  %s", label, style(CurrentTheme.Normal).Render(progress))
	case m.snap.Phase == connectivity.PhaseFailed:
		return fmt.Sprintf("%s  %s", label, style(CurrentTheme.Error).Render("not connected (last attempt failed)"))
	default:
		return fmt.Sprintf("%s  %s", label, style(CurrentTheme.Subtle).Render("not connected"))
	}
}

func (m *Model) viewAccessPoint() string {
	ap := m.snap.AccessPoint
	label := style(CurrentTheme.Primary).Bold(true).Render("AP     ")
	if !ap.Active {
		return fmt.Sprintf("%s  %s", label, style(CurrentTheme.Subtle).Render("off ("+ap.SSID+")"))
	}
	return fmt.Sprintf("%s  %s %s", label,
		style(CurrentTheme.Success).Render(ap.SSID),
		style(CurrentTheme.Normal).Render(ap.IP),
	)
}

func (m *Model) viewNetworks() string {
	var s strings.Builder

	s.WriteString(style(CurrentTheme.Primary).Render("Saved"))
	s.WriteString("\n")
	if len(m.networks.Saved) == 0 {
		s.WriteString(style(CurrentTheme.Disabled).Render("  none"))
		s.WriteString("\n")
	}
	for _, n := range m.networks.Saved {
		line := fmt.Sprintf("  %2d %s", n.SavedID, padSSID(n.SSID))
		st := style(CurrentTheme.Normal)
		if m.snap.Station.Connected && m.snap.Station.SSID == n.SSID {
			st = style(CurrentTheme.Success)
			line += " (Connected)"
		}
		s.WriteString(st.Render(line))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(style(CurrentTheme.Primary).Render("Nearby"))
	s.WriteString("\n")
	if !m.scanned {
		s.WriteString(style(CurrentTheme.Disabled).Render("  not scanned yet"))
		s.WriteString("\n")
	} else if len(m.networks.Nearby) == 0 {
		s.WriteString(style(CurrentTheme.Disabled).Render("  none"))
		s.WriteString("\n")
	}
	for _, n := range m.networks.Nearby {
		signal := lipgloss.NewStyle().Foreground(CurrentTheme.SignalColor(n.RSSI)).Render(fmt.Sprintf("%d dBm", n.RSSI))
		fmt.Fprintf(&s, "  %2d %s %s\n", n.ScanID, style(CurrentTheme.Normal).Render(padSSID(n.SSID)), signal)
	}
	return s.String()
}

func (m *Model) viewLogs() string {
	if len(m.logs) == 0 {
		return ""
	}
	var s strings.Builder
	for _, log := range m.logs {
		st := style(CurrentTheme.Subtle)
		if log.Level >= slog.LevelError {
			st = style(CurrentTheme.Error)
		}
		line := fmt.Sprintf("[%s] %s", log.Level, log.Message)
		r := slog.Record(log)
		r.Attrs(func(a slog.Attr) bool {
			line += fmt.Sprintf(" %s=%v", a.Key, a.Value.Any())
			return true
		})
		s.WriteString(st.Render(line))
		s.WriteString("\n")
	}
	return s.String()
}

func (m *Model) View() string {
	var s strings.Builder

	fmt.Fprintf(&s, "%s %s\n\n",
		style(CurrentTheme.Primary).Bold(true).Render("gatewayd"),
		style(CurrentTheme.Subtle).Render(m.snap.State.String()),
	)
	s.WriteString(m.viewStation())
	s.WriteString("\n")
	s.WriteString(m.viewAccessPoint())
	s.WriteString("\n\n")
	s.WriteString(m.viewNetworks())

	if logs := m.viewLogs(); logs != "" {
		s.WriteString("\n")
		s.WriteString(lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(CurrentTheme.Border).
			Render(strings.TrimRight(logs, "\n")))
		s.WriteString("\n")
	}

	switch {
	case m.err != nil:
		fmt.Fprintf(&s, "\n%s", style(CurrentTheme.Error).Render("Error: "+m.err.Error()))
	case m.busy():
		status := m.pending
		if status == "" {
			status = "Connecting..."
		}
		fmt.Fprintf(&s, "\n%s %s", m.spinner.View(), style(CurrentTheme.Primary).Render(status))
	case m.status != "":
		fmt.Fprintf(&s, "\n%s", style(CurrentTheme.Primary).Render(m.status))
	}

	fmt.Fprintf(&s, "\n\n%s", m.help.View(keys))
	return s.String()
}
