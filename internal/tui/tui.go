// Package tui is a terminal monitor for a running gateway.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hidraeco/gatewayd/connectivity"
	wifilog "github.com/hidraeco/gatewayd/internal/log"
)

const (
	refreshInterval = time.Second
	shownLogs       = 5
)

type keyMap struct {
	Scan        key.Binding
	AutoScan    key.Binding
	AccessPoint key.Binding
	Connect     key.Binding
	Disconnect  key.Binding
	Quit        key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Scan, k.AutoScan, k.AccessPoint, k.Connect, k.Disconnect, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Scan:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scan")),
	AutoScan:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "periodic scan")),
	AccessPoint: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle ap")),
	Connect:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "auto-connect")),
	Disconnect:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "disconnect")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type (
	refreshMsg  struct{}
	snapshotMsg connectivity.Snapshot
	networksMsg connectivity.MergedNetworkView
	scanMsg     struct{}
	scanErrMsg  struct{ err error }
	actionMsg   struct {
		done string
		err  error
	}
)

// Model is the monitor's bubbletea model.
type Model struct {
	client   Client
	spinner  spinner.Model
	help     help.Model
	schedule *ScanSchedule

	snap     connectivity.Snapshot
	networks connectivity.MergedNetworkView
	scanned  bool
	logs     []wifilog.LogMsg

	// pending describes the action in flight, if any.
	pending string
	status  string
	err     error

	width, height int
}

// NewModel creates the monitor over client.
func NewModel(client Client) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(CurrentTheme.Primary)

	return &Model{
		client:   client,
		spinner:  s,
		help:     help.New(),
		schedule: NewScanSchedule(func() tea.Msg { return scanMsg{} }),
		snap:     client.Snapshot(),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh(), m.schedule.SetSchedule(ScanSlow))
}

func (m *Model) refresh() tea.Cmd {
	client := m.client
	return tea.Batch(
		func() tea.Msg { return snapshotMsg(client.Snapshot()) },
		tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshMsg{} }),
	)
}

func (m *Model) scan() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		view, err := client.Networks(context.Background())
		if err != nil {
			return scanErrMsg{err: fmt.Errorf("scan: %w", err)}
		}
		return networksMsg(view)
	}
}

// start runs fn unless another action is in flight.
func (m *Model) start(label string, done string, fn func(context.Context) error) tea.Cmd {
	if m.pending != "" {
		return nil
	}
	m.pending = label
	m.err = nil
	return func() tea.Msg {
		return actionMsg{done: done, err: fn(context.Background())}
	}
}

func (m *Model) busy() bool {
	return m.pending != "" || m.snap.Phase == connectivity.PhaseAttempting
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Scan):
			m.status = "Scanning..."
			cmds = append(cmds, m.scan())
		case key.Matches(msg, keys.AutoScan):
			enabled, cmd := m.schedule.Toggle()
			cmds = append(cmds, cmd)
			if enabled {
				m.status = "Periodic scan on"
			} else {
				m.status = "Periodic scan off"
			}
		case key.Matches(msg, keys.AccessPoint):
			enable := !m.snap.AccessPoint.Active
			label, done := "Stopping access point...", "Access point stopped"
			if enable {
				label, done = "Starting access point...", "Access point started"
			}
			cmds = append(cmds, m.start(label, done, func(ctx context.Context) error {
				return m.client.SetAccessPoint(ctx, enable)
			}))
		case key.Matches(msg, keys.Connect):
			cmds = append(cmds, m.start("Connecting to saved networks...", "Connected", m.client.AutoConnect))
		case key.Matches(msg, keys.Disconnect):
			cmds = append(cmds, m.start("Disconnecting...", "Disconnected", m.client.Disconnect))
		}
	case refreshMsg:
		cmds = append(cmds, m.refresh())
	case snapshotMsg:
		m.snap = connectivity.Snapshot(msg)
	case scanMsg:
		if !m.busy() {
			cmds = append(cmds, m.scan())
		}
	case networksMsg:
		m.networks = connectivity.MergedNetworkView(msg)
		m.scanned = true
		if m.status == "Scanning..." {
			m.status = ""
		}
	case scanErrMsg:
		m.err = msg.err
		if m.status == "Scanning..." {
			m.status = ""
		}
	case actionMsg:
		m.pending = ""
		m.err = msg.err
		m.status = msg.done
		if msg.err != nil {
			m.status = ""
		}
		m.snap = m.client.Snapshot()
	case wifilog.LogMsg:
		m.logs = append(m.logs, msg)
		if len(m.logs) > shownLogs {
			m.logs = m.logs[len(m.logs)-shownLogs:]
		}
	}

	cmds = append(cmds, m.schedule.Update(msg))

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}
