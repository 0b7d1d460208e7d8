package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Scans briefly take the radio off channel, so the monitor keeps them sparse.
const (
	ScanOff  = 0
	ScanFast = 10 * time.Second
	ScanSlow = 30 * time.Second
)

// ScanSchedule emits the callback's message at a regular interval.
type ScanSchedule struct {
	callback func() tea.Msg
	interval time.Duration
	// gen invalidates ticks scheduled before the last SetSchedule.
	gen int
}

// NewScanSchedule creates a stopped ScanSchedule.
func NewScanSchedule(callback func() tea.Msg) *ScanSchedule {
	return &ScanSchedule{
		callback: callback,
	}
}

// Enabled reports whether scans are scheduled.
func (s *ScanSchedule) Enabled() bool {
	return s.interval != ScanOff
}

// Interval is the current delay between scans.
func (s *ScanSchedule) Interval() time.Duration {
	return s.interval
}

// Toggle switches between off and ScanFast.
func (s *ScanSchedule) Toggle() (bool, tea.Cmd) {
	if s.Enabled() {
		return false, s.SetSchedule(ScanOff)
	}
	return true, s.SetSchedule(ScanFast)
}

// SetSchedule sets the scan interval. Starting from off scans right away.
func (s *ScanSchedule) SetSchedule(interval time.Duration) tea.Cmd {
	starting := !s.Enabled() && interval != ScanOff
	s.interval = interval
	s.gen++

	if starting {
		return tea.Batch(s.callback, s.tick())
	}
	return s.tick()
}

// Update schedules the next scan when its tick arrives.
func (s *ScanSchedule) Update(msg tea.Msg) tea.Cmd {
	tick, ok := msg.(scanTickMsg)
	if !ok || !s.Enabled() || tick.gen != s.gen {
		return nil
	}
	return tea.Batch(s.callback, s.tick())
}

type scanTickMsg struct {
	gen int
}

func (s *ScanSchedule) tick() tea.Cmd {
	if !s.Enabled() {
		return nil
	}
	gen := s.gen
	return tea.Tick(s.interval, func(time.Time) tea.Msg {
		return scanTickMsg{gen: gen}
	})
}
