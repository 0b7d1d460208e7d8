package log

import (
	"bytes"
	"log/slog"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(Options{Output: &buf, Verbose: true})

	logger.Info("access point started", "ssid", "Hidra")
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "access point started")
	assert.Contains(t, out, `"ssid":"Hidra"`)
	assert.NotContains(t, out, "hidden")

	logs := Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "access point started", logs[0].Message)
}

func TestInitDefaultsToWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(Options{Output: &buf})

	logger.Info("quiet")
	logger.Warn("radio rejected mode change")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "radio rejected mode change")
}

func TestInitDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(Options{Output: &buf, Debug: true})

	logger.Debug("association poll failed", "error", "busy")
	assert.Contains(t, buf.String(), "association poll failed")
	assert.Len(t, Logs(), 1)
}

func TestRecentHandlerKeepsLatest(t *testing.T) {
	h := NewRecentHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), slog.LevelInfo)
	logger := slog.New(h)

	for i := 0; i < RecentSize+5; i++ {
		logger.Info("tick", "n", i)
	}

	entries := h.Entries()
	require.Len(t, entries, RecentSize)
	assert.Equal(t, int64(5), entries[0].Attrs["n"])
	assert.Equal(t, int64(RecentSize+4), entries[RecentSize-1].Attrs["n"])
	assert.Equal(t, "INFO", entries[0].Level)
}

func TestRecentHandlerSharedAcrossWith(t *testing.T) {
	h := NewRecentHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), nil)
	logger := slog.New(h).With("component", "ap")

	logger.Info("started")
	logger.WithGroup("radio").Warn("rejected")

	assert.Len(t, h.Logs(), 2)
}

func TestSetOutputDoesNotBlock(t *testing.T) {
	h := NewRecentHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), slog.LevelInfo)
	ch := make(chan tea.Msg, 1)
	h.SetOutput(ch)
	logger := slog.New(h)

	logger.Info("first")
	logger.Info("second")

	msg := <-ch
	assert.Equal(t, "first", msg.(LogMsg).Message)
	assert.Len(t, h.Logs(), 2)
}
