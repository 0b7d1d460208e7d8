// Package api serves the gateway configuration pages' JSON endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/hidraeco/gatewayd/connectivity"
	wifilog "github.com/hidraeco/gatewayd/internal/log"
	"github.com/hidraeco/gatewayd/internal/metrics"
	"github.com/hidraeco/gatewayd/internal/qr"
	"github.com/hidraeco/gatewayd/wifi"
)

const qrSize = 256

// Options configures a Server.
type Options struct {
	Logger *slog.Logger
	// Logs backs GET /logs. Nil serves an empty list.
	Logs *wifilog.RecentHandler
	// Metrics backs GET /metrics and instruments every route. Nil disables both.
	Metrics *metrics.Collector

	AttemptTimeout time.Duration
	MaxAttempts    int
}

// Server routes HTTP requests onto the device task.
type Server struct {
	task *connectivity.Task
	log  *slog.Logger
	logs *wifilog.RecentHandler

	attemptTimeout time.Duration
	maxAttempts    int

	mux *http.ServeMux
}

// New builds the routes over task.
func New(task *connectivity.Task, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		task:           task,
		log:            logger,
		logs:           opts.Logs,
		attemptTimeout: opts.AttemptTimeout,
		maxAttempts:    opts.MaxAttempts,
		mux:            http.NewServeMux(),
	}
	if s.attemptTimeout <= 0 {
		s.attemptTimeout = connectivity.DefaultAttemptTimeout
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = connectivity.DefaultMaxAttempts
	}

	routes := []struct {
		pattern string
		name    string
		handler http.HandlerFunc
	}{
		{"GET /wifi/status", "wifi_status", s.handleWifiStatus},
		{"GET /wifi/networks", "wifi_networks", s.handleNetworks},
		{"POST /wifi/networks", "wifi_networks_add", s.handleAddNetwork},
		{"DELETE /wifi/networks/{id}", "wifi_networks_delete", s.handleForgetNetwork},
		{"POST /wifi/connect", "wifi_connect", s.handleConnect},
		{"POST /wifi/toggle", "wifi_toggle", s.handleWifiToggle},
		{"GET /server/config", "server_config", s.handleServerConfig},
		{"POST /server/config", "server_config_set", s.handleSetServerConfig},
		{"POST /server/toggle", "server_toggle", s.handleServerToggle},
		{"GET /server/qr.png", "server_qr", s.handleQR},
		{"GET /logs", "logs", s.handleLogs},
	}
	for _, r := range routes {
		var h http.Handler = r.handler
		if opts.Metrics != nil {
			h = opts.Metrics.Instrument(r.name, h)
		}
		s.mux.Handle(r.pattern, h)
	}
	if opts.Metrics != nil {
		s.mux.Handle("GET /metrics", opts.Metrics.Handler())
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// WifiStatus is the station link as the configuration pages expect it.
type WifiStatus struct {
	SSID   string `json:"ssid"`
	RSSI   int    `json:"rssi"`
	IP     string `json:"ip"`
	Status int    `json:"status"`
	State  string `json:"state"`
	Phase  string `json:"phase"`
}

// ServerConfig is the access point config as the configuration pages expect it.
type ServerConfig struct {
	SSID   string `json:"ssid"`
	Pass   string `json:"pass"`
	IP     string `json:"ip"`
	Status int    `json:"status"`
}

type credentialRequest struct {
	SSID string `json:"ssid"`
	Pass string `json:"pass"`
}

type serverConfigRequest struct {
	SSID    string `json:"ssid"`
	Pass    string `json:"pass"`
	IP      string `json:"ip,omitempty"`
	Gateway string `json:"gateway,omitempty"`
	Netmask string `json:"netmask,omitempty"`
}

type toggleRequest struct {
	Status int `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func boolStatus(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("could not write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, connectivity.ErrInvalidCredential),
		errors.Is(err, connectivity.ErrInvalidArgument),
		errors.Is(err, wifi.ErrInvalidConfig):
		code = http.StatusBadRequest
	case errors.Is(err, connectivity.ErrConnectionTimeout):
		code = http.StatusGatewayTimeout
	case errors.Is(err, connectivity.ErrScanFailure):
		code = http.StatusBadGateway
	case errors.Is(err, connectivity.ErrTaskStopped):
		code = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	s.writeJSON(w, code, errorResponse{Error: err.Error()})
}

// busy rejects the request while a connect holds the radio.
func (s *Server) busy(w http.ResponseWriter) bool {
	if !s.task.Busy() {
		return false
	}
	s.writeJSON(w, http.StatusConflict, errorResponse{Error: "a connection attempt is in progress"})
	return true
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(connectivity.ErrInvalidArgument, err)
	}
	return nil
}

func (s *Server) wifiStatus() WifiStatus {
	snap := s.task.Snapshot()
	return WifiStatus{
		SSID:   snap.Station.SSID,
		RSSI:   snap.Station.RSSI,
		IP:     snap.Station.IP,
		Status: boolStatus(snap.Station.Connected),
		State:  snap.State.String(),
		Phase:  snap.Phase.String(),
	}
}

func (s *Server) handleWifiStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.wifiStatus())
}

func (s *Server) handleNetworks(w http.ResponseWriter, r *http.Request) {
	if s.busy(w) {
		return
	}
	var view connectivity.MergedNetworkView
	err := s.task.Do(r.Context(), func(m *connectivity.Manager) error {
		var err error
		view, err = m.ScanAndMerge()
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAddNetwork(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if s.busy(w) {
		return
	}
	err := s.task.Do(r.Context(), func(m *connectivity.Manager) error {
		return m.AddNetwork(req.SSID, req.Pass)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleForgetNetwork(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.writeError(w, errors.Join(connectivity.ErrInvalidArgument, err))
		return
	}
	if s.busy(w) {
		return
	}
	err = s.task.Do(r.Context(), func(m *connectivity.Manager) error {
		return m.ForgetNetwork(id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if s.busy(w) {
		return
	}
	s.log.Info("connect requested", "ssid", req.SSID)
	err := s.task.Await(r.Context(), func(m *connectivity.Manager) error {
		return m.BeginConnect(req.SSID, req.Pass)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.wifiStatus())
}

func (s *Server) handleWifiToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if s.busy(w) {
		return
	}
	var err error
	if req.Status != 0 {
		err = s.task.Await(r.Context(), func(m *connectivity.Manager) error {
			return m.BeginAutoConnect(s.attemptTimeout, s.maxAttempts)
		})
	} else {
		err = s.task.Do(r.Context(), func(m *connectivity.Manager) error {
			return m.Disconnect()
		})
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.wifiStatus())
}

func (s *Server) serverConfig() ServerConfig {
	ap := s.task.Snapshot().AccessPoint
	return ServerConfig{
		SSID:   ap.SSID,
		Pass:   ap.Password,
		IP:     ap.IP,
		Status: boolStatus(ap.Active),
	}
}

func (s *Server) handleServerConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.serverConfig())
}

func parseAddr(field string, value string, into *netip.Addr) error {
	if value == "" {
		return nil
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return fmt.Errorf("access point %s: %w: %w", field, wifi.ErrInvalidConfig, err)
	}
	*into = addr
	return nil
}

func (s *Server) handleSetServerConfig(w http.ResponseWriter, r *http.Request) {
	var req serverConfigRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if s.busy(w) {
		return
	}
	err := s.task.Do(r.Context(), func(m *connectivity.Manager) error {
		cfg := m.AccessPointConfig()
		cfg.SSID = req.SSID
		cfg.Password = req.Pass
		if err := parseAddr("ip", req.IP, &cfg.Address); err != nil {
			return err
		}
		if err := parseAddr("gateway", req.Gateway, &cfg.Gateway); err != nil {
			return err
		}
		if err := parseAddr("netmask", req.Netmask, &cfg.Netmask); err != nil {
			return err
		}
		return m.SetAccessPointConfig(cfg)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.serverConfig())
}

func (s *Server) handleServerToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if s.busy(w) {
		return
	}
	err := s.task.Do(r.Context(), func(m *connectivity.Manager) error {
		if req.Status != 0 {
			return m.StartDefaultAccessPoint()
		}
		return m.StopAccessPoint()
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.serverConfig())
}

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	var cfg wifi.APConfig
	err := s.task.Do(r.Context(), func(m *connectivity.Manager) error {
		cfg = m.AccessPointConfig()
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	png, err := qr.PNG(cfg, qrSize)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := []wifilog.Entry{}
	if s.logs != nil {
		entries = s.logs.Entries()
	}
	s.writeJSON(w, http.StatusOK, entries)
}
