package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hidraeco/gatewayd/connectivity"
	"github.com/hidraeco/gatewayd/internal/mdns"
	"github.com/hidraeco/gatewayd/internal/metrics"
	"github.com/hidraeco/gatewayd/kv"
	"github.com/hidraeco/gatewayd/wifi"
)

// app is the composed gateway: storage, radio and the connectivity manager.
type app struct {
	cfg     Config
	log     *slog.Logger
	store   io.Closer
	manager *connectivity.Manager

	// Set by withDaemon.
	metrics   *metrics.Collector
	announcer *mdns.Announcer
}

// openStore returns the credential store namespace and the backing store to close.
func openStore(cfg Config) (kv.Store, io.Closer, error) {
	var (
		root   kv.Store
		closer io.Closer
	)
	switch cfg.Storage {
	case storageMemory:
		m := kv.NewMemory()
		root, closer = m, m
	default:
		b, err := kv.OpenBolt(filepath.Clean(cfg.DataDir))
		if err != nil {
			return nil, nil, fmt.Errorf("could not open credential store: %w", err)
		}
		root, closer = b, b
	}
	store, err := kv.Namespace(root, cfg.Namespace)
	if err != nil {
		return nil, nil, errors.Join(err, closer.Close())
	}
	return store, closer, nil
}

type appOption func(*app, *connectivity.Options) error

// withDaemon adds metrics and service discovery, which only the long running
// commands need.
func withDaemon() appOption {
	return func(a *app, opts *connectivity.Options) error {
		port, err := mdns.PortFromAddr(a.cfg.Listen)
		if err != nil {
			return fmt.Errorf("listen address: %w", err)
		}
		a.metrics, err = metrics.New(prometheus.NewRegistry())
		if err != nil {
			return err
		}
		a.announcer = mdns.New(port, a.log.With("component", "mdns"))
		opts.Observer = a.metrics
		opts.Announcer = a.announcer
		return nil
	}
}

func newApp(cfg Config, radio wifi.Radio, logger *slog.Logger, options ...appOption) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	apCfg, err := cfg.AccessPoint()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: logger}
	opts := connectivity.Options{
		Logger:         logger,
		Hostname:       cfg.Hostname,
		AccessPoint:    apCfg,
		TickInterval:   cfg.Tick,
		ConnectTimeout: cfg.ConnectTimeout,
	}
	for _, o := range options {
		if err := o(a, &opts); err != nil {
			return nil, err
		}
	}

	store, closer, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a.store = closer
	a.manager = connectivity.New(radio, store, opts)
	return a, nil
}

// Close withdraws the announcement and closes the store.
func (a *app) Close() error {
	a.manager.Close()
	return a.store.Close()
}
