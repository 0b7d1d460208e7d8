package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/netip"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/peterbourgon/ff/v3"

	"github.com/hidraeco/gatewayd/connectivity"
	"github.com/hidraeco/gatewayd/wifi"
)

const envPrefix = "GATEWAYD"

const (
	storageBolt   = "bolt"
	storageMemory = "memory"
)

// Config is everything the commands read from flags, the environment and
// the config file.
type Config struct {
	DataDir   string
	Namespace string
	Storage   string
	Hostname  string

	APSSID     string
	APPassword string
	APAddress  string
	APGateway  string
	APNetmask  string

	AttemptTimeout time.Duration
	MaxAttempts    int
	ConnectTimeout time.Duration
	Tick           time.Duration

	Listen  string
	Theme   string
	Verbose bool
	Debug   bool
	LogFile string
}

// RegisterFlags binds c to fs with the firmware defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	ap := connectivity.DefaultAccessPoint()

	fs.StringVar(&c.DataDir, "data-dir", "/var/lib/gatewayd", "directory holding the credential database")
	fs.StringVar(&c.Namespace, "namespace", "wifi", "storage namespace for credentials")
	fs.StringVar(&c.Storage, "storage", storageBolt, "credential storage: bolt or memory")
	fs.StringVar(&c.Hostname, "hostname", connectivity.DefaultHostname, "service discovery hostname")

	fs.StringVar(&c.APSSID, "ap-ssid", ap.SSID, "access point network name")
	fs.StringVar(&c.APPassword, "ap-password", ap.Password, "access point passphrase")
	fs.StringVar(&c.APAddress, "ap-address", ap.Address.String(), "access point address")
	fs.StringVar(&c.APGateway, "ap-gateway", ap.Gateway.String(), "access point gateway")
	fs.StringVar(&c.APNetmask, "ap-netmask", ap.Netmask.String(), "access point netmask")

	fs.DurationVar(&c.AttemptTimeout, "attempt-timeout", connectivity.DefaultAttemptTimeout, "auto-connect per-attempt timeout")
	fs.IntVar(&c.MaxAttempts, "max-attempts", connectivity.DefaultMaxAttempts, "auto-connect attempts")
	fs.DurationVar(&c.ConnectTimeout, "connect-timeout", connectivity.DefaultConnectTimeout, "explicit connect timeout")
	fs.DurationVar(&c.Tick, "tick", connectivity.DefaultTickInterval, "poll interval while connecting")

	fs.StringVar(&c.Listen, "listen", ":80", "web server address")
	fs.StringVar(&c.Theme, "theme", "", "path to monitor theme toml file")
	fs.BoolVar(&c.Verbose, "verbose", false, "log at info level")
	fs.BoolVar(&c.Debug, "debug", false, "log at debug level")
	fs.StringVar(&c.LogFile, "log-file", "", "write logs to a rotated file instead of stderr")
}

// parseOptions are the ff options every command parses with.
func parseOptions() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix(envPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(parseTOML),
		ff.WithAllowMissingConfigFile(true),
	}
}

// parseTOML is an ff.ConfigFileParser. Tables flatten into dashed names,
// so [ap] ssid = "x" sets -ap-ssid.
func parseTOML(r io.Reader, set func(name, value string) error) error {
	var raw map[string]any
	if _, err := toml.NewDecoder(r).Decode(&raw); err != nil {
		return fmt.Errorf("could not parse config file: %w", err)
	}
	return setTable("", raw, set)
}

func setTable(prefix string, table map[string]any, set func(name, value string) error) error {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "-" + k
		}
		switch v := table[k].(type) {
		case map[string]any:
			if err := setTable(name, v, set); err != nil {
				return err
			}
		case []any:
			for _, item := range v {
				if err := set(name, fmt.Sprint(item)); err != nil {
					return err
				}
			}
		default:
			if err := set(name, fmt.Sprint(v)); err != nil {
				return err
			}
		}
	}
	return nil
}

// AccessPoint builds the access point config from the ap-* keys.
func (c Config) AccessPoint() (wifi.APConfig, error) {
	cfg := wifi.APConfig{SSID: c.APSSID, Password: c.APPassword}
	for _, f := range []struct {
		name  string
		value string
		into  *netip.Addr
	}{
		{"ap-address", c.APAddress, &cfg.Address},
		{"ap-gateway", c.APGateway, &cfg.Gateway},
		{"ap-netmask", c.APNetmask, &cfg.Netmask},
	} {
		addr, err := netip.ParseAddr(f.value)
		if err != nil {
			return wifi.APConfig{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.into = addr
	}
	return cfg, cfg.Validate()
}

// Validate rejects configs the gateway cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.AttemptTimeout <= 0 {
		errs = append(errs, fmt.Errorf("attempt-timeout must be positive, got %s", c.AttemptTimeout))
	}
	if c.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("max-attempts must be positive, got %d", c.MaxAttempts))
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("connect-timeout must be positive, got %s", c.ConnectTimeout))
	}
	if c.Tick <= 0 {
		errs = append(errs, fmt.Errorf("tick must be positive, got %s", c.Tick))
	}
	switch c.Storage {
	case storageBolt:
		if c.DataDir == "" {
			errs = append(errs, errors.New("data-dir is required for bolt storage"))
		}
	case storageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.Storage))
	}
	if c.Namespace == "" {
		errs = append(errs, errors.New("namespace is empty"))
	}
	if _, err := c.AccessPoint(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
