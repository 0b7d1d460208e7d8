// Package mdns advertises the gateway web interface over multicast DNS.
package mdns

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/grandcat/zeroconf"
)

const (
	Service = "_http._tcp"
	Domain  = "local."
)

type server interface {
	Shutdown()
}

type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (server, error)

func zeroconfRegister(instance, service, domain string, port int, text []string, ifaces []net.Interface) (server, error) {
	return zeroconf.Register(instance, service, domain, port, text, ifaces)
}

// Announcer publishes one HTTP service instance named after the hostname.
type Announcer struct {
	Port int
	Log  *slog.Logger

	register registerFunc

	mu     sync.Mutex
	server server
}

// New creates an Announcer for a web server listening on port.
func New(port int, log *slog.Logger) *Announcer {
	if log == nil {
		log = slog.Default()
	}
	return &Announcer{Port: port, Log: log, register: zeroconfRegister}
}

// PortFromAddr extracts the port of a listen address such as ":80".
func PortFromAddr(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", p, err)
	}
	return port, nil
}

// Announce registers hostname, replacing any earlier registration.
func (a *Announcer) Announce(hostname string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	srv, err := a.register(hostname, Service, Domain, a.Port, []string{"path=/"}, nil)
	if err != nil {
		return fmt.Errorf("could not register %s%s: %w", hostname, Service, err)
	}
	a.server = srv
	a.Log.Debug("published service", "instance", hostname, "service", Service, "port", a.Port)
	return nil
}

// Shutdown withdraws the registration, if any.
func (a *Announcer) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	a.Log.Debug("withdrew service", "service", Service)
}
