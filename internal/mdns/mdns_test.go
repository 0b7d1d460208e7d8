package mdns

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	instance string
	port     int
	down     bool
}

func (s *fakeServer) Shutdown() { s.down = true }

func newTestAnnouncer(servers *[]*fakeServer, err error) *Announcer {
	a := New(8080, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.register = func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (server, error) {
		if err != nil {
			return nil, err
		}
		s := &fakeServer{instance: instance, port: port}
		*servers = append(*servers, s)
		return s, nil
	}
	return a
}

func TestAnnounceReplacesRegistration(t *testing.T) {
	var servers []*fakeServer
	a := newTestAnnouncer(&servers, nil)

	require.NoError(t, a.Announce("hidra"))
	require.NoError(t, a.Announce("bench"))

	require.Len(t, servers, 2)
	assert.True(t, servers[0].down)
	assert.False(t, servers[1].down)
	assert.Equal(t, "bench", servers[1].instance)
	assert.Equal(t, 8080, servers[1].port)

	a.Shutdown()
	a.Shutdown()
	assert.True(t, servers[1].down)
}

func TestAnnounceError(t *testing.T) {
	var servers []*fakeServer
	a := newTestAnnouncer(&servers, errors.New("no multicast interface"))

	assert.ErrorContains(t, a.Announce("hidra"), "no multicast interface")
	a.Shutdown()
}

func TestPortFromAddr(t *testing.T) {
	port, err := PortFromAddr(":80")
	require.NoError(t, err)
	assert.Equal(t, 80, port)

	port, err = PortFromAddr("0.0.0.0:8080")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	_, err = PortFromAddr("localhost")
	assert.Error(t, err)
}
