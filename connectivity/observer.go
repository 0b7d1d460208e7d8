package connectivity

// Observer receives connectivity events, typically to export metrics.
// Implementations must not block.
type Observer interface {
	ModeChanged(from State, to State)
	AttemptTimedOut(attempt uint)
	Connected(kind AttemptKind)
	ConnectFailed(kind AttemptKind)
	Scanned(count int, err error)
}

// Announcer registers the gateway with local service discovery once the
// station link is up.
type Announcer interface {
	Announce(hostname string) error
	Shutdown()
}

type nopObserver struct{}

func (nopObserver) ModeChanged(State, State) {}
func (nopObserver) AttemptTimedOut(uint) {}
func (nopObserver) Connected(AttemptKind) {}
func (nopObserver) ConnectFailed(AttemptKind) {}
func (nopObserver) Scanned(int, error) {}

type nopAnnouncer struct{}

func (nopAnnouncer) Announce(string) error { return nil }
func (nopAnnouncer) Shutdown() {}
