package connectivity

import (
	"fmt"
	"log/slog"

	"github.com/hidraeco/gatewayd/wifi"
)

// State is the derived connectivity state of the gateway.
type State int

const (
	StateOff State = iota
	StateStationOnly
	StateAccessPointOnly
	StateStationAndAccessPoint
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "OFF"
	case StateStationOnly:
		return "STA"
	case StateAccessPointOnly:
		return "AP"
	case StateStationAndAccessPoint:
		return "AP+STA"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mode is the radio mode that realizes s.
func (s State) Mode() wifi.Mode {
	switch s {
	case StateStationOnly:
		return wifi.ModeStation
	case StateAccessPointOnly:
		return wifi.ModeAccessPoint
	case StateStationAndAccessPoint:
		return wifi.ModeStationAndAccessPoint
	default:
		return wifi.ModeOff
	}
}

// Decide maps the independent station and access point desires onto a state.
func Decide(stationDesired bool, apDesired bool) State {
	switch {
	case stationDesired && apDesired:
		return StateStationAndAccessPoint
	case stationDesired:
		return StateStationOnly
	case apDesired:
		return StateAccessPointOnly
	default:
		return StateOff
	}
}

// arbiter holds the desire flags and applies the decided mode to the radio,
// issuing one mode command per actual state change.
type arbiter struct {
	radio    wifi.Radio
	log      *slog.Logger
	observer Observer

	stationDesired bool
	apDesired      bool
	current        State
}

func newArbiter(radio wifi.Radio, log *slog.Logger, observer Observer) *arbiter {
	return &arbiter{
		radio:    radio,
		log:      log,
		observer: observer,
		current:  StateOff,
	}
}

func (a *arbiter) State() State {
	return a.current
}

func (a *arbiter) SetStation(desired bool) State {
	a.stationDesired = desired
	return a.apply()
}

func (a *arbiter) SetAccessPoint(desired bool) State {
	a.apDesired = desired
	return a.apply()
}

func (a *arbiter) apply() State {
	next := Decide(a.stationDesired, a.apDesired)
	if next == a.current {
		return next
	}

	prev := a.current
	// Mode commands are assumed to apply; a failure is only logged.
	if err := a.radio.SetMode(next.Mode()); err != nil {
		a.log.Warn("radio rejected mode change", "mode", next.Mode(), "error", err)
	}
	a.current = next
	a.log.Info("mode changed", "from", prev, "to", next)
	a.observer.ModeChanged(prev, next)
	return next
}
