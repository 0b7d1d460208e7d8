package connectivity

import (
	"fmt"
	"log/slog"

	"github.com/hidraeco/gatewayd/wifi"
)

// APStatus reports the local access point.
type APStatus struct {
	Active   bool   `json:"active"`
	SSID     string `json:"ssid"`
	Password string `json:"password"`
	IP       string `json:"ip"`
}

// AccessPointController starts and stops local access point operation.
type AccessPointController struct {
	radio   wifi.Radio
	arbiter *arbiter
	log     *slog.Logger

	cfg    wifi.APConfig
	active bool
}

func newAccessPointController(radio wifi.Radio, a *arbiter, log *slog.Logger, cfg wifi.APConfig) *AccessPointController {
	return &AccessPointController{
		radio:   radio,
		arbiter: a,
		log:     log,
		cfg:     cfg,
	}
}

// Start brings the access point up with cfg. It is a no-op when already
// active with an identical config; a different config restarts the access
// point because radios cannot swap addressing in place.
func (c *AccessPointController) Start(cfg wifi.APConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if c.active {
		if c.cfg.Equal(cfg) {
			return nil
		}
		c.log.Info("restarting access point with new config", "ssid", cfg.SSID, "ip", cfg.Address)
		if err := c.radio.StopAccessPoint(); err != nil {
			return fmt.Errorf("could not stop access point: %w", err)
		}
		if err := c.radio.StartAccessPoint(cfg); err != nil {
			c.active = false
			c.arbiter.SetAccessPoint(false)
			return fmt.Errorf("could not restart access point: %w", err)
		}
		c.cfg = cfg
		return nil
	}

	c.arbiter.SetAccessPoint(true)
	if err := c.radio.StartAccessPoint(cfg); err != nil {
		c.arbiter.SetAccessPoint(false)
		return fmt.Errorf("could not start access point: %w", err)
	}
	c.cfg = cfg
	c.active = true
	c.log.Info("access point started", "ssid", cfg.SSID, "ip", cfg.Address)
	return nil
}

// Stop tears the access point down. The access point is considered down
// even when the radio reports an error.
func (c *AccessPointController) Stop() error {
	var err error
	if c.active {
		if stopErr := c.radio.StopAccessPoint(); stopErr != nil {
			err = fmt.Errorf("could not stop access point: %w", stopErr)
		}
	}
	c.active = false
	c.arbiter.SetAccessPoint(false)
	c.log.Info("access point stopped")
	return err
}

// Active reports whether the access point is up.
func (c *AccessPointController) Active() bool {
	return c.active
}

// Config returns the current, or next, access point config.
func (c *AccessPointController) Config() wifi.APConfig {
	return c.cfg
}

// SetConfig replaces the config. A running access point is restarted with it.
func (c *AccessPointController) SetConfig(cfg wifi.APConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if c.active {
		return c.Start(cfg)
	}
	c.cfg = cfg
	return nil
}

// Status reports the access point for the web layer.
func (c *AccessPointController) Status() APStatus {
	return APStatus{
		Active:   c.active,
		SSID:     c.cfg.SSID,
		Password: c.cfg.Password,
		IP:       c.cfg.Address.String(),
	}
}
