// Package link controls the administrative state of the watched interface.
package link

import (
	"errors"
	"fmt"
	"time"

	"grimm.is/qdiscwatch/internal/clock"
	"grimm.is/qdiscwatch/internal/logging"
	"grimm.is/qdiscwatch/internal/network"

	"golang.org/x/sys/unix"
)

// DefaultSettleDelay is how long SetAdminState waits after every toggle.
const DefaultSettleDelay = 5 * time.Second

// ErrControl wraps every failure to read or write interface flags.
var ErrControl = errors.New("interface control failed")

// Controller brings one interface administratively up or down.
type Controller struct {
	nl     network.Netlinker
	iface  string
	clock  clock.Clock
	settle time.Duration
	logger *logging.Logger
}

// NewController creates a controller for iface.
func NewController(nl network.Netlinker, iface string, clk clock.Clock, settle time.Duration, logger *logging.Logger) *Controller {
	if clk == nil {
		clk = &clock.RealClock{}
	}
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	return &Controller{
		nl:     nl,
		iface:  iface,
		clock:  clk,
		settle: settle,
		logger: logger.WithComponent("link"),
	}
}

// SetAdminState reads the interface flags, changes only IFF_UP and applies
// the result. It then sleeps for the settle delay whether or not the change
// succeeded. Setting the state it already has repeats the full sequence.
// There is no internal retry.
func (c *Controller) SetAdminState(up bool) error {
	defer c.clock.Sleep(c.settle)

	link, err := c.nl.LinkByName(c.iface)
	if err != nil {
		return fmt.Errorf("%w: failed to read flags of %s: %w", ErrControl, c.iface, err)
	}

	flags := link.Attrs().RawFlags
	want := flags &^ uint32(unix.IFF_UP)
	if up {
		want = flags | uint32(unix.IFF_UP)
	}
	c.logger.Debug("Setting admin state",
		"interface", c.iface,
		"up", up,
		"flags", fmt.Sprintf("%#x", flags),
		"new_flags", fmt.Sprintf("%#x", want))

	if up {
		err = c.nl.LinkSetUp(link)
	} else {
		err = c.nl.LinkSetDown(link)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to set %s %s: %w", ErrControl, c.iface, stateName(up), err)
	}
	return nil
}

// IsUp reports whether IFF_UP is currently set.
func (c *Controller) IsUp() (bool, error) {
	link, err := c.nl.LinkByName(c.iface)
	if err != nil {
		return false, fmt.Errorf("%w: failed to read flags of %s: %w", ErrControl, c.iface, err)
	}
	return link.Attrs().RawFlags&uint32(unix.IFF_UP) != 0, nil
}

func stateName(up bool) string {
	if up {
		return "up"
	}
	return "down"
}
