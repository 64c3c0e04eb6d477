//go:build !linux

package network

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// Handle is a stub; qdisc statistics are only available on Linux.
type Handle struct {
	iface     string
	namespace string
}

// Open always fails on non-Linux platforms.
func Open(iface, namespace string) (*Handle, error) {
	return nil, fmt.Errorf("netlink not supported on this platform")
}

func (h *Handle) Name() string      { return h.iface }
func (h *Handle) Namespace() string { return h.namespace }

func (h *Handle) LinkByName(name string) (netlink.Link, error) {
	return nil, fmt.Errorf("LinkByName not supported on this platform")
}

func (h *Handle) LinkSetUp(link netlink.Link) error {
	return fmt.Errorf("LinkSetUp not supported on this platform")
}

func (h *Handle) LinkSetDown(link netlink.Link) error {
	return fmt.Errorf("LinkSetDown not supported on this platform")
}

func (h *Handle) QdiscList(link netlink.Link) ([]netlink.Qdisc, error) {
	return nil, fmt.Errorf("QdiscList not supported on this platform")
}

func (h *Handle) DriverInfo() (*Driver, error) {
	return nil, fmt.Errorf("ethtool not supported on this platform")
}

func (h *Handle) Close() {}
