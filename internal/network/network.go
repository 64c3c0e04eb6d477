package network

import (
	"github.com/vishvananda/netlink"
)

// Netlinker is an interface that abstracts netlink interactions.
// This allows for mocking netlink calls during unit testing.
type Netlinker interface {
	LinkByName(name string) (netlink.Link, error)
	LinkSetUp(link netlink.Link) error
	LinkSetDown(link netlink.Link) error
	QdiscList(link netlink.Link) ([]netlink.Qdisc, error)
}

// Driver contains NIC driver metadata from ethtool.
type Driver struct {
	Driver   string
	Version  string
	Firmware string
	BusInfo  string
}
