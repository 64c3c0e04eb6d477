package network

import (
	"sync"

	"github.com/vishvananda/netlink"
)

// DryRunNetlinker reads through the wrapped Netlinker but only records
// admin state changes, as the equivalent "ip link set" commands.
type DryRunNetlinker struct {
	Netlinker

	mu  sync.Mutex
	ops []string
}

// NewDryRunNetlinker wraps nl.
func NewDryRunNetlinker(nl Netlinker) *DryRunNetlinker {
	return &DryRunNetlinker{Netlinker: nl}
}

func (n *DryRunNetlinker) record(link netlink.Link, state string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ops = append(n.ops, "ip link set "+link.Attrs().Name+" "+state)
}

func (n *DryRunNetlinker) LinkSetUp(link netlink.Link) error {
	n.record(link, "up")
	return nil
}

func (n *DryRunNetlinker) LinkSetDown(link netlink.Link) error {
	n.record(link, "down")
	return nil
}

// Recorded returns the state changes that would have been applied.
func (n *DryRunNetlinker) Recorded() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.ops...)
}
