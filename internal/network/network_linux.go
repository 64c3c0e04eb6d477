//go:build linux

package network

import (
	"fmt"
	"runtime"

	"github.com/safchain/ethtool"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// Handle is the process's netlink connection, bound to one interface.
type Handle struct {
	nl        *netlink.Handle
	ns        netns.NsHandle
	iface     string
	namespace string
}

// Open creates a netlink handle for iface. If namespace is non-empty the
// handle operates inside that named network namespace (as created by
// "ip netns add"). The interface must exist at open time.
func Open(iface, namespace string) (*Handle, error) {
	h := &Handle{iface: iface, namespace: namespace, ns: netns.None()}

	var err error
	if namespace != "" {
		h.ns, err = netns.GetFromName(namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to open netns %s: %w", namespace, err)
		}
		h.nl, err = netlink.NewHandleAt(h.ns)
	} else {
		h.nl, err = netlink.NewHandle()
	}
	if err != nil {
		h.closeNS()
		return nil, fmt.Errorf("failed to open netlink socket: %w", err)
	}

	if _, err := h.nl.LinkByName(iface); err != nil {
		h.Close()
		return nil, fmt.Errorf("interface %s not found: %w", iface, err)
	}
	return h, nil
}

// Name returns the interface this handle is bound to.
func (h *Handle) Name() string {
	return h.iface
}

// Namespace returns the netns name, or "" for the current namespace.
func (h *Handle) Namespace() string {
	return h.namespace
}

// LinkByName retrieves a link by name.
func (h *Handle) LinkByName(name string) (netlink.Link, error) {
	return h.nl.LinkByName(name)
}

// LinkSetUp sets IFF_UP on the link. The request's change mask covers only
// IFF_UP, so the kernel leaves every other flag as it is.
func (h *Handle) LinkSetUp(link netlink.Link) error {
	return h.nl.LinkSetUp(link)
}

// LinkSetDown clears IFF_UP on the link, leaving other flags untouched.
func (h *Handle) LinkSetDown(link netlink.Link) error {
	return h.nl.LinkSetDown(link)
}

// QdiscList dumps the link's qdiscs, including TCA_STATS2 statistics.
func (h *Handle) QdiscList(link netlink.Link) ([]netlink.Qdisc, error) {
	return h.nl.QdiscList(link)
}

// DriverInfo returns ethtool driver information for the bound interface.
func (h *Handle) DriverInfo() (*Driver, error) {
	var drv *Driver
	err := h.inNamespace(func() error {
		et, err := ethtool.NewEthtool()
		if err != nil {
			return fmt.Errorf("failed to open ethtool handle: %w", err)
		}
		defer et.Close()

		info, err := et.DriverInfo(h.iface)
		if err != nil {
			return fmt.Errorf("ethtool DriverInfo failed for %s: %w", h.iface, err)
		}
		drv = &Driver{
			Driver:   info.Driver,
			Version:  info.Version,
			Firmware: info.FwVersion,
			BusInfo:  info.BusInfo,
		}
		return nil
	})
	return drv, err
}

// inNamespace runs fn with the calling OS thread switched into the handle's
// namespace. ethtool opens its own socket, which lands in whatever namespace
// the thread is in.
func (h *Handle) inNamespace(fn func() error) error {
	if !h.ns.IsOpen() {
		return fn()
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origns, err := netns.Get()
	if err != nil {
		return fmt.Errorf("failed to get original netns: %w", err)
	}
	defer origns.Close()

	if err := netns.Set(h.ns); err != nil {
		return fmt.Errorf("failed to enter netns %s: %w", h.namespace, err)
	}
	defer netns.Set(origns)

	return fn()
}

// Close releases the netlink socket and namespace handle.
func (h *Handle) Close() {
	if h.nl != nil {
		h.nl.Close()
	}
	h.closeNS()
}

func (h *Handle) closeNS() {
	if h.ns.IsOpen() {
		h.ns.Close()
		h.ns = netns.None()
	}
}
