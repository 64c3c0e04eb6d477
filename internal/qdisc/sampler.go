// Package qdisc reads the backlog of an interface's root queueing discipline.
package qdisc

import (
	"errors"
	"fmt"
	"time"

	"grimm.is/qdiscwatch/internal/clock"
	"grimm.is/qdiscwatch/internal/network"

	"github.com/vishvananda/netlink"
)

var (
	// ErrSample wraps every failure to obtain a reading. Callers treat it as
	// transient.
	ErrSample = errors.New("qdisc sample failed")

	// ErrNoRootQdisc means the interface has no qdisc attached at the root.
	ErrNoRootQdisc = errors.New("no root qdisc")

	// ErrNoStats means the kernel did not report TCA_STATS2 for the root qdisc.
	ErrNoStats = errors.New("root qdisc reported no queue statistics")
)

// Sample is one reading of the root qdisc's queue statistics.
type Sample struct {
	Interface  string
	Kind       string
	Handle     string
	Qlen       uint32 // packets
	Backlog    uint32 // bytes
	Drops      uint32
	Requeues   uint32
	Overlimits uint32
	Time       time.Time
}

// Sampler reads the root qdisc backlog of one interface.
type Sampler struct {
	nl    network.Netlinker
	iface string
	clock clock.Clock
}

// NewSampler creates a sampler for iface. A nil clock uses the real clock.
func NewSampler(nl network.Netlinker, iface string, clk clock.Clock) *Sampler {
	if clk == nil {
		clk = &clock.RealClock{}
	}
	return &Sampler{
		nl:    nl,
		iface: iface,
		clock: clk,
	}
}

// Sample refreshes the link and its qdisc list from the kernel and returns
// the root qdisc's queue statistics. Nothing is cached between calls.
func (s *Sampler) Sample() (Sample, error) {
	link, err := s.nl.LinkByName(s.iface)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: interface %s not found: %w", ErrSample, s.iface, err)
	}

	qdiscs, err := s.nl.QdiscList(link)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: failed to list qdiscs on %s: %w", ErrSample, s.iface, err)
	}

	root := findRoot(qdiscs)
	if root == nil {
		return Sample{}, fmt.Errorf("%w: %s: %w", ErrSample, s.iface, ErrNoRootQdisc)
	}

	attrs := root.Attrs()
	if attrs.Statistics == nil || attrs.Statistics.Queue == nil {
		return Sample{}, fmt.Errorf("%w: %s %s: %w", ErrSample, s.iface, root.Type(), ErrNoStats)
	}

	// Multiqueue roots (mq, mqprio) already fold their children's queues
	// into the root's qlen.
	q := attrs.Statistics.Queue
	return Sample{
		Interface:  s.iface,
		Kind:       root.Type(),
		Handle:     netlink.HandleStr(attrs.Handle),
		Qlen:       q.Qlen,
		Backlog:    q.Backlog,
		Drops:      q.Drops,
		Requeues:   q.Requeues,
		Overlimits: q.Overlimits,
		Time:       s.clock.Now(),
	}, nil
}

func findRoot(qdiscs []netlink.Qdisc) netlink.Qdisc {
	for _, q := range qdiscs {
		if q.Attrs().Parent == netlink.HANDLE_ROOT {
			return q
		}
	}
	return nil
}
