// Package network owns the process's single kernel handle for the watched
// interface.
//
// # Overview
//
// A [Handle] is opened once at startup, bound to one interface name and
// (optionally) one named network namespace. It implements [Netlinker], the
// narrow slice of the netlink API the watchdog uses: link lookup, admin
// up/down and qdisc listing. Every call goes to the kernel; nothing is cached
// between calls, so qdisc statistics are always current.
//
// # Testing
//
// [MockNetlinker] is a testify mock of [Netlinker]. [DryRunNetlinker] wraps
// a real Netlinker, passes reads through and records (without applying)
// admin state changes.
package network
