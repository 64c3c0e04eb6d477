// Package validation holds input checks shared by the config loader and the
// command line.
package validation

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

var (
	// IFNAMSIZ is 16 including the terminating NUL.
	interfaceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,15}$`)

	// "ip netns add" names become files under /var/run/netns.
	namespaceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,255}$`)
)

// ValidateInterfaceName validates a kernel network interface name.
func ValidateInterfaceName(name string) error {
	if name == "" {
		return fmt.Errorf("interface name cannot be empty")
	}
	if len(name) > 15 {
		return fmt.Errorf("interface name too long (max 15 characters): %q", name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid interface name: %q", name)
	}
	if !interfaceNameRegex.MatchString(name) {
		return fmt.Errorf("invalid interface name: %q (must be alphanumeric with -_.)", name)
	}
	return nil
}

// ValidateNamespaceName validates a named network namespace.
func ValidateNamespaceName(name string) error {
	if name == "" {
		return fmt.Errorf("namespace name cannot be empty")
	}
	if name == "." || name == ".." || strings.Contains(name, "/") {
		return fmt.Errorf("invalid namespace name: %q", name)
	}
	if !namespaceNameRegex.MatchString(name) {
		return fmt.Errorf("invalid namespace name: %q (must be alphanumeric with -_.)", name)
	}
	return nil
}

// ValidateAllowlist checks if a value is in an allowed list.
func ValidateAllowlist(value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%q is not one of: %s", value, strings.Join(allowed, ", "))
}

// ValidatePortNumber validates a TCP/UDP port number.
func ValidatePortNumber(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be 1-65535)", port)
	}
	return nil
}

// ValidateListenAddress validates a "host:port" listen address. The host may
// be empty to listen on all addresses; port 0 is rejected.
func ValidateListenAddress(addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if host != "" && host != "localhost" && net.ParseIP(host) == nil {
		return fmt.Errorf("invalid listen address %q: host must be an IP address", addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: port is not a number", addr)
	}
	return ValidatePortNumber(port)
}
