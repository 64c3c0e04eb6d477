package testutil

import (
	"os"
	"testing"
)

// RequireVM skips the test unless QDISCWATCH_VM_TEST is set. Tests that open
// real netlink sockets, read qdisc statistics or toggle links belong behind
// this gate.
func RequireVM(t *testing.T) {
	t.Helper()
	if os.Getenv("QDISCWATCH_VM_TEST") == "" {
		t.Skip("Skipping test: requires QDISCWATCH_VM_TEST environment")
	}
}

// RequireRoot skips the test unless it runs with effective UID 0.
func RequireRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() != 0 {
		t.Skip("Skipping test: requires root")
	}
}
