package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"grimm.is/qdiscwatch/internal/brand"
	"grimm.is/qdiscwatch/internal/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

type fakeHandle struct {
	*network.MockNetlinker
	name      string
	namespace string
	closed    bool
}

func (h *fakeHandle) Name() string      { return h.name }
func (h *fakeHandle) Namespace() string { return h.namespace }

func (h *fakeHandle) DriverInfo() (*network.Driver, error) {
	return &network.Driver{Driver: "virtio_net", Version: "1.0.0", BusInfo: "0000:00:03.0"}, nil
}

func (h *fakeHandle) Close() { h.closed = true }

func newFakeHandle(name string, qlen uint32) *fakeHandle {
	nl := new(network.MockNetlinker)
	l := &netlink.Device{LinkAttrs: netlink.LinkAttrs{Name: name, Index: 3, RawFlags: unix.IFF_UP}}
	nl.On("LinkByName", name).Return(l, nil)
	nl.On("QdiscList", l).Return([]netlink.Qdisc{
		&netlink.GenericQdisc{
			QdiscAttrs: netlink.QdiscAttrs{
				LinkIndex: 3,
				Parent:    netlink.HANDLE_ROOT,
				Handle:    netlink.MakeHandle(0x8001, 0),
				Statistics: &netlink.QdiscStatistics{
					Queue: &netlink.GnetStatsQueue{Qlen: qlen, Backlog: 4096, Drops: 2},
				},
			},
			QdiscType: "mq",
		},
	}, nil)
	return &fakeHandle{MockNetlinker: nl, name: name}
}

// withHooks swaps the privilege and handle hooks for the duration of t.
func withHooks(t *testing.T, euid int, open func(iface, namespace string) (linkHandle, error)) {
	t.Helper()
	origEUID, origOpen := geteuid, openHandle
	geteuid = func() int { return euid }
	openHandle = open
	t.Cleanup(func() {
		geteuid, openHandle = origEUID, origOpen
	})
	t.Setenv("QDISCWATCH_CONFIG_DIR", t.TempDir())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qdiscwatch.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want options
	}{
		{"no args is a live run", nil, options{}},
		{"any positional argument is a dry run", []string{"dry-run"}, options{dryRun: true}},
		{"the word does not matter", []string{"whatever"}, options{dryRun: true}},
		{"flags do not select dry run", []string{"-interface", "wan0", "-log-level", "debug"}, options{iface: "wan0", logLevel: "debug"}},
		{"explicit json", []string{"-json=false", "x"}, options{jsonSet: true, dryRun: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("QDISCWATCH_CONFIG_DIR", "/nonexistent")
			got, err := parseFlags(tt.args, &bytes.Buffer{})
			require.NoError(t, err)
			got.configPath = ""
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFlags_ConfigSet(t *testing.T) {
	o, err := parseFlags([]string{"-config", "/tmp/x.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, o.configSet)
	assert.Equal(t, "/tmp/x.hcl", o.configPath)
}

func TestMain_Version(t *testing.T) {
	var stdout bytes.Buffer
	assert.Equal(t, 0, Main([]string{"-version"}, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), brand.Name)
}

func TestMain_Help(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 0, Main([]string{"-h"}, &bytes.Buffer{}, &stderr))
	assert.Contains(t, stderr.String(), "[dry-run]")
}

func TestMain_BadFlag(t *testing.T) {
	assert.Equal(t, 1, Main([]string{"-no-such-flag"}, &bytes.Buffer{}, &bytes.Buffer{}))
}

func TestMain_RequiresRoot(t *testing.T) {
	withHooks(t, 1000, func(string, string) (linkHandle, error) {
		t.Fatal("handle must not be opened when unprivileged")
		return nil, nil
	})

	var stderr bytes.Buffer
	code := Main(nil, &bytes.Buffer{}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), ErrNotPrivileged.Error())
}

func TestMain_ExplicitConfigMustExist(t *testing.T) {
	withHooks(t, 0, nil)

	var stderr bytes.Buffer
	code := Main([]string{"-config", filepath.Join(t.TempDir(), "missing.hcl"), "dry-run"}, &bytes.Buffer{}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "failed to load config")
}

func TestMain_InvalidConfig(t *testing.T) {
	withHooks(t, 0, nil)
	path := writeConfig(t, `required_count = -1`)

	var stderr bytes.Buffer
	assert.Equal(t, 1, Main([]string{"-config", path, "dry-run"}, &bytes.Buffer{}, &stderr))
	assert.Contains(t, stderr.String(), "required_count")
}

func TestMain_InvalidLogLevel(t *testing.T) {
	withHooks(t, 0, nil)

	var stderr bytes.Buffer
	assert.Equal(t, 1, Main([]string{"-log-level", "loud", "dry-run"}, &bytes.Buffer{}, &stderr))
	assert.Contains(t, stderr.String(), "loud")
}

func TestMain_HandleFailure(t *testing.T) {
	withHooks(t, 0, func(iface, namespace string) (linkHandle, error) {
		return nil, errors.New("interface eth0 not found: Link not found")
	})

	var stderr bytes.Buffer
	assert.Equal(t, 1, Main([]string{"dry-run"}, &bytes.Buffer{}, &stderr))
	assert.Contains(t, stderr.String(), "Link not found")
}

func TestMain_DryRun(t *testing.T) {
	h := newFakeHandle("wan0", 12000)
	var opened []string
	withHooks(t, 1000, func(iface, namespace string) (linkHandle, error) {
		opened = append(opened, iface+"@"+namespace)
		h.namespace = namespace
		return h, nil
	})
	path := writeConfig(t, `
interface      = "eth0"
namespace      = "edge"
high_watermark = 9216

logging {
  level = "debug"
}
`)

	t.Setenv("LC_ALL", "")
	t.Setenv("LC_NUMERIC", "")
	t.Setenv("LANG", "en_US.UTF-8")

	var stdout, stderr bytes.Buffer
	code := Main([]string{"-config", path, "-interface", "wan0", "dry-run"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.Equal(t, []string{"wan0@edge"}, opened)
	assert.True(t, h.closed)
	h.AssertNotCalled(t, "LinkSetUp", mock.Anything)
	h.AssertNotCalled(t, "LinkSetDown", mock.Anything)
	h.AssertNumberOfCalls(t, "QdiscList", 1)

	out := stdout.String()
	assert.Regexp(t, `interface\s+= "wan0"`, out)
	assert.Regexp(t, `admin state\s+up`, out)
	assert.Regexp(t, `qlen\s+12,000`, out)
	assert.Regexp(t, `high\s+true \(watermark 9,216\)`, out)
	assert.Contains(t, stderr.String(), "driver=virtio_net")
	assert.Contains(t, stderr.String(), "namespace=edge")
}

func TestMain_DryRunSampleError(t *testing.T) {
	nl := new(network.MockNetlinker)
	nl.On("LinkByName", "eth0").Return(nil, errors.New("Link not found"))
	withHooks(t, 0, func(iface, namespace string) (linkHandle, error) {
		return &fakeHandle{MockNetlinker: nl, name: iface}, nil
	})

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, Main([]string{"dry-run"}, &stdout, &stderr))
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "dry run")
}
