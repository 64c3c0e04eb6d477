package link

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"grimm.is/qdiscwatch/internal/clock"
	"grimm.is/qdiscwatch/internal/logging"
	"grimm.is/qdiscwatch/internal/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

func newTestController(t *testing.T, nl network.Netlinker) (*Controller, *clock.MockClock) {
	t.Helper()
	clk := clock.NewMockClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Output: &buf})
	return NewController(nl, "eth0", clk, DefaultSettleDelay, logger), clk
}

func linkWithFlags(flags uint32) *netlink.Device {
	return &netlink.Device{LinkAttrs: netlink.LinkAttrs{Name: "eth0", Index: 2, RawFlags: flags}}
}

func TestSetAdminState_Up(t *testing.T) {
	nl := new(network.MockNetlinker)
	c, clk := newTestController(t, nl)

	l := linkWithFlags(unix.IFF_BROADCAST | unix.IFF_MULTICAST)
	nl.On("LinkByName", "eth0").Return(l, nil)
	nl.On("LinkSetUp", l).Return(nil)

	require.NoError(t, c.SetAdminState(true))
	nl.AssertExpectations(t)
	nl.AssertNotCalled(t, "LinkSetDown", l)
	assert.Equal(t, []time.Duration{DefaultSettleDelay}, clk.Sleeps())
}

func TestSetAdminState_Down(t *testing.T) {
	nl := new(network.MockNetlinker)
	c, _ := newTestController(t, nl)

	l := linkWithFlags(unix.IFF_UP | unix.IFF_RUNNING)
	nl.On("LinkByName", "eth0").Return(l, nil)
	nl.On("LinkSetDown", l).Return(nil)

	require.NoError(t, c.SetAdminState(false))
	nl.AssertExpectations(t)
}

func TestSetAdminState_Idempotent(t *testing.T) {
	nl := new(network.MockNetlinker)
	c, clk := newTestController(t, nl)

	l := linkWithFlags(unix.IFF_UP)
	nl.On("LinkByName", "eth0").Return(l, nil)
	nl.On("LinkSetUp", l).Return(nil)

	require.NoError(t, c.SetAdminState(true))
	require.NoError(t, c.SetAdminState(true))

	nl.AssertNumberOfCalls(t, "LinkByName", 2)
	nl.AssertNumberOfCalls(t, "LinkSetUp", 2)
	assert.Len(t, clk.Sleeps(), 2)
}

func TestSetAdminState_ReadFailureStillSettles(t *testing.T) {
	nl := new(network.MockNetlinker)
	c, clk := newTestController(t, nl)

	nl.On("LinkByName", "eth0").Return(nil, errors.New("no such device"))

	err := c.SetAdminState(false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrControl)
	assert.Contains(t, err.Error(), "no such device")
	assert.Equal(t, []time.Duration{DefaultSettleDelay}, clk.Sleeps())
}

func TestSetAdminState_WriteFailure(t *testing.T) {
	nl := new(network.MockNetlinker)
	c, clk := newTestController(t, nl)

	l := linkWithFlags(0)
	nl.On("LinkByName", "eth0").Return(l, nil)
	nl.On("LinkSetUp", l).Return(errors.New("operation not permitted"))

	err := c.SetAdminState(true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrControl)
	assert.Contains(t, err.Error(), "operation not permitted")
	assert.Len(t, clk.Sleeps(), 1)
}

func TestIsUp(t *testing.T) {
	nl := new(network.MockNetlinker)
	c, _ := newTestController(t, nl)

	nl.On("LinkByName", "eth0").Return(linkWithFlags(unix.IFF_UP|unix.IFF_LOWER_UP), nil).Once()
	nl.On("LinkByName", "eth0").Return(linkWithFlags(unix.IFF_BROADCAST), nil).Once()

	up, err := c.IsUp()
	require.NoError(t, err)
	assert.True(t, up)

	up, err = c.IsUp()
	require.NoError(t, err)
	assert.False(t, up)
}

func TestForever_RetriesUntilSuccess(t *testing.T) {
	clk := clock.NewMockClock(time.Unix(0, 0))
	const failures = 4

	var failed []int
	attempts := Forever(clk, time.Second, func(attempt int) error {
		if attempt <= failures {
			return errors.New("device busy")
		}
		return nil
	}, func(attempt int, err error) {
		failed = append(failed, attempt)
	})

	assert.Equal(t, failures+1, attempts)
	assert.Equal(t, []int{1, 2, 3, 4}, failed)
	assert.Len(t, clk.Sleeps(), failures, "backoff only between failed attempts")
}

func TestForever_FirstTry(t *testing.T) {
	clk := clock.NewMockClock(time.Unix(0, 0))
	attempts := Forever(clk, time.Second, func(int) error { return nil }, nil)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, clk.Sleeps())
}
