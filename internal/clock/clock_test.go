package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

var (
	_ Clock = RealClock{}
	_ Clock = (*MockClock)(nil)
)

func TestRealClock(t *testing.T) {
	var c RealClock
	before := time.Now()
	now := c.Now()
	assert.False(t, now.Before(before))
	assert.InDelta(t, float64(time.Hour), float64(c.Since(now.Add(-time.Hour))), float64(time.Second))
}

func TestMockClock(t *testing.T) {
	tests := []struct {
		name       string
		sleeps     []time.Duration
		advance    time.Duration
		wantNow    time.Time
		wantSlept  time.Duration
		wantSleeps int
	}{
		{
			name:    "untouched",
			wantNow: epoch,
		},
		{
			name:       "quiescence then poll",
			sleeps:     []time.Duration{3 * time.Hour, time.Minute},
			wantNow:    epoch.Add(3*time.Hour + time.Minute),
			wantSlept:  3*time.Hour + time.Minute,
			wantSleeps: 2,
		},
		{
			name:       "advance is not a sleep",
			sleeps:     []time.Duration{5 * time.Second},
			advance:    time.Hour,
			wantNow:    epoch.Add(time.Hour + 5*time.Second),
			wantSlept:  5 * time.Second,
			wantSleeps: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMockClock(epoch)
			hooked := 0
			c.OnSleep = func(time.Duration) { hooked++ }

			for _, d := range tt.sleeps {
				c.Sleep(d)
			}
			c.Advance(tt.advance)

			assert.Equal(t, tt.wantNow, c.Now())
			assert.Equal(t, tt.wantSlept, c.Slept())
			assert.Len(t, c.Sleeps(), tt.wantSleeps)
			assert.Equal(t, tt.wantSleeps, hooked)
			assert.Equal(t, tt.wantNow.Sub(epoch), c.Since(epoch))
		})
	}
}

func TestMockClock_OnSleepSeesAdvancedTime(t *testing.T) {
	c := NewMockClock(epoch)
	var seen time.Time
	c.OnSleep = func(time.Duration) { seen = c.Now() }

	c.Sleep(10 * time.Minute)
	assert.Equal(t, epoch.Add(10*time.Minute), seen)
}
