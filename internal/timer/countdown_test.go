package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctor-agent/internal/clock/clocktest"
)

func TestCountdown_OneMinuteExpiresOnceAfterSixtyTicks(t *testing.T) {
	c := New(1)
	require.Equal(t, 60, c.Remaining())

	fired := 0
	for i := 0; i < 60; i++ {
		if c.Tick() {
			fired++
		}
	}
	assert.Equal(t, 0, c.Remaining())
	assert.Equal(t, 1, fired)
	assert.True(t, c.Expired())

	for i := 0; i < 10; i++ {
		assert.False(t, c.Tick(), "countdown must never re-fire")
	}
	assert.Equal(t, 0, c.Remaining(), "countdown must never go negative")
	assert.Equal(t, 60, c.Elapsed())
}

func TestCountdown_DoesNotFireEarly(t *testing.T) {
	c := New(1)
	for i := 0; i < 59; i++ {
		require.False(t, c.Tick())
	}
	assert.Equal(t, 1, c.Remaining())
	assert.False(t, c.Expired())
}

func TestCountdown_ZeroDuration(t *testing.T) {
	c := New(0)
	assert.Equal(t, 0, c.Remaining())
	assert.True(t, c.Tick())
	assert.False(t, c.Tick())

	assert.Equal(t, 0, New(-5).Remaining())
}

func TestDisplay(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{600, "00:10:00"},
		{3661, "01:01:01"},
		{-3, "00:00:00"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Split(tc.seconds).String())
	}

	c := New(90)
	c.Tick()
	assert.Equal(t, Display{Hours: 1, Minutes: 29, Seconds: 59}, c.Display())
}

func TestRun_StopsTickerOnCancel(t *testing.T) {
	clk := clocktest.New()
	ctx, cancel := context.WithCancel(context.Background())

	var ticks atomic.Int32
	done := make(chan struct{})
	go func() {
		Run(ctx, clk, func() { ticks.Add(1) })
		close(done)
	}()

	require.Eventually(t, func() bool { return clk.LiveTickers() == 1 }, time.Second, time.Millisecond)
	for i := 0; i < 3; i++ {
		require.True(t, clk.Tick())
	}
	assert.Eventually(t, func() bool { return ticks.Load() == 3 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 0, clk.LiveTickers())
	assert.False(t, clk.Tick())
}
