// Package timer implements the exam countdown.
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SAP-F-2025/proctor-agent/internal/clock"
)

// Countdown counts whole seconds down from the allotted duration. Tick is the
// only way remaining time changes, so the displayed value is always derived
// from the authoritative counter.
type Countdown struct {
	mu        sync.Mutex
	total     int
	remaining int
	expired   bool
}

// New returns a countdown of minutes*60 seconds. Negative durations count as zero.
func New(minutes int) *Countdown {
	secs := minutes * 60
	if secs < 0 {
		secs = 0
	}
	return &Countdown{total: secs, remaining: secs}
}

// Tick removes one second. It reports true exactly once, on the tick that
// brings the counter to zero (or on the first tick of a zero-length countdown).
func (c *Countdown) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.expired {
		return false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.expired = true
		return true
	}
	return false
}

// Total is the allotted duration in seconds.
func (c *Countdown) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Elapsed is the number of seconds ticked so far.
func (c *Countdown) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total - c.remaining
}

func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

func (c *Countdown) Display() Display {
	return Split(c.Remaining())
}

// Display is a remaining-time value broken into clock fields.
type Display struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

func Split(seconds int) Display {
	if seconds < 0 {
		seconds = 0
	}
	return Display{
		Hours:   seconds / 3600,
		Minutes: (seconds % 3600) / 60,
		Seconds: seconds % 60,
	}
}

// String formats as HH:MM:SS.
func (d Display) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", d.Hours, d.Minutes, d.Seconds)
}

// Run calls onTick once per tick of a one-second ticker until ctx is done.
// The ticker is stopped on return.
func Run(ctx context.Context, clk clock.Clock, onTick func()) {
	t := clk.NewTicker(time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			if ctx.Err() != nil {
				return
			}
			onTick()
		}
	}
}
