// Package clocktest provides a hand-driven clock.Clock.
package clocktest

import (
	"sync"
	"time"

	"github.com/SAP-F-2025/proctor-agent/internal/clock"
)

// Clock is a manually driven clock. Tickers it creates deliver a tick only
// when Tick is called; delayed calls run only when Fire is called.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*Ticker
	timers  []*Timer
}

func New() *Clock {
	return &Clock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) NewTicker(d time.Duration) clock.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &Ticker{ch: make(chan time.Time), period: d, done: make(chan struct{})}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *Clock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &Timer{f: f, delay: d}
	c.timers = append(c.timers, t)
	return t
}

// Tick advances the clock by the period of the most recent live ticker and
// delivers one tick to it. It blocks until the tick is received and reports
// false if there is no live ticker.
func (c *Clock) Tick() bool {
	c.mu.Lock()
	var t *Ticker
	for i := len(c.tickers) - 1; i >= 0; i-- {
		if !c.tickers[i].Stopped() {
			t = c.tickers[i]
			break
		}
	}
	if t == nil {
		c.mu.Unlock()
		return false
	}
	c.now = c.now.Add(t.period)
	now := c.now
	c.mu.Unlock()

	select {
	case t.ch <- now:
		return true
	case <-t.done:
		return false
	}
}

// Pending is the number of delayed calls not yet fired or stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if t.pending() {
			n++
		}
	}
	return n
}

// Fire runs every pending delayed call and returns how many ran.
func (c *Clock) Fire() int {
	c.mu.Lock()
	timers := append([]*Timer(nil), c.timers...)
	c.mu.Unlock()

	n := 0
	for _, t := range timers {
		if t.take() {
			t.f()
			n++
		}
	}
	return n
}

// LiveTickers is the number of tickers that have not been stopped.
func (c *Clock) LiveTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.Stopped() {
			n++
		}
	}
	return n
}

type Ticker struct {
	ch     chan time.Time
	period time.Duration

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

func (t *Ticker) C() <-chan time.Time { return t.ch }

func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		t.stopped = true
		close(t.done)
	}
}

func (t *Ticker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type Timer struct {
	f     func()
	delay time.Duration

	mu    sync.Mutex
	state int // 0 pending, 1 fired, 2 stopped
}

func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != 0 {
		return false
	}
	t.state = 2
	return true
}

func (t *Timer) pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == 0
}

func (t *Timer) take() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != 0 {
		return false
	}
	t.state = 1
	return true
}
