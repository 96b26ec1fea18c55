// Package clock abstracts the tick and delay sources used by the session so
// tests can drive them by hand.
package clock

import "time"

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Timer is a pending delayed call.
type Timer interface {
	// Stop prevents the call from running and reports whether it was still pending.
	Stop() bool
}

type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }
