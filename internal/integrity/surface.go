package integrity

import (
	"context"
	"log/slog"
	"sync"
)

// Handler receives signals while subscribed and returns the verdict for the host.
type Handler func(Signal) Verdict

// Surface is the host presentation environment: it can be asked to enter
// full-screen and it reports full-screen and clipboard signals to at most one
// subscriber.
type Surface interface {
	// RequestFullscreen asks the host to enter full-screen. Hosts may refuse
	// silently; a refusal is later reported as SignalFullscreenRefused.
	RequestFullscreen(ctx context.Context) error
	// Subscribe installs h and returns a function that removes it.
	Subscribe(h Handler) (unsubscribe func())
}

// RemoteSurface is a Surface whose signals arrive from the exam UI over the
// local API. Full-screen requests are exposed as a pending flag that the UI
// acts on and acknowledges.
type RemoteSurface struct {
	mu        sync.Mutex
	handler   Handler
	subID     uint64
	requested bool
	logger    *slog.Logger
}

func NewRemoteSurface(logger *slog.Logger) *RemoteSurface {
	return &RemoteSurface{logger: logger}
}

func (s *RemoteSurface) Subscribe(h Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subID++
	id := s.subID
	s.handler = h
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.subID == id {
			s.handler = nil
			s.requested = false
		}
	}
}

func (s *RemoteSurface) RequestFullscreen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested = true
	s.logger.DebugContext(ctx, "Full-screen requested from exam UI")
	return nil
}

// FullscreenRequested reports whether a full-screen request awaits the UI.
func (s *RemoteSurface) FullscreenRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested
}

// Acknowledge records the outcome of the pending full-screen request. A
// refusal is dispatched as SignalFullscreenRefused.
func (s *RemoteSurface) Acknowledge(ok bool) Verdict {
	s.mu.Lock()
	s.requested = false
	s.mu.Unlock()

	if ok {
		return ignored()
	}
	return s.Dispatch(Signal{Kind: SignalFullscreenRefused})
}

// Dispatch delivers sig to the current subscriber. Without a subscriber the
// signal is ignored and its default action is allowed.
func (s *RemoteSurface) Dispatch(sig Signal) Verdict {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()

	if h == nil {
		return ignored()
	}
	return h(sig)
}
