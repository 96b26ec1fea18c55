package integrity

import "strings"

type SignalKind string

const (
	SignalFullscreenChange  SignalKind = "fullscreen_change"
	SignalFullscreenRefused SignalKind = "fullscreen_refused"
	SignalClipboardCopy     SignalKind = "clipboard_copy"
	SignalKeyDown           SignalKind = "keydown"
)

// Signal is one observation reported by the host presentation environment.
type Signal struct {
	Kind SignalKind `json:"kind"`

	// Active is the new full-screen state for SignalFullscreenChange.
	Active bool `json:"active,omitempty"`

	// Key and modifiers for SignalKeyDown.
	Key  string `json:"key,omitempty"`
	Ctrl bool   `json:"ctrl,omitempty"`
	Meta bool   `json:"meta,omitempty"`
}

// IsCopyAttempt reports whether the signal is a clipboard copy event or the
// keyboard copy combination.
func (s Signal) IsCopyAttempt() bool {
	switch s.Kind {
	case SignalClipboardCopy:
		return true
	case SignalKeyDown:
		return (s.Ctrl || s.Meta) && strings.EqualFold(s.Key, "c")
	}
	return false
}

type VerdictKind string

const (
	VerdictIgnored     VerdictKind = "ignored"
	VerdictCopyBlocked VerdictKind = "copy_blocked"
	VerdictWarning     VerdictKind = "warning"
	VerdictTerminate   VerdictKind = "terminate"
	VerdictRestored    VerdictKind = "restored"
	VerdictRefused     VerdictKind = "refused"
)

// Verdict is the monitor's answer to a signal.
type Verdict struct {
	Kind VerdictKind `json:"kind"`
	// PreventDefault asks the host to cancel the signal's default action.
	PreventDefault bool   `json:"prevent_default"`
	Exits          int    `json:"exits"`
	RemainingExits int    `json:"remaining_exits"`
	Message        string `json:"message,omitempty"`
}

func ignored() Verdict {
	return Verdict{Kind: VerdictIgnored}
}
