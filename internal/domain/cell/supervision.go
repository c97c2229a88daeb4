package cell

import (
	"math/rand/v2"
	"time"
)

// DirectiveKind is the supervision decision consulted when an activation
// fails, per §4.4.
type DirectiveKind int8

const (
	// DirectiveStop terminates the cell; children terminate recursively,
	// parent is notified via ChildTerminated.
	DirectiveStop DirectiveKind = iota
	// DirectiveRestart discards the current behavior instance, keeps
	// mailbox and address, and schedules PreRestart/fresh-behavior/
	// PostRestart after the backoff interval.
	DirectiveRestart
	// DirectiveEscalate forwards the failure to the parent as a failure
	// of the parent's own activation.
	DirectiveEscalate
)

// Backoff computes the pause before restart attempt n (1-based).
type Backoff interface {
	Next(attempt int) time.Duration
}

// FixedSequence cycles through an explicit list of delays, holding the
// last entry for any attempt beyond the list's length. This is the shape
// used by the supervised-restart scenario of §8 ([10ms, 20ms, 40ms]).
type FixedSequence []time.Duration

func (f FixedSequence) Next(attempt int) time.Duration {
	if len(f) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(f) {
		idx = len(f) - 1
	}
	return f[idx]
}

// ExponentialJitter is the general-purpose backoff named in §4.4:
// exponential with jitter and a cap.
type ExponentialJitter struct {
	Base time.Duration
	Cap  time.Duration
}

func (e ExponentialJitter) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := e.Base
	for i := 1; i < attempt && d < e.Cap; i++ {
		d *= 2
	}
	if d > e.Cap {
		d = e.Cap
	}
	// Full jitter: uniform in [0, d].
	return time.Duration(rand.Int64N(int64(d) + 1))
}

// Directive is the per-cell supervision configuration.
type Directive struct {
	Kind    DirectiveKind
	Backoff Backoff // only consulted when Kind == DirectiveRestart
}

func StopDirective() Directive { return Directive{Kind: DirectiveStop} }

func RestartDirective(b Backoff) Directive {
	return Directive{Kind: DirectiveRestart, Backoff: b}
}

func EscalateDirective() Directive { return Directive{Kind: DirectiveEscalate} }
