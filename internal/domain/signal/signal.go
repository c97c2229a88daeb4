// Package signal defines the system-message sum type that the mailbox's
// priority queue carries: lifecycle, watch, and supervision signals that
// always precede user messages, per §3 and §4.2.
package signal

import (
	"fmt"

	"github.com/actorkit/kernel/internal/domain/address"
)

// Kind discriminates the system-message sum type described in §4.5/§9.
type Kind int8

const (
	// Start is the synthetic first system message enqueued by spawn.
	Start Kind = iota + 1
	// Stop requests graceful termination; children are stopped first.
	Stop
	// PoisonPill is a user-visible cancellation signal, queued as a system
	// message so it jumps ahead of any user message sent after it.
	PoisonPill
	// Resume names the resume system message. The cell ignores it when
	// delivered; restart backoff resumes the mailbox by calling
	// Mailbox.Resume directly.
	Resume
	// PreRestart precedes a fresh behavior instance during a restart.
	PreRestart
	// PostRestart follows a fresh behavior instance during a restart.
	PostRestart
	// Terminated is delivered to a watcher when the watched actor ends.
	Terminated
	// ChildTerminated is delivered to a parent once a child has fully
	// drained, carrying the same information as Terminated plus the cause.
	ChildTerminated
	// Failure is raised internally when a behavior invocation panics or
	// returns an error; it is consumed by supervision (§4.4), never by
	// user code.
	Failure
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "Start"
	case Stop:
		return "Stop"
	case PoisonPill:
		return "PoisonPill"
	case Resume:
		return "Resume"
	case PreRestart:
		return "PreRestart"
	case PostRestart:
		return "PostRestart"
	case Terminated:
		return "Terminated"
	case ChildTerminated:
		return "ChildTerminated"
	case Failure:
		return "Failure"
	default:
		return fmt.Sprintf("Kind(%d)", int8(k))
	}
}

// Signal is one system message. It is a small value type, cheap to
// allocate per-activation the way the teacher's SystemEvent is.
type Signal struct {
	Kind    Kind
	Subject address.Address // the actor the signal concerns, when applicable
	Cause   error           // populated for Failure/ChildTerminated
}

func New(kind Kind) Signal { return Signal{Kind: kind} }

func NewTerminated(subject address.Address) Signal {
	return Signal{Kind: Terminated, Subject: subject}
}

func NewChildTerminated(subject address.Address, cause error) Signal {
	return Signal{Kind: ChildTerminated, Subject: subject, Cause: cause}
}

func NewFailure(cause error) Signal {
	return Signal{Kind: Failure, Cause: cause}
}
