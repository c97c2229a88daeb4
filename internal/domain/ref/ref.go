// Package ref implements ActorRef: the typed, serializable-by-address handle
// user code holds and sends through, per §3/§4.1.
package ref

import (
	"github.com/actorkit/kernel/internal/domain/address"
	"github.com/actorkit/kernel/internal/domain/cell"
	"github.com/actorkit/kernel/internal/domain/deadletter"
)

// Ref is a typed handle to a live or formerly-live actor. It holds the cell
// of the one incarnation it was created for, so once that cell has
// terminated, Tell dead-letters rather than landing on a successor
// occupying the same name.
type Ref[M any] struct {
	addr        address.Address
	cellRef     *cell.Cell[M]
	resolver    cell.Resolver
	deadLetters deadletter.Sink
}

// New wraps a freshly spawned cell. The address and the cell are captured
// together at spawn time, so Tell never needs a resolve on the hot path.
func New[M any](c *cell.Cell[M], resolver cell.Resolver, deadLetters deadletter.Sink) Ref[M] {
	return Ref[M]{addr: c.Address(), cellRef: c, resolver: resolver, deadLetters: deadLetters}
}

// Address returns the address this ref names.
func (r Ref[M]) Address() address.Address { return r.addr }

// Tell delivers msg asynchronously, per §4.1: "send never blocks on the
// recipient's processing; it only blocks as long as it takes to enqueue."
// It returns false if the message was routed to dead letters instead
// (terminated actor, full mailbox, or a stale incarnation).
func (r Ref[M]) Tell(msg M) bool {
	if r.cellRef == nil || r.cellRef.IsTerminated() {
		if r.deadLetters != nil {
			r.deadLetters.Route(r.addr, msg, "actor terminated")
		}
		return false
	}
	return r.cellRef.Mailbox().EnqueueUser(msg)
}

// IsTerminated reports whether the underlying actor has finished draining.
func (r Ref[M]) IsTerminated() bool {
	return r.cellRef == nil || r.cellRef.IsTerminated()
}

// Wake performs the single scheduling edge of the deferred-start protocol
// (§4.5 step 7-8) on the underlying cell. Safe to call more than once: a
// second call is a no-op, per §8 ("wake() on a deferred-start handle is
// effective exactly once").
func (r Ref[M]) Wake() {
	if r.cellRef != nil {
		r.cellRef.Wake()
	}
}
