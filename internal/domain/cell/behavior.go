// Package cell implements ActorCell: the private runtime state of one
// actor (current behavior, children, watchers, supervision directive,
// mailbox) described in §3/§4.4, plus the behavior sum type of §9.
package cell

import (
	"log/slog"

	"github.com/actorkit/kernel/internal/domain/address"
	"github.com/actorkit/kernel/internal/domain/signal"
)

// Node is the type-erased management surface a cell exposes to its parent
// and to the provider that owns its tree, independent of the actor's
// message type M. Children of different message types can therefore share
// one parent-side child map.
type Node interface {
	Address() address.Address
	EnqueueSystemRaw(sig signal.Signal)
	AddWatcher(addr address.Address)
	RemoveWatcher(addr address.Address)
	Children() []Node
	IsTerminated() bool
}

// Resolver looks up a live node by address, used by Context.Watch/Unwatch
// and by the supervision escalation path. Implemented by provider.Provider.
type Resolver interface {
	ResolveNode(addr address.Address) (Node, bool)
}

// Context is the argument passed to a behavior on every invocation. It
// carries no suspension points (§5: "activations run to completion without
// awaiting") — it is a plain value bag plus two side-effecting calls that
// only mutate watcher bookkeeping on other cells' nodes.
type Context[M any] struct {
	self     address.Address
	parent   address.Address
	resolver Resolver
	logger   *slog.Logger
	signal   signal.Signal // populated only during ReceiveSignal
}

func (c *Context[M]) Self() address.Address   { return c.self }
func (c *Context[M]) Parent() address.Address { return c.parent }
func (c *Context[M]) Logger() *slog.Logger    { return c.logger }

// Signal returns the system signal under evaluation, valid only inside a
// ReceiveSignal callback.
func (c *Context[M]) Signal() signal.Signal { return c.signal }

// Watch installs an observation edge: target will notify self with
// Terminated when it ends. Per §9, this is a set-of-addresses lookup
// through the provider, never a direct owning edge.
func (c *Context[M]) Watch(target address.Address) {
	if n, ok := c.resolver.ResolveNode(target); ok {
		n.AddWatcher(c.self)
	}
}

func (c *Context[M]) Unwatch(target address.Address) {
	if n, ok := c.resolver.ResolveNode(target); ok {
		n.RemoveWatcher(c.self)
	}
}

// Behavior is the sum type of §9: {receive-message, receive-signal,
// become, same, stopped, failed}. A zero Behavior is invalid; use the
// constructors below.
type Behavior[M any] struct {
	receive       func(ctx *Context[M], msg M) (Behavior[M], error)
	receiveSignal func(ctx *Context[M], sig signal.Signal) (Behavior[M], error)
	same          bool
	stopped       bool
}

// Receive builds a behavior that handles user messages with fn. The cell
// itself handles Start/Stop/PoisonPill/ChildTerminated/Failure; PreRestart,
// PostRestart and Terminated reach the behavior only when a signal handler
// is attached via WithSignalHandler.
func Receive[M any](fn func(ctx *Context[M], msg M) (Behavior[M], error)) Behavior[M] {
	return Behavior[M]{receive: fn}
}

// WithSignalHandler attaches a signal callback to an existing behavior,
// used by actors that want to react to PreRestart/PostRestart/Terminated
// notifications from watched actors.
func (b Behavior[M]) WithSignalHandler(fn func(ctx *Context[M], sig signal.Signal) (Behavior[M], error)) Behavior[M] {
	b.receiveSignal = fn
	return b
}

// Same requests that the current behavior be kept unchanged.
func Same[M any]() Behavior[M] { return Behavior[M]{same: true} }

// Stopped requests termination of this actor, same as receiving Stop.
func Stopped[M any]() Behavior[M] { return Behavior[M]{stopped: true} }

func (b Behavior[M]) IsZero() bool {
	return b.receive == nil && b.receiveSignal == nil && !b.same && !b.stopped
}

func (b Behavior[M]) IsSame() bool    { return b.same }
func (b Behavior[M]) IsStopped() bool { return b.stopped }
