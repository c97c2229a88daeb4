package cell

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/actorkit/kernel/internal/domain/address"
	"github.com/actorkit/kernel/internal/domain/deadletter"
	"github.com/actorkit/kernel/internal/domain/mailbox"
	"github.com/actorkit/kernel/internal/domain/signal"
)

// Producer builds a fresh behavior instance. It is called once at spawn and
// again on every restart, per §4.4 ("a restart discards the failed instance
// and installs a new one produced the same way the first was").
type Producer[M any] func() Behavior[M]

// Cell is the private runtime state of one actor: the ActorCell of §3/§4.4.
// It implements both Node (the type-erased parent/provider-facing surface)
// and mailbox.Runner[M] (the drain callback the mailbox invokes).
type Cell[M any] struct {
	addr     address.Address
	parent   Node
	resolver Resolver
	logger   *slog.Logger

	mb       *mailbox.Mailbox[M]
	producer Producer[M]
	behavior Behavior[M]

	directive      Directive
	restartAttempt int

	mu       sync.Mutex
	children map[string]Node
	watchers map[string]address.Address

	terminated  atomic.Bool
	deadLetters deadletter.Sink

	stopping        bool
	pendingChildren int
	lastFailure     error

	// rootEscalationHook, when set, is invoked before the plain
	// stop-fallback when a parentless cell (a tree guardian) receives an
	// escalated failure, per §4.4: "Root of each tree treats escalation as
	// a system-shutdown trigger."
	rootEscalationHook func(error)
}

// SetRootEscalationHook installs the system-shutdown trigger for a tree
// guardian. Only meaningful on a cell with no parent.
func (c *Cell[M]) SetRootEscalationHook(hook func(error)) {
	c.rootEscalationHook = hook
}

// New constructs a cell bound to the given mailbox dispatcher. The mailbox
// itself is created here so Cell can wire itself in as the Runner.
//
// startImmediately follows §4.5's deferred-start protocol: when false, the
// mailbox is held suspended after Start is enqueued, and the caller must
// invoke Wake exactly once to let the cell begin running. This lets a
// well-known actor be fully linked into the system's fields before any of
// its code can observe them.
func New[M any](
	addr address.Address,
	parent Node,
	resolver Resolver,
	logger *slog.Logger,
	dispatcher mailbox.Dispatcher,
	producer Producer[M],
	directive Directive,
	mailboxCapacity int,
	throughput int,
	deadLetters deadletter.Sink,
	startImmediately bool,
) *Cell[M] {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cell[M]{
		addr:        addr,
		parent:      parent,
		resolver:    resolver,
		logger:      logger.With(slog.String("actor", addr.String())),
		producer:    producer,
		directive:   directive,
		children:    make(map[string]Node),
		watchers:    make(map[string]address.Address),
		deadLetters: deadLetters,
	}
	c.mb = mailbox.New[M](dispatcher, c, mailboxCapacity, throughput)
	if !startImmediately {
		c.mb.Suspend()
	}
	c.mb.EnqueueSystem(signal.New(signal.Start))
	return c
}

// Mailbox exposes the underlying mailbox so a ref can enqueue user messages.
func (c *Cell[M]) Mailbox() *mailbox.Mailbox[M] { return c.mb }

// ApproxLen exposes the mailbox's racy queue-length counter for the §19
// census; callers type-assert for it rather than widening Node, the same
// pattern provider.go already uses for AddChild.
func (c *Cell[M]) ApproxLen() int64 { return c.mb.ApproxLen() }

// Wake performs the single scheduling edge of the deferred-start protocol
// (§4.5/§8 scenario 2). It is safe to call more than once: Mailbox.Resume
// is already idempotent once the suspended bit is cleared.
func (c *Cell[M]) Wake() { c.mb.Resume() }

// --- Node ---

func (c *Cell[M]) Address() address.Address { return c.addr }

func (c *Cell[M]) EnqueueSystemRaw(sig signal.Signal) { c.mb.EnqueueSystem(sig) }

func (c *Cell[M]) AddWatcher(addr address.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopping || c.terminated.Load() {
		// Already gone or going; notify immediately rather than dropping
		// the registration, per §9 ("Terminated is delivered even to a
		// watcher that subscribes after termination has begun").
		c.mu.Unlock()
		c.notifyWatcher(addr)
		c.mu.Lock()
		return
	}
	c.watchers[addr.String()] = addr
}

func (c *Cell[M]) RemoveWatcher(addr address.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.watchers, addr.String())
}

func (c *Cell[M]) Children() []Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Node, 0, len(c.children))
	for _, n := range c.children {
		out = append(out, n)
	}
	return out
}

func (c *Cell[M]) IsTerminated() bool { return c.terminated.Load() }

// AddChild registers a spawned child under this cell, used by the provider
// right after it constructs the child's Cell.
func (c *Cell[M]) AddChild(name string, child Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.children[name] = child
}

// --- mailbox.Runner[M] ---

func (c *Cell[M]) RunSignal(sig signal.Signal) bool {
	switch sig.Kind {
	case signal.Start:
		if c.behavior.IsZero() {
			c.behavior = c.producer()
		}
		return true

	case signal.Stop, signal.PoisonPill:
		c.beginStop()
		return !c.readyToFinalize()

	case signal.ChildTerminated:
		c.onChildTerminated()
		return !c.readyToFinalize()

	case signal.Terminated:
		return c.dispatchToBehaviorSignal(sig)

	case signal.PreRestart:
		if c.behavior.receiveSignal != nil {
			_, _ = c.behavior.receiveSignal(c.newContext(sig), sig)
		}
		c.behavior = c.producer()
		return true

	case signal.PostRestart:
		return c.dispatchToBehaviorSignal(sig)

	case signal.Failure:
		return c.handleFailure(sig.Cause)

	default:
		return true
	}
}

func (c *Cell[M]) RunUser(msg M) {
	c.mu.Lock()
	stopping := c.stopping
	c.mu.Unlock()
	if stopping {
		c.deadLetters.Route(c.addr, msg, "actor stopping")
		return
	}

	next, err := c.behavior.receive(c.newContext(signal.Signal{}), msg)
	if err != nil {
		c.mb.EnqueueSystem(signal.NewFailure(err))
		return
	}
	c.applyBehaviorResult(next)
}

func (c *Cell[M]) OnOverflow(msg M) {
	c.deadLetters.Route(c.addr, msg, "mailbox at capacity")
}

func (c *Cell[M]) OnClosedUser(msg M) {
	c.deadLetters.Route(c.addr, msg, "mailbox closed")
}

// --- internal behavior-result plumbing ---

func (c *Cell[M]) dispatchToBehaviorSignal(sig signal.Signal) bool {
	if c.behavior.receiveSignal == nil {
		return true
	}
	next, err := c.behavior.receiveSignal(c.newContext(sig), sig)
	if err != nil {
		c.mb.EnqueueSystem(signal.NewFailure(err))
		return true
	}
	c.applyBehaviorResult(next)
	return true
}

func (c *Cell[M]) applyBehaviorResult(next Behavior[M]) {
	switch {
	case next.IsZero():
		// Treated as Same: a behavior that forgot to return one of the
		// constructors keeps running rather than silently wedging.
		return
	case next.IsSame():
		return
	case next.IsStopped():
		c.beginStop()
		if c.readyToFinalize() {
			c.mb.EnqueueSystem(signal.New(signal.Stop))
		}
	default:
		c.behavior = next
	}
}

func (c *Cell[M]) newContext(sig signal.Signal) *Context[M] {
	var parentAddr address.Address
	if c.parent != nil {
		parentAddr = c.parent.Address()
	}
	return &Context[M]{
		self:     c.addr,
		parent:   parentAddr,
		resolver: c.resolver,
		logger:   c.logger,
		signal:   sig,
	}
}

// beginStop fans Stop out to every live child exactly once and marks this
// cell as stopping, per the §8 stop-cascade scenario: children always stop
// before their parent finalizes.
func (c *Cell[M]) beginStop() {
	c.mu.Lock()
	if c.stopping {
		c.mu.Unlock()
		return
	}
	c.stopping = true
	c.pendingChildren = len(c.children)
	children := make([]Node, 0, len(c.children))
	for _, n := range c.children {
		children = append(children, n)
	}
	c.mu.Unlock()

	for _, n := range children {
		n.EnqueueSystemRaw(signal.New(signal.Stop))
	}
}

// onChildTerminated decrements the outstanding-child counter; it is invoked
// when this cell observes one of its own children finish draining.
func (c *Cell[M]) onChildTerminated() {
	c.mu.Lock()
	if c.pendingChildren > 0 {
		c.pendingChildren--
	}
	c.mu.Unlock()
}

// readyToFinalize reports whether this cell may terminate: it must be
// stopping and have no children still outstanding.
func (c *Cell[M]) readyToFinalize() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopping {
		return false
	}
	if c.pendingChildren > 0 {
		return false
	}
	if c.terminated.CompareAndSwap(false, true) {
		watchers := make([]address.Address, 0, len(c.watchers))
		for _, w := range c.watchers {
			watchers = append(watchers, w)
		}
		go c.finalize(watchers)
	}
	return true
}

// finalize notifies watchers and the parent off the mailbox goroutine, since
// by the time RunSignal returns false the mailbox is already mid-terminate.
func (c *Cell[M]) finalize(watchers []address.Address) {
	for _, w := range watchers {
		c.notifyWatcher(w)
	}
	if c.parent != nil {
		c.parent.EnqueueSystemRaw(signal.NewChildTerminated(c.addr, c.lastFailure))
	}
}

func (c *Cell[M]) notifyWatcher(addr address.Address) {
	if n, ok := c.resolver.ResolveNode(addr); ok {
		n.EnqueueSystemRaw(signal.NewTerminated(c.addr))
	}
}

// handleFailure applies the supervision directive of §4.4 to an activation
// failure raised either by a panic recovered at the mailbox's activation
// boundary or by a behavior callback returning a non-nil error.
func (c *Cell[M]) handleFailure(cause error) bool {
	c.lastFailure = cause
	c.logger.Error("actor failure", slog.Any("error", cause), slog.String("directive", directiveName(c.directive.Kind)))

	switch c.directive.Kind {
	case DirectiveStop:
		c.beginStop()
		return !c.readyToFinalize()

	case DirectiveEscalate:
		if c.parent == nil {
			if c.rootEscalationHook != nil {
				c.rootEscalationHook(cause)
			}
			c.beginStop()
			return !c.readyToFinalize()
		}
		c.parent.EnqueueSystemRaw(signal.NewFailure(fmt.Errorf("escalated from %s: %w", c.addr, cause)))
		c.beginStop()
		return !c.readyToFinalize()

	case DirectiveRestart:
		c.restartAttempt++
		c.mb.Suspend()
		c.mb.EnqueueSystem(signal.New(signal.PreRestart))
		c.mb.EnqueueSystem(signal.New(signal.PostRestart))
		delay := time.Duration(0)
		if c.directive.Backoff != nil {
			delay = c.directive.Backoff.Next(c.restartAttempt)
		}
		if delay <= 0 {
			c.mb.Resume()
		} else {
			time.AfterFunc(delay, c.mb.Resume)
		}
		return true

	default:
		return true
	}
}

func directiveName(k DirectiveKind) string {
	switch k {
	case DirectiveStop:
		return "stop"
	case DirectiveRestart:
		return "restart"
	case DirectiveEscalate:
		return "escalate"
	default:
		return "unknown"
	}
}
