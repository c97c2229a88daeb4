// Package system implements ActorSystem: the process-level container that
// wires dispatcher pool, naming context, and both provider trees together,
// and performs the ordered bootstrap/shutdown of §4.5.
package system

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/actorkit/kernel/internal/adapter/clustershell"
	"github.com/actorkit/kernel/internal/domain/address"
	"github.com/actorkit/kernel/internal/domain/cell"
	"github.com/actorkit/kernel/internal/domain/deadletter"
	"github.com/actorkit/kernel/internal/domain/mailbox"
	"github.com/actorkit/kernel/internal/domain/provider"
	"github.com/actorkit/kernel/internal/domain/ref"
	"github.com/actorkit/kernel/internal/kernel/dispatcher"
	"github.com/actorkit/kernel/internal/observability/metrics"
)

// lifecycle is the one-way state machine of §3: created -> running ->
// shutting-down -> terminated.
type lifecycle int32

const (
	lifecycleCreated lifecycle = iota
	lifecycleRunning
	lifecycleShuttingDown
	lifecycleTerminated
)

// System is the top-level container described in §2 item 5 / §3.
type System struct {
	settings Settings
	logger   *slog.Logger
	recorder *metrics.Recorder

	naming *address.NamingContext

	pool     *dispatcher.FixedThreadPool
	calling  *dispatcher.CallingThread
	external map[string]*dispatcher.ExternalEventLoop

	systemProvider *provider.Provider
	userProvider   *provider.Provider

	deadLetters *deadletter.Logging
	deadLetterAddr address.Address

	clusterShell *clustershell.ClusterShell

	state atomic.Int32
}

// Option customizes bootstrap.
type Option func(*System)

// WithExternalEventLoop registers a named externally owned loop, selectable
// from Props.ExternalEventLoopName.
func WithExternalEventLoop(name string, handle dispatcher.Handle) Option {
	return func(s *System) {
		s.external[name] = dispatcher.NewExternalEventLoop(handle)
	}
}

// WithClusterShell enables the clustered bootstrap/shutdown path (§4.5
// steps 5 and shutdown step 1).
func WithClusterShell(shell *clustershell.ClusterShell) Option {
	return func(s *System) {
		s.clusterShell = shell
		s.settings.Clustered = true
	}
}

// New performs the ordered bootstrap of §4.5, steps 1-8.
func New(settings Settings, opts ...Option) (*System, error) {
	// Step 1: validate settings; the crash-backtrace hook itself is carried
	// on settings.CrashBacktraceHook and installed into the dispatcher pool
	// in step 2, once the pool exists to install it into.
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	logger := settings.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("system", settings.Name))

	recorder := settings.Recorder
	if recorder == nil {
		var err error
		recorder, err = metrics.New()
		if err != nil {
			return nil, fmt.Errorf("system: metrics: %w", err)
		}
	}

	s := &System{
		settings: settings,
		logger:   logger,
		recorder: recorder,
		naming:   address.NewNamingContext(),
		external: make(map[string]*dispatcher.ExternalEventLoop),
	}

	for _, opt := range opts {
		opt(s)
	}

	// Step 2: construct the dispatcher pool (and, for this kernel,
	// calling-thread is always available for tests/pinned actors). The
	// crash-backtrace hook carried on settings is installed into the pool
	// here so its last-resort backstop recover can invoke it.
	s.pool = dispatcher.NewFixedThreadPool(settings.DispatcherPoolSize, settings.DispatcherQueueSize, logger, settings.CrashBacktraceHook)
	s.calling = dispatcher.NewCallingThread()

	// Step 3: dead-letter logger and ref.
	s.deadLetters = deadletter.New(logger)
	s.deadLetterAddr = address.DeadLetters()

	// Step 4: construct both providers with their root guardians. The
	// guardians themselves are spawned as perpetual system actors right
	// below, once the providers exist (a provider needs to exist before
	// anything can be registered into it).
	s.systemProvider = provider.New(logger, s.naming, s.deadLetters)
	s.userProvider = provider.New(logger, s.naming, s.deadLetters)

	if err := s.spawnGuardians(); err != nil {
		return nil, err
	}

	// Step 5: remote-capable provider wrapping is a Non-goal (cross-node
	// transport); when Clustered, the cluster shell is already installed
	// via WithClusterShell and consulted only at shutdown.

	// Step 6: a serialization registry parameterised by a traversable view
	// is an out-of-scope external collaborator (§1); Traverse itself is
	// exposed on Provider for that collaborator to consume.

	// Step 7+8: prepare well-known actors via the deferred-start protocol,
	// then wake them in the order prepared, only once every system field
	// above is populated.
	wakes, err := s.prepareWellKnownActors()
	if err != nil {
		return nil, err
	}
	for _, wake := range wakes {
		wake()
	}

	s.state.Store(int32(lifecycleRunning))
	return s, nil
}

func (s *System) spawnGuardians() error {
	sysGuardian, err := provider.Spawn[guardianMsg](s.systemProvider, address.RootSystem, "root",
		s.calling, guardianProducer, cell.EscalateDirective(), 0, 0, true)
	if err != nil {
		return fmt.Errorf("system: spawn system guardian: %w", err)
	}
	sysGuardian.SetRootEscalationHook(s.triggerEscalationShutdown)

	userGuardian, err := provider.Spawn[guardianMsg](s.userProvider, address.RootUser, "root",
		s.calling, guardianProducer, cell.EscalateDirective(), 0, 0, true)
	if err != nil {
		return fmt.Errorf("system: spawn user guardian: %w", err)
	}
	userGuardian.SetRootEscalationHook(s.triggerEscalationShutdown)
	return nil
}

// triggerEscalationShutdown is the guardian hook of §4.4 ("Root of each
// tree treats escalation as a system-shutdown trigger"). Shutdown runs on
// its own goroutine since the hook executes on a dispatcher worker, and
// Shutdown itself waits on that same pool to drain.
func (s *System) triggerEscalationShutdown(cause error) {
	s.logger.Error("guardian escalation triggered system shutdown", slog.Any("cause", cause))
	go func() {
		_ = s.Shutdown(context.Background())
	}()
}

// guardianMsg is the (uninhabited, in practice) message type of the two
// tree roots; guardians only ever receive signals (child failures escalate
// to them), never user messages.
type guardianMsg struct{}

func guardianProducer() cell.Behavior[guardianMsg] {
	return cell.Receive(func(ctx *cell.Context[guardianMsg], _ guardianMsg) (cell.Behavior[guardianMsg], error) {
		return cell.Same[guardianMsg](), nil
	})
}

// resolveDispatcher maps a Props.Dispatcher selection to a concrete
// mailbox.Dispatcher, per §9: unnamed/unconfigured variants are rejected,
// never invented.
func (s *System) resolveDispatcher(p Props) (mailbox.Dispatcher, error) {
	switch p.Dispatcher {
	case DispatcherDefault:
		return s.pool, nil
	case DispatcherCallingThread:
		return s.calling, nil
	case DispatcherExternalEventLoop:
		loop, ok := s.external[p.ExternalEventLoopName]
		if !ok {
			return nil, fmt.Errorf("%w: external event loop %q not registered", ErrDispatcherUnavailable, p.ExternalEventLoopName)
		}
		return loop, nil
	default:
		return nil, ErrDispatcherUnavailable
	}
}

func (s *System) throughput(p Props) int {
	if p.Throughput > 0 {
		return p.Throughput
	}
	return s.settings.DefaultThroughput
}

// SpawnUser creates a top-level user actor under the user guardian.
func SpawnUser[M any](s *System, name string, props Props, producer cell.Producer[M]) (ref.Ref[M], error) {
	if s.Lifecycle() != lifecycleRunning {
		return ref.Ref[M]{}, ErrShutdown
	}
	d, err := s.resolveDispatcher(props)
	if err != nil {
		return ref.Ref[M]{}, err
	}
	root := address.RootUser
	c, err := provider.Spawn[M](s.userProvider, root, name, d, producer, props.Directive, props.MailboxCapacity, s.throughput(props), props.StartImmediately)
	if err != nil {
		return ref.Ref[M]{}, err
	}
	s.recorder.RecordSpawn(context.Background())
	return ref.New[M](c, s.userProvider, s.deadLetters), nil
}

// SpawnChild creates a child actor under parent, used from inside a
// behavior's own logic when it wants to supervise children.
func SpawnChild[M any](s *System, parent cell.Node, name string, props Props, producer cell.Producer[M]) (ref.Ref[M], error) {
	if s.Lifecycle() != lifecycleRunning {
		return ref.Ref[M]{}, ErrShutdown
	}
	d, err := s.resolveDispatcher(props)
	if err != nil {
		return ref.Ref[M]{}, err
	}
	prov := s.providerFor(parent)
	c, err := provider.SpawnChild[M](prov, parent, name, d, producer, props.Directive, props.MailboxCapacity, s.throughput(props))
	if err != nil {
		return ref.Ref[M]{}, err
	}
	s.recorder.RecordSpawn(context.Background())
	return ref.New[M](c, prov, s.deadLetters), nil
}

// providerFor picks the tree a node belongs to by its address root.
func (s *System) providerFor(n cell.Node) *provider.Provider {
	if n.Address().Root() == address.RootSystem {
		return s.systemProvider
	}
	return s.userProvider
}

// Resolve looks up a typed ref by address. A path/type mismatch yields a
// dead-letter-bound ref rather than an error, per §4.3.
func Resolve[M any](s *System, addr address.Address) ref.Ref[M] {
	var prov *provider.Provider
	if addr.Root() == address.RootSystem {
		prov = s.systemProvider
	} else {
		prov = s.userProvider
	}

	n, ok := prov.ResolveNode(addr)
	if !ok {
		s.logger.Debug("resolve failed", slog.String("address", addr.String()))
		return ref.Ref[M]{}
	}
	typed, ok := n.(*cell.Cell[M])
	if !ok {
		s.logger.Debug("resolve type mismatch", slog.String("address", addr.String()))
		return ref.Ref[M]{}
	}
	return ref.New[M](typed, prov, s.deadLetters)
}

// ResolveNode looks up the type-erased Node behind addr, for callers (tests,
// demos, supervising behaviors) that need to spawn children under an actor
// they only hold a typed Ref for.
func (s *System) ResolveNode(addr address.Address) (cell.Node, bool) {
	if addr.Root() == address.RootSystem {
		return s.systemProvider.ResolveNode(addr)
	}
	return s.userProvider.ResolveNode(addr)
}

// Lifecycle returns the current state, per §3.
func (s *System) Lifecycle() lifecycle { return lifecycle(s.state.Load()) }

// DeadLetters exposes the dead-letter sink for introspection (§19).
func (s *System) DeadLetters() deadletter.Sink { return s.deadLetters }

// Census produces the point-in-time tree snapshot of §19: live cell count
// and approximate mailbox depth per root subtree, across both trees.
func (s *System) Census() provider.Census {
	merged := provider.BuildCensus(s.systemProvider)
	userCensus := provider.BuildCensus(s.userProvider)
	merged.Subtrees = append(merged.Subtrees, userCensus.Subtrees...)
	merged.TotalLiveCells += userCensus.TotalLiveCells
	return merged
}

// Shutdown implements §4.5's synchronous shutdown sequence.
func (s *System) Shutdown(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(lifecycleRunning), int32(lifecycleShuttingDown)) {
		// Idempotent: a concurrent or repeated call observes the tree
		// already stopping/stopped and returns immediately, per §8's
		// "stopAll is idempotent" property.
		return nil
	}

	if isDispatcherWorkerGoroutine() {
		s.logger.Warn("shutdown called from a dispatcher worker goroutine; this can deadlock on pool drain")
	}

	// Step 1: clustered unbind, bounded by settings.ClusterShellDeadline.
	if s.settings.Clustered && s.clusterShell != nil {
		unbindCtx, cancel := context.WithTimeout(ctx, s.settings.ClusterShellDeadline)
		if err := s.clusterShell.Unbind(unbindCtx, address.RootAddress(address.RootSystem)); err != nil {
			s.logger.Warn("cluster shell unbind did not complete", slog.Any("error", err))
		}
		cancel()
	}

	// Step 2: stopAll on user provider, then system provider.
	s.userProvider.StopAll()
	s.systemProvider.StopAll()

	// Step 3: shut down the dispatcher pool (drain or time out).
	drained := make(chan struct{})
	go func() {
		s.pool.Shutdown()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(s.settings.ShutdownDrainTimeout):
		s.logger.Warn("dispatcher pool did not drain within timeout")
	}
	s.calling.Shutdown()

	// Step 4: shut down the event-loop group (the external loops this
	// system registered adapters for; ownership of the underlying loop
	// stays with the host).
	for _, loop := range s.external {
		loop.Shutdown()
	}

	// Step 5: service fields are left in place (Go has no use for nulling
	// them out defensively) but any further resolve/spawn now fails with
	// ErrShutdown, and sends on already-held refs dead-letter via the
	// mailbox's own closed handling — equivalent to "rebinding to dead
	// letters" without an extra indirection layer.
	s.state.Store(int32(lifecycleTerminated))
	return nil
}

func isDispatcherWorkerGoroutine() bool {
	// Detection is advisory per §4.5; this kernel does not tag goroutines,
	// so the check is always negative. A future revision could tag pool
	// workers via a context value threaded through Execute.
	return false
}
