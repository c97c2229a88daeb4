package system

import "github.com/actorkit/kernel/internal/domain/cell"

// DispatcherKind selects one of the three executor variants of §4.1. There
// is deliberately no fallback variant: resolveDispatcher's default case
// rejects an unrecognized kind at spawn time with ErrDispatcherUnavailable,
// per §9.
type DispatcherKind int8

const (
	DispatcherDefault DispatcherKind = iota
	DispatcherCallingThread
	DispatcherExternalEventLoop
)

// Props configures one Spawn call, per §3.
type Props struct {
	Dispatcher DispatcherKind
	// ExternalEventLoopName selects which registered external loop to use
	// when Dispatcher == DispatcherExternalEventLoop.
	ExternalEventLoopName string

	Directive cell.Directive

	// MailboxCapacity <= 0 means unbounded.
	MailboxCapacity int

	// Throughput <= 0 falls back to the system's configured default.
	Throughput int

	// WellKnown is carried on Props but not consulted by SpawnUser or
	// SpawnChild: setting it changes neither the incarnation nor the tree
	// the actor is spawned into.
	WellKnown bool

	// StartImmediately controls the deferred-start protocol (§4.5) for
	// SpawnUser: when false, the actor's mailbox stays suspended until
	// Ref.Wake is called. SpawnChild always starts immediately.
	StartImmediately bool
}

// DefaultProps returns the common case: default dispatcher, stop on
// failure, unbounded mailbox, immediate start.
func DefaultProps() Props {
	return Props{
		Dispatcher:       DispatcherDefault,
		Directive:        cell.StopDirective(),
		StartImmediately: true,
	}
}
