package system

import "errors"

// Error kinds surfaced at the system boundary, per §7.
var (
	// ErrInvalidInitialBehavior names the error kind for a zero initial
	// Behavior — one that is neither a Receive callback nor Stopped/Same.
	// No spawn function in this package returns it: a producer runs only
	// when the actor processes Start, after the spawn call has returned.
	ErrInvalidInitialBehavior = errors.New("system: invalid initial behavior")

	// ErrDispatcherUnavailable is returned when Props names a dispatcher
	// variant the system has no configured instance for. Per §9's open
	// question, unnamed variants are rejected, never invented.
	ErrDispatcherUnavailable = errors.New("system: dispatcher unavailable")

	// ErrShutdown is returned by SpawnUser/SpawnChild once the system has
	// begun shutting down.
	ErrShutdown = errors.New("system: shutting down")
)
