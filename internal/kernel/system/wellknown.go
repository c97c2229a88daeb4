package system

import (
	"fmt"

	"github.com/actorkit/kernel/internal/domain/address"
	"github.com/actorkit/kernel/internal/domain/cell"
	"github.com/actorkit/kernel/internal/domain/provider"
)

// The receptionist, replicator, cluster shell, and node-death watcher are
// named in §1 as out-of-scope external collaborators — this kernel commits
// only to the deferred-start protocol that links them in, not to their
// business logic. receptionistMsg/replicatorMsg are intentionally opaque:
// a real build swaps in whatever message type those external modules
// define; wellKnownNoop is a stand-in behavior that proves the wiring
// without inventing semantics the spec leaves to other modules.
type receptionistMsg struct{ Payload any }
type replicatorMsg struct{ Payload any }

func wellKnownNoopReceptionist() cell.Behavior[receptionistMsg] {
	return cell.Receive(func(_ *cell.Context[receptionistMsg], _ receptionistMsg) (cell.Behavior[receptionistMsg], error) {
		return cell.Same[receptionistMsg](), nil
	})
}

func wellKnownNoopReplicator() cell.Behavior[replicatorMsg] {
	return cell.Receive(func(_ *cell.Context[replicatorMsg], _ replicatorMsg) (cell.Behavior[replicatorMsg], error) {
		return cell.Same[replicatorMsg](), nil
	})
}

// prepareWellKnownActors implements §4.5 steps 7-8: every well-known actor
// is spawned with startImmediately=false so its Start signal queues behind
// a suspended mailbox; the returned wake closures are invoked only after
// every system field (including these actors' own refs) has been
// installed, in the order prepared.
func (s *System) prepareWellKnownActors() ([]func(), error) {
	var wakes []func()

	receptionist, err := provider.Spawn[receptionistMsg](s.systemProvider, address.RootSystem, "receptionist",
		s.pool, wellKnownNoopReceptionist, cell.EscalateDirective(), 0, 0, false)
	if err != nil {
		return nil, fmt.Errorf("system: prepare receptionist: %w", err)
	}
	wakes = append(wakes, receptionist.Wake)

	replicator, err := provider.Spawn[replicatorMsg](s.systemProvider, address.RootSystem, "replicator",
		s.pool, wellKnownNoopReplicator, cell.EscalateDirective(), 0, 0, false)
	if err != nil {
		return nil, fmt.Errorf("system: prepare replicator: %w", err)
	}
	wakes = append(wakes, replicator.Wake)

	if s.settings.Clustered {
		// Cluster shell and node-death watcher are themselves out-of-scope
		// (cross-node transport, §1 Non-goals); the clustered case is
		// exercised here only via s.clusterShell, which is a plain
		// collaborator consulted at shutdown, not a tree actor.
		s.logger.Debug("clustered bootstrap: cluster shell and node-death watcher are external collaborators, not spawned as tree actors")
	}

	return wakes, nil
}
