// Package provider implements the tree that owns every actor cell: separate
// system and user roots, spawn/resolve/traverse/stopAll, and the resolve
// cache named in §6/§19.
package provider

import (
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/actorkit/kernel/internal/domain/address"
	"github.com/actorkit/kernel/internal/domain/cell"
	"github.com/actorkit/kernel/internal/domain/deadletter"
	"github.com/actorkit/kernel/internal/domain/mailbox"
	"github.com/actorkit/kernel/internal/domain/signal"
)

const defaultResolveCacheSize = 1024

// root is one of the provider's two independent trees (§3: "the system tree
// and the user tree are disjoint; a supervision failure in one never walks
// into the other").
type root struct {
	mu   sync.RWMutex
	node cell.Node
}

// Provider is the single owner of actor lifetime: every spawn, resolve, and
// traversal goes through it. It implements cell.Resolver so cells can Watch/
// Unwatch by address.
type Provider struct {
	logger      *slog.Logger
	naming      *address.NamingContext
	deadLetters deadletter.Sink

	systemRoot root
	userRoot   root

	mu    sync.RWMutex
	byKey map[string]cell.Node // every live node, keyed by address string

	cache *lru.Cache[string, cell.Node]
}

// New constructs a provider for one tree. naming is shared across both the
// system and user providers of one ActorSystem, per §3 ("NamingContext. Per
// system:"): reservations made through either tree's provider are visible
// to the other, since reservation keys are already namespaced by the full
// parent address (which includes the root).
func New(logger *slog.Logger, naming *address.NamingContext, deadLetters deadletter.Sink) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	c, err := lru.New[string, cell.Node](defaultResolveCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which is a
		// compile-time constant here.
		panic(err)
	}
	return &Provider{
		logger:      logger,
		naming:      naming,
		deadLetters: deadLetters,
		byKey:       make(map[string]cell.Node),
		cache:       c,
	}
}

// Spawn creates a root-level actor under either the system or the user tree.
// This is the entry point used by ActorSystem bootstrap (§4.5) and by
// user-facing Spawn calls rooted at the user guardian. The name stays
// reserved after a successful spawn; it is not released when the actor
// terminates, so it cannot be spawned again for the lifetime of the system.
func Spawn[M any](
	p *Provider,
	r address.Root,
	name string,
	dispatcher mailbox.Dispatcher,
	producer cell.Producer[M],
	directive cell.Directive,
	mailboxCapacity int,
	throughput int,
	startImmediately bool,
) (*cell.Cell[M], error) {
	addr, release, err := p.reserveRoot(r, name)
	if err != nil {
		return nil, err
	}

	_ = release // kept reserved: the name now belongs to a live actor
	c := cell.New[M](addr, nil, p, p.logger, dispatcher, producer, directive, mailboxCapacity, throughput, p.deadLetters, startImmediately)
	p.register(r, name, addr, c)
	return c, nil
}

// SpawnChild creates a child cell under an existing node, used by a parent
// actor's own Spawn calls (exposed to user code via the eventual system-level
// API, not directly by this package's tests).
func SpawnChild[M any](
	p *Provider,
	parent cell.Node,
	name string,
	dispatcher mailbox.Dispatcher,
	producer cell.Producer[M],
	directive cell.Directive,
	mailboxCapacity int,
	throughput int,
) (*cell.Cell[M], error) {
	parentAddr := parent.Address()

	release, err := p.naming.ReserveExplicit(parentAddr, name)
	if err != nil {
		return nil, err
	}

	incarnation := address.NextIncarnation()
	addr, err := parentAddr.Child(name, incarnation)
	if err != nil {
		release()
		return nil, err
	}

	c := cell.New[M](addr, parent, p, p.logger, dispatcher, producer, directive, mailboxCapacity, throughput, p.deadLetters, true)

	if parentWithChildren, ok := parent.(interface{ AddChild(string, cell.Node) }); ok {
		parentWithChildren.AddChild(name, c)
	}

	p.mu.Lock()
	p.byKey[addr.String()] = c
	p.mu.Unlock()
	p.cache.Remove(addr.String())

	// The reservation is kept, as in Spawn: a later spawn of the same name
	// under this parent fails with ErrNameAlreadyInUse.
	return c, nil
}

// SpawnAnonymous reserves a generated name under parent, used for actors
// spawned without an explicit identity (§4.3: auto-naming).
func SpawnAnonymous[M any](
	p *Provider,
	parent cell.Node,
	dispatcher mailbox.Dispatcher,
	producer cell.Producer[M],
	directive cell.Directive,
	mailboxCapacity int,
	throughput int,
) (*cell.Cell[M], error) {
	name, release, err := p.naming.ReserveAnonymous(parent.Address(), string(address.AutoNamePrefix))
	if err != nil {
		return nil, err
	}
	defer release()

	incarnation := address.NextIncarnation()
	addr, err := parent.Address().Child(name, incarnation)
	if err != nil {
		return nil, err
	}

	c := cell.New[M](addr, parent, p, p.logger, dispatcher, producer, directive, mailboxCapacity, throughput, p.deadLetters, true)
	if parentWithChildren, ok := parent.(interface{ AddChild(string, cell.Node) }); ok {
		parentWithChildren.AddChild(name, c)
	}

	p.mu.Lock()
	p.byKey[addr.String()] = c
	p.mu.Unlock()

	return c, nil
}

func (p *Provider) reserveRoot(r address.Root, name string) (address.Address, func(), error) {
	rootAddr := address.RootAddress(r)
	release, err := p.naming.ReserveExplicit(rootAddr, name)
	if err != nil {
		return address.Address{}, nil, err
	}
	incarnation := address.NextIncarnation()
	addr, err := rootAddr.Child(name, incarnation)
	if err != nil {
		release()
		return address.Address{}, nil, err
	}
	return addr, release, nil
}

func (p *Provider) register(r address.Root, name string, addr address.Address, n cell.Node) {
	var rt *root
	switch r {
	case address.RootSystem:
		rt = &p.systemRoot
	default:
		rt = &p.userRoot
	}
	rt.mu.Lock()
	rt.node = n
	rt.mu.Unlock()

	p.mu.Lock()
	p.byKey[addr.String()] = n
	p.mu.Unlock()
}

// ResolveNode implements cell.Resolver: an exact address lookup used by
// Watch/Unwatch and by supervision escalation.
func (p *Provider) ResolveNode(addr address.Address) (cell.Node, bool) {
	key := addr.String()
	if n, ok := p.cache.Get(key); ok {
		if n.IsTerminated() || !n.Address().Equal(addr) {
			p.cache.Remove(key)
		} else {
			return n, true
		}
	}

	p.mu.RLock()
	n, ok := p.byKey[key]
	p.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if n.IsTerminated() {
		p.mu.Lock()
		delete(p.byKey, key)
		p.mu.Unlock()
		return nil, false
	}
	p.cache.Add(key, n)
	return n, true
}

// Resolve looks up a node by its exact address, incarnation included, per
// §4.3 ("resolving a stale path mismatches and is treated as resolve
// failure, not silently rebound to the new incarnation"). It returns the
// live node only if both path and incarnation match.
func (p *Provider) Resolve(addr address.Address) (cell.Node, error) {
	n, ok := p.ResolveNode(addr)
	if !ok {
		return nil, fmt.Errorf("resolve %s: %w", addr.String(), ErrNotFound)
	}
	return n, nil
}

// VisitAction is the non-accumulating half of the §4.3 visitor contract:
// "the visitor returns continue | skip-subtree | stop | accumulate(T)".
// Accumulate(T) is modeled separately by TraverseAccumulate, since Go
// methods can't carry their own type parameter.
type VisitAction int

const (
	VisitContinue VisitAction = iota
	VisitSkipSubtree
	VisitStop
)

// Traverse walks every live node reachable from both roots, parent before
// children, system root before user root, per the introspection mode of
// §19. It acquires each root's lock only for the O(1) window needed to read
// the root pointer, never while calling visit, so traversal can't deadlock
// against a concurrent spawn.
func (p *Provider) Traverse(visit func(cell.Node) VisitAction) {
	TraverseAccumulate(p, struct{}{}, func(n cell.Node, acc struct{}) (struct{}, VisitAction) {
		return acc, visit(n)
	})
}

// TraverseAccumulate is the accumulate(T) variant of the §4.3 visitor
// contract: visit is handed the running accumulator alongside each node and
// returns the next accumulator value together with the action to take.
// Results are threaded in visitation order (parent before children, system
// root before user root) exactly as Traverse's.
func TraverseAccumulate[T any](p *Provider, init T, visit func(n cell.Node, acc T) (T, VisitAction)) T {
	acc := init

	p.systemRoot.mu.RLock()
	sysNode := p.systemRoot.node
	p.systemRoot.mu.RUnlock()
	if sysNode != nil {
		var stop bool
		acc, stop = traverseAccFrom(sysNode, acc, visit)
		if stop {
			return acc
		}
	}

	p.userRoot.mu.RLock()
	usrNode := p.userRoot.node
	p.userRoot.mu.RUnlock()
	if usrNode != nil {
		acc, _ = traverseAccFrom(usrNode, acc, visit)
	}
	return acc
}

func traverseAccFrom[T any](n cell.Node, acc T, visit func(cell.Node, T) (T, VisitAction)) (T, bool) {
	acc, action := visit(n, acc)
	switch action {
	case VisitStop:
		return acc, true
	case VisitSkipSubtree:
		return acc, false
	}
	for _, child := range n.Children() {
		var stop bool
		acc, stop = traverseAccFrom(child, acc, visit)
		if stop {
			return acc, true
		}
	}
	return acc, false
}

// StopAll enqueues Stop to both root nodes, beginning the recursive stop
// cascade described in §4.5/§8 for every actor in the system.
func (p *Provider) StopAll() {
	p.systemRoot.mu.RLock()
	sysNode := p.systemRoot.node
	p.systemRoot.mu.RUnlock()
	if sysNode != nil {
		sysNode.EnqueueSystemRaw(signal.New(signal.Stop))
	}

	p.userRoot.mu.RLock()
	usrNode := p.userRoot.node
	p.userRoot.mu.RUnlock()
	if usrNode != nil {
		usrNode.EnqueueSystemRaw(signal.New(signal.Stop))
	}
}

// SystemRoot and UserRoot expose the two guardian nodes once bootstrap has
// spawned them, used by ActorSystem to root user Spawn calls.
func (p *Provider) SystemRoot() (cell.Node, bool) {
	p.systemRoot.mu.RLock()
	defer p.systemRoot.mu.RUnlock()
	return p.systemRoot.node, p.systemRoot.node != nil
}

func (p *Provider) UserRoot() (cell.Node, bool) {
	p.userRoot.mu.RLock()
	defer p.userRoot.mu.RUnlock()
	return p.userRoot.node, p.userRoot.node != nil
}
