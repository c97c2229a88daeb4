package address

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// NamingContext is the per-system registry of reserved (path, incarnation)
// pairs and the monotonic sequence counters used for anonymous names. It
// is guarded by a single mutex held only across the O(1) reservation
// operations described in §5.
type NamingContext struct {
	mu        sync.Mutex
	sequences map[string]uint64   // parent path -> next anonymous suffix
	reserved  map[string]struct{} // "parent|name" -> reserved
}

// NewNamingContext constructs an empty naming context.
func NewNamingContext() *NamingContext {
	return &NamingContext{
		sequences: make(map[string]uint64),
		reserved:  make(map[string]struct{}),
	}
}

func reservationKey(parent Address, name string) string {
	return parent.String() + "|" + name
}

// ReserveExplicit atomically reserves an explicit child name under parent.
// It fails with ErrNameAlreadyInUse if the name is already reserved under
// parent. A reservation lasts until its release func is called.
func (n *NamingContext) ReserveExplicit(parent Address, name string) (release func(), err error) {
	if err := ValidateSegment(name, false); err != nil {
		return nil, err
	}

	key := reservationKey(parent, name)

	n.mu.Lock()
	if _, taken := n.reserved[key]; taken {
		n.mu.Unlock()
		return nil, fmt.Errorf("naming: child %q of %s: %w", name, parent, ErrNameAlreadyInUse)
	}
	n.reserved[key] = struct{}{}
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.reserved, key)
		n.mu.Unlock()
	}, nil
}

// ReserveAnonymous appends a monotonic suffix to prefix (e.g. "prefix-$7")
// and reserves it. Anonymous names can never collide because the counter
// is only ever incremented, never reused, for the lifetime of the system.
func (n *NamingContext) ReserveAnonymous(parent Address, prefix string) (name string, release func(), err error) {
	if prefix == "" {
		prefix = "actor"
	}

	pkey := parent.String()

	n.mu.Lock()
	seq := n.sequences[pkey]
	n.sequences[pkey] = seq + 1
	name = fmt.Sprintf("%s-%c%d", prefix, AutoNamePrefix, seq)
	key := reservationKey(parent, name)
	n.reserved[key] = struct{}{}
	n.mu.Unlock()

	return name, func() {
		n.mu.Lock()
		delete(n.reserved, key)
		n.mu.Unlock()
	}, nil
}

// NextIncarnation returns a fresh random, non-zero 32-bit incarnation tag
// for an ordinary (non-perpetual) actor.
func NextIncarnation() uint32 {
	for {
		if v := rand.Uint32(); v != Perpetual {
			return v
		}
	}
}
