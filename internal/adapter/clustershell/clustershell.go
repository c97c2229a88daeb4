// Package clustershell gives the out-of-scope cluster membership boundary
// named in §9 a concrete, minimal home: an Unbind call that tells remote
// peers an actor's node affinity changed, published over the pubsub
// dispatcher and guarded by a circuit breaker so a wedged peer cannot hang
// every future system shutdown.
package clustershell

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/actorkit/kernel/internal/adapter/pubsub"
	"github.com/actorkit/kernel/internal/domain/address"
)

// DefaultUnbindDeadline resolves the open question of §9 ("how long does
// Unbind wait before giving up"): 300ms, long enough for one AMQP round
// trip on a healthy broker, short enough not to stall a Stop cascade.
const DefaultUnbindDeadline = 300 * time.Millisecond

const unbindTopic = "actorkit.cluster.unbind"

var ErrUnbindTimeout = errors.New("clustershell: unbind timed out")

// ClusterShell is the seam the kernel's shutdown path (system.Shutdown
// step 1) calls through when an actor's node affinity needs to be announced
// to the rest of the cluster. The kernel itself has no notion of other nodes (§9 Non-goals);
// this type exists purely so that boundary has one concrete, testable
// implementation rather than an unimplemented interface.
type ClusterShell struct {
	dispatcher pubsub.Dispatcher
	breaker    *gobreaker.CircuitBreaker
	deadline   time.Duration
	nodeID     string
}

// Option customizes construction.
type Option func(*ClusterShell)

func WithDeadline(d time.Duration) Option {
	return func(c *ClusterShell) { c.deadline = d }
}

func New(dispatcher pubsub.Dispatcher, nodeID string, opts ...Option) *ClusterShell {
	c := &ClusterShell{
		dispatcher: dispatcher,
		nodeID:     nodeID,
		deadline:   DefaultUnbindDeadline,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "clustershell.unbind",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Unbind announces that addr is no longer owned by this node. It is best
// effort: the caller (system shutdown) must proceed with local
// termination regardless of the outcome, so the return value is informative
// only, never a reason to block the cell's own lifecycle.
func (c *ClusterShell) Unbind(ctx context.Context, addr address.Address) error {
	ctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.dispatcher.Publish(ctx, unbindTopic, pubsub.UnbindRequest{
			ActorPath: addr.String(),
			NodeID:    c.nodeID,
		})
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrUnbindTimeout
	}
	return err
}
