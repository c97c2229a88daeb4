package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// UnbindRequest is the wire payload the cluster shell publishes when an
// actor's node membership changes, per §9's out-of-scope cluster boundary.
type UnbindRequest struct {
	ActorPath string `json:"actor_path"`
	NodeID    string `json:"node_id"`
}

// Dispatcher is the high-level contract the cluster shell publishes
// through, kept agnostic of the transport the way the teacher's
// EventDispatcher stays agnostic of its own transport.
type Dispatcher interface {
	Publish(ctx context.Context, topic string, req UnbindRequest) error
}

type dispatcher struct {
	publisher message.Publisher
}

func NewDispatcher(pub message.Publisher) Dispatcher {
	return &dispatcher{publisher: pub}
}

func (d *dispatcher) Publish(ctx context.Context, topic string, req UnbindRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("pubsub dispatcher: marshal: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := d.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("pubsub dispatcher: publish to %s: %w", topic, err)
	}
	return nil
}
