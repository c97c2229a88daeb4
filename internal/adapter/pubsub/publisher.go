// Package pubsub wires the cluster-shell boundary (§9, "ClusterShell.Unbind
// is a concrete collaborator behind a dependency-injected seam, not part of
// the kernel proper") onto watermill's AMQP transport, the same stack the
// teacher wires its own event dispatch through.
package pubsub

import (
	"github.com/ThreeDotsLabs/watermill"
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
)

// NewDurablePublisher builds a durable-queue AMQP publisher bound to uri,
// the topology the teacher's own PublisherProvider.Build requests
// ("Durable: true").
func NewDurablePublisher(uri string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	cfg := amqp.NewDurableQueueConfig(uri)
	return amqp.NewPublisher(cfg, logger)
}

// NewDurableSubscriber builds the matching subscriber. The cluster shell
// does not use it: Unbind only publishes and awaits no acknowledgement.
func NewDurableSubscriber(uri string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	cfg := amqp.NewDurableQueueConfig(uri)
	return amqp.NewSubscriber(cfg, logger)
}
