package cdc

import (
	"context"
	"time"
)

// Message is one record read from the broker.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
}

// Broker is the connect/subscribe surface the consumer drives.
type Broker interface {
	// Connect establishes (or verifies) connectivity to the cluster.
	Connect(ctx context.Context) error
	// Subscribe starts reading topic as a member of the configured group.
	Subscribe(ctx context.Context, topic string, fromBeginning bool) (Stream, error)
	Close() error
}

// Stream yields messages until its context is cancelled or it is closed.
// Offsets are checkpointed by the stream itself.
type Stream interface {
	Next(ctx context.Context) (Message, error)
	Close() error
}
