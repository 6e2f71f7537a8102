// Package broker models the KeyShared pub/sub contract spec.md §6
// requires: per-key message ordering and explicit per-message
// acknowledgement, backed by an MQTT broker (internal/broker/mqtt.go).
package broker

import "context"

// Message is one broker delivery, keyed by the vehicle id parsed from
// its topic. The cmd roles call Ack once the record has been handed to
// the next stage (a keyed runtime's Submit, or a sink's batching Add);
// Ack does not wait for that record's database write to complete.
type Message struct {
	Vehicle string
	Topic   string
	Payload []byte
	Ack     func()
}

// Consumer yields keyed messages for one subscription.
type Consumer interface {
	Messages() <-chan Message
	Close() error
}

// Producer publishes payloads keyed by vehicle id.
type Producer interface {
	Publish(ctx context.Context, vehicle string, payload []byte) error
	Close() error
}
