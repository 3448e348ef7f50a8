// Package message defines the internal Pull/Push/Complete/Fail/Cancel
// protocol messages and the bounded channel primitive that carries them
// between a vertex's wrappers and its wire adapters.
package message

import "github.com/whitaker-io/flowgraph/protocol/command"

// Pull is a demand signal: "send up to MaxItems items".
type Pull struct {
	MaxItems int32
}

// ConsumerMessage is sent from a consumer to a producer.
type ConsumerMessage struct {
	Pull   *Pull
	Cancel bool
}

// Push carries one batch of writer-schema-encoded datums.
type Push struct {
	Items [][]byte
}

// ProducerMessage is sent from a producer to a consumer.
type ProducerMessage struct {
	Push     *Push
	Complete bool
	Fail     *command.Failure
}
