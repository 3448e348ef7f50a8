package message

// Capacity is the bounded buffer size used by every edge's channel pair.
// A full channel is the mechanism by which backpressure propagates
// end to end.
const Capacity = 32

// ProducerChannels is the half of an edge's channel pair held by the
// side producing items: it receives demand (ConsumerMessage) and sends
// data (ProducerMessage).
type ProducerChannels struct {
	Schema string
	Rx     <-chan ConsumerMessage
	Tx     chan<- ProducerMessage
}

// ConsumerChannels is the mirror half held by the side consuming items:
// it sends demand and receives data.
type ConsumerChannels struct {
	Schema string
	Rx     <-chan ProducerMessage
	Tx     chan<- ConsumerMessage
}

// NewPipe allocates one edge's bounded bidirectional channel pair and
// returns both halves. Both returned structs share the same pair of
// underlying Go channels; closing is the caller's responsibility once
// both directions have observed termination.
func NewPipe(schema string) (ProducerChannels, ConsumerChannels) {
	consumerToProducer := make(chan ConsumerMessage, Capacity)
	producerToConsumer := make(chan ProducerMessage, Capacity)

	producer := ProducerChannels{
		Schema: schema,
		Rx:     consumerToProducer,
		Tx:     producerToConsumer,
	}
	consumer := ConsumerChannels{
		Schema: schema,
		Rx:     producerToConsumer,
		Tx:     consumerToProducer,
	}
	return producer, consumer
}
