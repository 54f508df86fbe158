package rabbitmq

import (
	"context"
)

/*
Client, simplified application of mq.
Declarations each run on a short-lived channel, publishers and consumers
each own one channel for their whole life.
*/
type Client interface {
	CreateExchange(exchange *Exchange) error
	CreateQueue(queue *Queue) error
	Bind(bind *Bind) error
	DeclareTopology(topology *Topology) error

	NewPublisher(opts PublisherOptions) (Publisher, error)
	NewConsumer(opts ConsumerOptions) (Consumer, error)

	// Done is closed when the underlying connection is gone.
	Done() <-chan struct{}
	Err() error
	Close() error
}

// Publisher sends messages on its own channel. It must not be shared
// between goroutines.
type Publisher interface {
	Publish(ctx context.Context, msg *Publish) (Ack, error)
	Close() error
}

// Consumer receives deliveries on its own channel.
type Consumer interface {
	// Consume blocks until ctx is done or the deliveries stop. Each delivery
	// is acknowledged on its own after handler returns nil.
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// Handler processes one delivery. Returning an error stops the consumer.
type Handler func(ctx context.Context, d *Delivery) error

type ExchangeType string

//goland:noinspection SpellCheckingInspection
const (
	Direct  ExchangeType = "direct"  // Direct exchange
	Fanout  ExchangeType = "fanout"  // Fanout exchange
	Topic   ExchangeType = "topic"   // Topic exchange
	Headers ExchangeType = "headers" // Headers exchange
)

// QueueType is sent as x-queue-type.
type QueueType string

const (
	Classic QueueType = "classic"
	Quorum  QueueType = "quorum"
	Stream  QueueType = "stream"
)

/*
DeliveryMode. Transient means higher throughput but messages will not be
restored on broker restart.  The delivery mode of publishings is unrelated
to the durability of the queues they reside on.  Transient messages will
not be restored to durable queues, persistent messages will be restored to
durable queues and lost on non-durable queues during server restart.
*/
type deliveryMode uint8

// nolint
const (
	transient deliveryMode = iota + 1 // Transient means higher throughput
	persistent
)

// Ack is used to Acknowledge publish confirmations.
type Ack bool

const (
	Acknowledge   Ack = true
	UnAcknowledge Ack = false
)

// Argument keys understood by RabbitMQ.
const (
	argQueueType           = "x-queue-type"
	argMaxLengthBytes      = "x-max-length-bytes"
	argMaxAge              = "x-max-age"
	argStreamMaxSegment    = "x-stream-max-segment-size-bytes"
	argStreamOffset        = "x-stream-offset"
	headerStreamOffset     = "x-stream-offset"
	defaultPrefetch        = 100
	maxPrefetch            = 65535
	defaultConsumerTagBase = "streamdemo"
)
