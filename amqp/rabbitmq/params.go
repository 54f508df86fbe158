package rabbitmq

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

type Exchange struct {
	Name string
	Type ExchangeType
	// Durable represents restored on server restart.
	Durable bool
	// AutoDelete represents exchanges will be deleted when there are no remaining bindings.
	AutoDelete bool
}

type Queue struct {
	Name string
	// Type is sent as x-queue-type when set. Stream queues must be durable
	// and can be neither exclusive nor auto-delete.
	Type QueueType
	// Durable represents queues will survive server restarts.
	Durable bool
	// AutoDelete represents queues will be deleted by the server after a short time.
	// when the last consumer is canceled or the last consumer's channel is closed.
	AutoDelete bool
	Exclusive  bool

	// Retention, zero values are not sent.
	MaxLengthBytes      int64
	MaxSegmentSizeBytes int64
	MaxAge              string // like "7D", "12h"

	// Arguments are merged last and win over the fields above.
	Arguments amqp.Table
}

// args builds the declare arguments.
func (q *Queue) args() amqp.Table {
	args := amqp.Table{}
	if q.Type != "" {
		args[argQueueType] = string(q.Type)
	}
	if q.MaxLengthBytes > 0 {
		args[argMaxLengthBytes] = q.MaxLengthBytes
	}
	if q.MaxSegmentSizeBytes > 0 {
		args[argStreamMaxSegment] = q.MaxSegmentSizeBytes
	}
	if q.MaxAge != "" {
		args[argMaxAge] = q.MaxAge
	}
	for k, v := range q.Arguments {
		args[k] = v
	}
	if len(args) == 0 {
		return nil
	}
	return args
}

type Bind struct {
	Exchange string // ExchangeName
	Queue    string // QueueName
	Key      string // BindKey, exchange name when empty
}

func (b *Bind) key() string {
	if b.Key == "" {
		return b.Exchange
	}
	return b.Key
}

// Topology is one exchange, one queue and the binding between them.
type Topology struct {
	Exchange Exchange
	Queue    Queue
	Key      string // BindKey, exchange name when empty
}

type Publish struct {
	Exchange string      // ExchangeName
	Key      string      // RoutingKey
	Content  interface{} // Content
	// Persistent sets delivery mode 2. Off means no delivery mode is sent.
	Persistent bool
}

type message struct {
	contentType string // MIME content type, example: text/plain
	content     []byte
}

type PublisherOptions struct {
	// Confirm puts the channel in confirm mode and makes Publish wait for
	// the broker ack.
	Confirm bool
}

type ConsumerOptions struct {
	Queue string
	// Tag identifies the consumer, generated when empty.
	Tag string
	// Prefetch is the QoS window, 0 uses the default of 100.
	Prefetch int
	// Offset where a stream queue starts delivering. Zero value sends no
	// offset and lets the broker start at next.
	Offset Offset
	// AutoAck lets the broker consider deliveries acked on send.
	AutoAck bool
	// Acked is called after a delivery was acknowledged.
	Acked func(d *Delivery)
}
