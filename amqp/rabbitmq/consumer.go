package rabbitmq

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type consumer struct {
	channel channel
	opts    ConsumerOptions
}

func newConsumer(ch channel, opts ConsumerOptions) *consumer {
	if opts.Tag == "" {
		opts.Tag = defaultConsumerTagBase + "-" + uuid.NewString()
	}
	if opts.Prefetch == 0 {
		opts.Prefetch = defaultPrefetch
	}
	return &consumer{channel: ch, opts: opts}
}

/*
Consume sets the QoS window, subscribes and runs handler for every delivery.
Unless AutoAck is set, each delivery is acked with its own tag, not
cumulatively, before the next one is taken.
*/
func (c *consumer) Consume(ctx context.Context, handler Handler) error {
	queue := c.opts.Queue
	if err := c.channel.Qos(c.opts.Prefetch, 0, false); err != nil {
		return newError(ErrConsume, "qos", queue, err)
	}
	closes := c.channel.NotifyClose(make(chan *amqp.Error, 1))

	var args amqp.Table
	if !c.opts.Offset.IsZero() {
		args = amqp.Table{argStreamOffset: c.opts.Offset.arg()}
	}
	deliveries, err := c.channel.Consume(queue,
		c.opts.Tag,
		c.opts.AutoAck,
		// When exclusive is false, the server will fairly distribute
		// deliveries across multiple consumers.
		false,
		// The noLocal flag is not supported by RabbitMQ.
		false,
		false,
		args,
	)
	if err != nil {
		return newError(ErrConsume, "consume", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = c.channel.Cancel(c.opts.Tag, false)
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return newError(ErrConsume, "consume", queue, closeReason(closes))
			}
			delivery := newDelivery(&d)
			if err := handler(ctx, delivery); err != nil {
				return newError(ErrConsume, "handle", queue, err)
			}
			if c.opts.AutoAck {
				continue
			}
			if err := d.Ack(false); err != nil {
				return newError(ErrConsume, "ack", queue, err)
			}
			if c.opts.Acked != nil {
				c.opts.Acked(delivery)
			}
		}
	}
}

func closeReason(closes <-chan *amqp.Error) error {
	select {
	case reason, ok := <-closes:
		if ok && reason != nil {
			return fmt.Errorf("%w: %w", ErrDeliveriesClosed, reason)
		}
	default:
	}
	return ErrDeliveriesClosed
}

func (c *consumer) Close() error {
	return c.channel.Close()
}
