package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher struct {
	channel  channel
	confirms chan amqp.Confirmation
	// seq is the delivery tag of the last publishing in confirm mode.
	seq uint64
}

func newPublisher(ch channel, opts PublisherOptions) (*publisher, error) {
	p := &publisher{channel: ch}
	if opts.Confirm {
		// Confirm puts this channel into confirm mode.
		if err := ch.Confirm(false); err != nil {
			_ = ch.Close()
			return nil, newError(ErrPublish, "confirm mode", "", err)
		}
		p.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	}
	return p, nil
}

/*
Publish publishing to special exchange with routing key, unmandatory and
unimmediate. Content is encoded by type, see encode.
Without confirm mode the returned Ack only means the frame was written,
in confirm mode it is the broker's answer.
*/
func (p *publisher) Publish(ctx context.Context, msg *Publish) (Ack, error) {
	m, err := encode(msg.Content)
	if err != nil {
		return UnAcknowledge, newError(ErrPublish, "encode", msg.Exchange, err)
	}
	publishing := amqp.Publishing{
		ContentType: m.contentType,
		Body:        m.content,
	}
	if msg.Persistent {
		publishing.DeliveryMode = uint8(persistent)
	}

	err = p.channel.PublishWithContext(ctx, msg.Exchange, msg.Key, false, false, publishing)
	if err != nil {
		return UnAcknowledge, newError(ErrPublish, "publish", msg.Exchange, err)
	}
	if p.confirms == nil {
		return Acknowledge, nil
	}
	p.seq++
	return p.waitConfirm(ctx, msg.Exchange)
}

// waitConfirm skips confirmations left over from publishings whose wait was
// cancelled.
func (p *publisher) waitConfirm(ctx context.Context, exchange string) (Ack, error) {
	for {
		select {
		case <-ctx.Done():
			return UnAcknowledge, newError(ErrPublish, "confirm", exchange, ctx.Err())
		case confirm, ok := <-p.confirms:
			if !ok {
				return UnAcknowledge, newError(ErrPublish, "confirm", exchange, amqp.ErrClosed)
			}
			if confirm.DeliveryTag < p.seq {
				continue
			}
			if !confirm.Ack {
				return UnAcknowledge, newError(ErrPublish, "confirm", exchange, ErrPublishNotAcked)
			}
			return Acknowledge, nil
		}
	}
}

func (p *publisher) Close() error {
	return p.channel.Close()
}
