package rabbitmq

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	amqp2 "github.com/stupidhang/streamdemo/amqp"
)

type declaredExchange struct {
	kind    string
	durable bool
}

type declaredQueue struct {
	durable    bool
	autoDelete bool
	exclusive  bool
	args       amqp.Table
}

type binding struct {
	queue, key, exchange string
}

// fakeBroker keeps just enough state to answer declarations the way
// RabbitMQ does.
type fakeBroker struct {
	mu        sync.Mutex
	exchanges map[string]declaredExchange
	queues    map[string]declaredQueue
	bindings  map[binding]struct{}
	channels  []*fakeChannel
	openErr   error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		exchanges: map[string]declaredExchange{},
		queues:    map[string]declaredQueue{},
		bindings:  map[binding]struct{}{},
	}
}

func (b *fakeBroker) open() (channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	ch := &fakeChannel{broker: b, deliveries: make(chan amqp.Delivery, 16)}
	b.channels = append(b.channels, ch)
	return ch, nil
}

func (b *fakeBroker) client() *client {
	return &client{conn: fakeConn{}, open: b.open}
}

func preconditionFailed(reason string) *amqp.Error {
	return &amqp.Error{Code: amqp.PreconditionFailed, Reason: "PRECONDITION_FAILED - " + reason}
}

type fakeChannel struct {
	broker *fakeBroker

	mu          sync.Mutex
	closed      bool
	qos         int
	consumeTag  string
	consumeArgs amqp.Table
	autoAck     bool
	cancelled   string
	deliveries  chan amqp.Delivery
	closes      []chan *amqp.Error
	published   []amqp.Publishing
	keys        []string
	publishErr  error
	confirmMode bool
	confirms    chan amqp.Confirmation
	nack        bool
	seq         uint64
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	decl := declaredExchange{kind: kind, durable: durable}
	if existing, ok := b.exchanges[name]; ok && existing != decl {
		return preconditionFailed("inequivalent arg 'type' for exchange '" + name + "'")
	}
	b.exchanges[name] = decl
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.queues[name]; ok {
		if existing.args[argQueueType] != args[argQueueType] || existing.durable != durable {
			return amqp.Queue{}, preconditionFailed("inequivalent arg 'x-queue-type' for queue '" + name + "'")
		}
		return amqp.Queue{Name: name}, nil
	}
	b.queues[name] = declaredQueue{durable: durable, autoDelete: autoDelete, exclusive: exclusive, args: args}
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.exchanges[exchange]; !ok {
		return &amqp.Error{Code: amqp.NotFound, Reason: "NOT_FOUND - no exchange '" + exchange + "'"}
	}
	b.bindings[binding{queue: name, key: key, exchange: exchange}] = struct{}{}
	return nil
}

func (c *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.qos = prefetchCount
	return nil
}

func (c *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumeTag = consumer
	c.consumeArgs = args
	c.autoAck = autoAck
	return c.deliveries, nil
}

func (c *fakeChannel) Cancel(consumer string, noWait bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = consumer
	return nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return amqp.ErrClosed
	}
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, msg)
	c.keys = append(c.keys, exchange+"/"+key)
	if c.confirmMode {
		c.seq++
		confirm := amqp.Confirmation{DeliveryTag: c.seq, Ack: !c.nack}
		confirms := c.confirms
		go func() { confirms <- confirm }()
	}
	return nil
}

func (c *fakeChannel) Confirm(noWait bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmMode = true
	return nil
}

func (c *fakeChannel) NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirms = confirm
	return confirm
}

func (c *fakeChannel) NotifyClose(ch chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes = append(c.closes, ch)
	return ch
}

// shutdown behaves like a channel exception: notify, then stop deliveries.
func (c *fakeChannel) shutdown(reason *amqp.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.closes {
		ch <- reason
		close(ch)
	}
	c.closes = nil
	close(c.deliveries)
	c.closed = true
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type ack struct {
	tag      uint64
	multiple bool
}

// fakeAcker records acknowledgements in order.
type fakeAcker struct {
	mu   sync.Mutex
	acks []ack
	err  error
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.acks = append(a.acks, ack{tag: tag, multiple: multiple})
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error { return nil }

func (a *fakeAcker) Reject(tag uint64, requeue bool) error { return nil }

func (a *fakeAcker) recorded() []ack {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ack(nil), a.acks...)
}

type fakeConn struct{}

var _ amqp2.Connection = fakeConn{}

func (fakeConn) GetConnection() *amqp.Connection { return nil }
func (fakeConn) Done() <-chan struct{}           { return nil }
func (fakeConn) Err() error                      { return nil }
func (fakeConn) Close() error                    { return nil }
