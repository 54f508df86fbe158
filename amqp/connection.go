package amqp

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// dialConfig is replaced in tests.
var dialConfig = amqp.DialConfig

type connection struct {
	url  string
	conn *amqp.Connection

	done      chan struct{}
	err       error
	closeOnce sync.Once
}

// NewConnection dials the broker. Only the initial dial is retried, and only
// when cfg.Attempts is greater than one.
func NewConnection(ctx context.Context, cfg Config) (Connection, error) {
	if _, err := amqp.ParseURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionOpenFail, err)
	}
	c := &connection{
		url:  cfg.URL,
		done: make(chan struct{}),
	}
	conn, err := c.dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.conn = conn

	// Daemon goroutine to accept connection close.
	go c.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))
	return c, nil
}

func (c *connection) dial(ctx context.Context, cfg Config) (*amqp.Connection, error) {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	props := amqp.NewConnectionProperties()
	if cfg.ConnectionName != "" {
		props.SetClientConnectionName(cfg.ConnectionName)
	}
	config := amqp.Config{
		Heartbeat:  cfg.Heartbeat,
		Properties: props,
		Dial:       amqp.DefaultDial(timeout),
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		conn, err := dialConfig(c.url, config)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempts == 1 {
			return nil, fmt.Errorf("%w: %v", ErrConnectionOpenFail, err)
		}
		logrus.WithError(err).WithField("attempt", i+1).Info(ErrConnectionOpenFail)
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrConnectionRetryFail, attempts, lastErr)
}

func (c *connection) watch(closeChan <-chan *amqp.Error) {
	reason, ok := <-closeChan
	if ok && reason != nil {
		logrus.WithError(reason).Warn("amqp connection lost")
		c.finish(fmt.Errorf("%w: %v", ErrConnectionClosed, reason))
		return
	}
	c.finish(ErrConnectionClosed)
}

func (c *connection) finish(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		close(c.done)
	})
}

func (c *connection) GetConnection() *amqp.Connection {
	return c.conn
}

func (c *connection) Done() <-chan struct{} {
	return c.done
}

func (c *connection) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *connection) Close() error {
	if c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}
