package rabbitmq

import (
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	ErrQueueNameIsEmpty    = errors.New("queue name is empty")
	ErrExchangeNameIsEmpty = errors.New("exchange name is empty")
	ErrInvalidOffset       = errors.New("invalid stream offset")
	ErrInvalidPrefetch     = errors.New("prefetch must be between 0 and 65535")

	// Kinds carried by *Error.
	ErrChannel     = errors.New("open channel failed")
	ErrDeclaration = errors.New("declaration failed")
	ErrConsume     = errors.New("consume failed")
	ErrPublish     = errors.New("publish failed")

	ErrPublishNotAcked  = errors.New("message not ack by broker")
	ErrDeliveriesClosed = errors.New("delivery channel closed")
)

// Error is returned by Client, Publisher and Consumer operations.
// errors.Is matches both Kind and the wrapped cause.
type Error struct {
	Kind error
	Op   string // e.g. "declare queue"
	Name string // exchange or queue name
	Err  error
}

func newError(kind error, op, name string, err error) *Error {
	return &Error{Kind: kind, Op: op, Name: name, Err: err}
}

func (e *Error) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("rabbitmq: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("rabbitmq: %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// IsPreconditionFailed reports whether the broker refused a declaration
// because the resource exists with different arguments.
func IsPreconditionFailed(err error) bool {
	var amqpErr *amqp.Error
	return errors.As(err, &amqpErr) && amqpErr.Code == amqp.PreconditionFailed
}

// IsClosed reports whether err comes from a closed channel or connection.
func IsClosed(err error) bool {
	if errors.Is(err, amqp.ErrClosed) || errors.Is(err, ErrDeliveriesClosed) {
		return true
	}
	var amqpErr *amqp.Error
	return errors.As(err, &amqpErr) && (amqpErr.Code == amqp.ChannelError ||
		amqpErr.Code == amqp.ConnectionForced)
}
