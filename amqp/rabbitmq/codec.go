package rabbitmq

import (
	"encoding/json"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"google.golang.org/protobuf/proto"
)

const (
	contentTypeText     = "text/plain"
	contentTypeJSON     = "application/json"
	contentTypeProtobuf = "application/protobuf"
)

/*
encode turns publish content into a message body.
[]byte goes out as is with no content type, string as text/plain,
proto.Message as protobuf and anything else as json.
*/
func encode(content interface{}) (message, error) {
	switch c := content.(type) {
	case []byte:
		return message{content: c}, nil
	case string:
		return message{contentType: contentTypeText, content: []byte(c)}, nil
	case proto.Message:
		body, err := proto.Marshal(c)
		if err != nil {
			return message{}, err
		}
		return message{contentType: contentTypeProtobuf, content: body}, nil
	}
	body, err := json.Marshal(content)
	if err != nil {
		return message{}, err
	}
	return message{contentType: contentTypeJSON, content: body}, nil
}

// Delivery is one message pushed by the broker.
type Delivery struct {
	Body        []byte
	ContentType string
	DeliveryTag uint64
	Redelivered bool
	// Offset is the stream position, valid when HasOffset.
	Offset    int64
	HasOffset bool
}

func newDelivery(d *amqp.Delivery) *Delivery {
	delivery := &Delivery{
		Body:        d.Body,
		ContentType: d.ContentType,
		DeliveryTag: d.DeliveryTag,
		Redelivered: d.Redelivered,
	}
	switch v := d.Headers[headerStreamOffset].(type) {
	case int64:
		delivery.Offset, delivery.HasOffset = v, true
	case int32:
		delivery.Offset, delivery.HasOffset = int64(v), true
	}
	return delivery
}

// Text decodes the body as UTF-8, invalid sequences become U+FFFD.
func (d *Delivery) Text() string {
	return strings.ToValidUTF8(string(d.Body), "�")
}

// Unmarshal decodes the body into v, as protobuf when v is a proto.Message
// and as json otherwise.
func (d *Delivery) Unmarshal(v interface{}) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(d.Body, m)
	}
	return json.Unmarshal(d.Body, v)
}
