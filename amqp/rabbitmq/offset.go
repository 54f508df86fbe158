package rabbitmq

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

type offsetKind uint8

const (
	offsetNone offsetKind = iota
	offsetFirst
	offsetLast
	offsetNext
	offsetAbsolute
	offsetTimestamp
	offsetInterval
)

// Offset is a stream consumption start point, sent as x-stream-offset.
type Offset struct {
	kind     offsetKind
	position int64
	at       time.Time
	interval string
}

var (
	// OffsetFirst starts at the first message still retained.
	OffsetFirst = Offset{kind: offsetFirst}
	// OffsetLast starts at the last written chunk.
	OffsetLast = Offset{kind: offsetLast}
	// OffsetNext delivers only messages written after subscribing.
	OffsetNext = Offset{kind: offsetNext}
)

// intervalRe matches the broker's relative offsets, e.g. 1D or 90m.
var intervalRe = regexp.MustCompile(`^[0-9]+[YMDhms]$`)

// OffsetAt starts at an absolute position in the stream.
func OffsetAt(position int64) Offset {
	return Offset{kind: offsetAbsolute, position: position}
}

// OffsetSince starts at the first chunk written at or after t.
func OffsetSince(t time.Time) Offset {
	return Offset{kind: offsetTimestamp, at: t}
}

// ParseOffset accepts first, last, next, a non-negative integer position,
// an RFC3339 timestamp or an interval such as 1D.
func ParseOffset(s string) (Offset, error) {
	switch s {
	case "":
		return Offset{}, nil
	case "first":
		return OffsetFirst, nil
	case "last":
		return OffsetLast, nil
	case "next":
		return OffsetNext, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return Offset{}, fmt.Errorf("%w: negative position %d", ErrInvalidOffset, n)
		}
		return OffsetAt(n), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return OffsetSince(t), nil
	}
	if intervalRe.MatchString(s) {
		return Offset{kind: offsetInterval, interval: s}, nil
	}
	return Offset{}, fmt.Errorf("%w: %q", ErrInvalidOffset, s)
}

// IsZero reports whether no offset was chosen.
func (o Offset) IsZero() bool {
	return o.kind == offsetNone
}

// arg is the x-stream-offset argument value.
func (o Offset) arg() interface{} {
	switch o.kind {
	case offsetFirst:
		return "first"
	case offsetLast:
		return "last"
	case offsetNext:
		return "next"
	case offsetAbsolute:
		return o.position
	case offsetTimestamp:
		return o.at
	case offsetInterval:
		return o.interval
	}
	return nil
}

func (o Offset) String() string {
	switch o.kind {
	case offsetAbsolute:
		return strconv.FormatInt(o.position, 10)
	case offsetTimestamp:
		return o.at.Format(time.RFC3339)
	case offsetNone:
		return ""
	}
	return o.arg().(string)
}
