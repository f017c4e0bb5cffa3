package reminder

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// Encoder serializes dispatch envelopes and the events pushed to live
// connections.
type Encoder interface {
	Encode(any) ([]byte, error)
	Decode([]byte, any) error
}

// JSONEncoder writes with encoding/json, whose field order is stable on the
// wire, and reads with sonic.
type JSONEncoder struct{}

func (*JSONEncoder) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (*JSONEncoder) Decode(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

// DefaultEncoder is shared by components that are not given an Encoder.
var DefaultEncoder Encoder = &JSONEncoder{}

func orDefaultEncoder(e Encoder) Encoder {
	if e == nil {
		return DefaultEncoder
	}
	return e
}

// Validate reports whether m can be acted on by a consumer.
func (m Message) Validate() error {
	switch {
	case m.ID == "":
		return fmt.Errorf("%w: missing id", ErrBadEnvelope)
	case m.TaskID == "":
		return fmt.Errorf("%w: missing task id", ErrBadEnvelope)
	case m.EnqueuedAt <= 0:
		return fmt.Errorf("%w: missing enqueue time", ErrBadEnvelope)
	case m.DueAt < m.EnqueuedAt:
		return fmt.Errorf("%w: due before enqueue", ErrBadEnvelope)
	}
	return nil
}

// EncodeMessage validates m and serializes it with enc.
func EncodeMessage(enc Encoder, m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return orDefaultEncoder(enc).Encode(m)
}

// DecodeMessage parses a scheduler payload. Both malformed bytes and
// envelopes that fail Validate return an error wrapping ErrBadEnvelope,
// which schedulers treat as a poison message.
func DecodeMessage(enc Encoder, raw []byte) (Message, error) {
	var m Message
	if err := orDefaultEncoder(enc).Decode(raw, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}
