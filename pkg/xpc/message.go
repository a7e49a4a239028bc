package xpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Format is the encoding of a message payload.
type Format uint8

const (
	FormatJSON Format = iota
	FormatProto
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatProto:
		return "proto"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// EmptyPayload is sent by the typed and raw message calls that take no
// payload.
const EmptyPayload uint8 = 0

// Dictionary is a key/value message. It always travels as JSON.
type Dictionary map[string]interface{}

// Message is a received message that has not been decoded yet.
type Message struct {
	format Format
	data   []byte
}

// NewMessage wraps an already encoded payload. Sending it forwards data
// unchanged.
func NewMessage(format Format, data []byte) *Message {
	return &Message{format: format, data: data}
}

func (m *Message) Format() Format {
	return m.format
}

func (m *Message) Bytes() []byte {
	return m.data
}

func (m *Message) String() string {
	return fmt.Sprintf("%s message (%d bytes)", m.format, len(m.data))
}

// Decode decodes the payload into v. Protobuf messages are accepted in both
// formats. A proto payload may be empty: a message with only default fields
// encodes to no bytes.
func (m *Message) Decode(v interface{}) error {
	if m == nil {
		return ErrEmptyPayload
	}
	pm, isProto := v.(proto.Message)
	switch m.format {
	case FormatProto:
		if !isProto {
			return fmt.Errorf("xpc: cannot decode proto payload into %T", v)
		}
		return proto.Unmarshal(m.data, pm)
	case FormatJSON:
		if len(m.data) == 0 {
			return ErrEmptyPayload
		}
		if isProto {
			return protojson.Unmarshal(m.data, pm)
		}
		return json.Unmarshal(m.data, v)
	}
	return fmt.Errorf("xpc: unknown payload format %s", m.format)
}

// Decode decodes m into a new T. T may be a pointer to a generated protobuf
// message, or *Message to get m itself.
func Decode[T any](m *Message) (T, error) {
	var v T
	if mm, ok := interface{}(m).(T); ok {
		return mm, nil
	}
	if pm, ok := interface{}(v).(proto.Message); ok {
		msg := pm.ProtoReflect().New().Interface()
		if err := m.Decode(msg); err != nil {
			return v, err
		}
		return msg.(T), nil
	}
	err := m.Decode(&v)
	return v, err
}

func encode(v interface{}) (Format, []byte, error) {
	switch msg := v.(type) {
	case *Message:
		return msg.format, msg.data, nil
	case proto.Message:
		data, err := proto.Marshal(msg)
		if err != nil {
			return FormatProto, nil, fmt.Errorf("xpc: encode %T: %w", v, err)
		}
		return FormatProto, data, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return FormatJSON, nil, fmt.Errorf("xpc: encode %T: %w", v, err)
	}
	return FormatJSON, data, nil
}
