package xpc

import (
	"encoding/json"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type kind uint8

const (
	kindConnect kind = iota + 1
	kindMessage
	kindCancel
)

// envelope is what sessions and listeners put on the transport.
type envelope struct {
	Kind    kind   `json:"k"`
	Session string `json:"s"`
	// Peer is the namespace the sending session listens on.
	Peer    string `json:"p,omitempty"`
	Context []byte `json:"c,omitempty"`
	Format  Format `json:"f,omitempty"`
	Payload []byte `json:"d,omitempty"`
	NoReply bool   `json:"n,omitempty"`
}

type replyFrame struct {
	Format  Format `json:"f,omitempty"`
	Payload []byte `json:"d,omitempty"`
}

func decodeEnvelope(data []byte) (envelope, error) {
	env := envelope{}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, status.Errorf(codes.InvalidArgument, "malformed envelope: %v", err)
	}
	return env, nil
}

func (e envelope) message() *Message {
	return &Message{format: e.Format, data: e.Payload}
}

func encodeReply(reply interface{}) ([]byte, error) {
	frame := replyFrame{}
	if reply != nil {
		format, data, err := encode(reply)
		if err != nil {
			return nil, err
		}
		frame = replyFrame{Format: format, Payload: data}
	}
	return json.Marshal(frame)
}

func decodeReply(data []byte) (*Message, error) {
	if len(data) == 0 {
		return &Message{}, nil
	}
	frame := replyFrame{}
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, NewRemoteError(codes.Internal, "malformed reply: %v", err)
	}
	return &Message{format: frame.Format, data: frame.Payload}, nil
}
