package xpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// MethodCall is what generated service clients send: the method to call and
// its request as protojson. Generated handlers route on Method.
type MethodCall struct {
	Method  string          `json:"m"`
	Request json.RawMessage `json:"r,omitempty"`
}

func NewMethodCall(method string, req proto.Message) (MethodCall, error) {
	data, err := protojson.Marshal(req)
	if err != nil {
		return MethodCall{}, fmt.Errorf("xpc: encode %s request: %w", method, err)
	}
	return MethodCall{Method: method, Request: data}, nil
}

// Decode decodes the request into req. A call without request leaves req
// untouched.
func (c MethodCall) Decode(req proto.Message) error {
	if len(c.Request) == 0 {
		return nil
	}
	return protojson.Unmarshal(c.Request, req)
}
