package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ResponseMsg is how networked transports put a reply on the wire. Errors
// keep their gRPC code across the hop.
type ResponseMsg struct {
	Response []byte `json:",omitempty"`
	Err      string `json:",omitempty"`
	Code     uint32 `json:",omitempty"`
}

type RequestMsg struct {
	Arguments  []byte
	ResponseTo string `json:",omitempty"`
}

func EncodeResponse(response []byte, err error) ([]byte, error) {
	msg := ResponseMsg{Response: response}
	if err != nil {
		st := status.Convert(err)
		msg = ResponseMsg{Err: st.Message(), Code: uint32(st.Code())}
	}
	return json.Marshal(msg)
}

func DecodeResponse(data []byte) ([]byte, error) {
	msg := ResponseMsg{}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, status.Errorf(codes.Internal, "malformed response: %v", err)
	}
	if codes.Code(msg.Code) != codes.OK {
		return nil, status.Error(codes.Code(msg.Code), msg.Err)
	}
	return msg.Response, nil
}
