package xpc_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/f0mster/xpctoolbox/pkg/xpc"
)

func TestMessage_Decode(t *testing.T) {
	_, err := xpc.Decode[string](xpc.NewMessage(xpc.FormatJSON, nil))
	require.ErrorIs(t, err, xpc.ErrEmptyPayload)

	m := xpc.NewMessage(xpc.FormatJSON, []byte(`{"a":1}`))
	d, err := xpc.Decode[xpc.Dictionary](m)
	require.NoError(t, err)
	require.Equal(t, float64(1), d["a"])

	same, err := xpc.Decode[*xpc.Message](m)
	require.NoError(t, err)
	require.Same(t, m, same)

	// json payloads decode into proto messages too
	sv, err := xpc.Decode[*wrapperspb.StringValue](xpc.NewMessage(xpc.FormatJSON, []byte(`"x"`)))
	require.NoError(t, err)
	require.Equal(t, "x", sv.GetValue())

	data, err := proto.Marshal(wrapperspb.Int64(7))
	require.NoError(t, err)
	pm := xpc.NewMessage(xpc.FormatProto, data)
	iv, err := xpc.Decode[*wrapperspb.Int64Value](pm)
	require.NoError(t, err)
	require.Equal(t, int64(7), iv.GetValue())
	_, err = xpc.Decode[int64](pm)
	require.Error(t, err)

	// a proto message with only default fields has no bytes
	zero, err := xpc.Decode[*wrapperspb.StringValue](xpc.NewMessage(xpc.FormatProto, nil))
	require.NoError(t, err)
	require.Equal(t, "", zero.GetValue())
	_, err = xpc.Decode[string](xpc.NewMessage(xpc.FormatProto, nil))
	require.Error(t, err)
	require.Equal(t, "proto message (2 bytes)", pm.String())
}

func TestState_Text(t *testing.T) {
	data, err := json.Marshal(map[string]xpc.State{"s": xpc.StateCanceled})
	require.NoError(t, err)
	require.JSONEq(t, `{"s":"canceled"}`, string(data))

	st := xpc.State(0)
	require.NoError(t, st.UnmarshalText([]byte("active")))
	require.Equal(t, xpc.StateActive, st)
	require.Error(t, st.UnmarshalText([]byte("gone")))
	require.Equal(t, "State(9)", xpc.State(9).String())
}

func TestRemoteError(t *testing.T) {
	err := xpc.NewRemoteError(codes.NotFound, "no %s", "thing")
	require.Equal(t, "xpc: remote error: NotFound: no thing", err.Error())
	require.Equal(t, codes.NotFound, status.Code(err))
	require.Same(t, err, xpc.AsRemoteError(err))
	require.Nil(t, xpc.AsRemoteError(nil))

	re := xpc.AsRemoteError(status.Error(codes.Aborted, "stop"))
	require.Equal(t, codes.Aborted, re.Code())
	require.Equal(t, "stop", re.Message())
}

func TestMethodCall(t *testing.T) {
	call, err := xpc.NewMethodCall("Greet", wrapperspb.String("bob"))
	require.NoError(t, err)

	data, err := json.Marshal(call)
	require.NoError(t, err)
	got, err := xpc.Decode[xpc.MethodCall](xpc.NewMessage(xpc.FormatJSON, data))
	require.NoError(t, err)
	require.Equal(t, "Greet", got.Method)

	req := &wrapperspb.StringValue{}
	require.NoError(t, got.Decode(req))
	require.Equal(t, "bob", req.GetValue())

	untouched := wrapperspb.String("keep")
	require.NoError(t, xpc.MethodCall{Method: "Ping"}.Decode(untouched))
	require.Equal(t, "keep", untouched.GetValue())
	require.Error(t, xpc.MethodCall{Method: "Greet", Request: []byte(`{`)}.Decode(req))
}
