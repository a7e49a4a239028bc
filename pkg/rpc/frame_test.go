package rpc_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/f0mster/xpctoolbox/pkg/rpc"
)

func TestResponseFrame(t *testing.T) {
	data, err := rpc.EncodeResponse([]byte("pong"), nil)
	require.NoError(t, err)
	resp, err := rpc.DecodeResponse(data)
	require.NoError(t, err)
	require.Equal(t, []byte("pong"), resp)

	data, err = rpc.EncodeResponse(nil, status.Error(codes.PermissionDenied, "rejected"))
	require.NoError(t, err)
	_, err = rpc.DecodeResponse(data)
	require.Equal(t, codes.PermissionDenied, status.Code(err))
	require.Equal(t, "rejected", status.Convert(err).Message())

	data, err = rpc.EncodeResponse(nil, errors.New("plain"))
	require.NoError(t, err)
	_, err = rpc.DecodeResponse(data)
	require.Equal(t, codes.Unknown, status.Code(err))
	require.Equal(t, "plain", status.Convert(err).Message())

	_, err = rpc.DecodeResponse([]byte("{"))
	require.Equal(t, codes.Internal, status.Code(err))
}
