package xpc

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrServiceNotFound is returned by constructors when no listener is
	// published under the requested name.
	ErrServiceNotFound = errors.New("xpc: service not found")
	ErrEmptyPayload    = errors.New("xpc: message has no payload")
)

// RemoteError describes a failure on the far side of a channel or on the way
// there: the peer went away, rejected the session, its handler failed or the
// transport gave up.
type RemoteError struct {
	st *status.Status
}

func NewRemoteError(code codes.Code, format string, args ...interface{}) *RemoteError {
	return &RemoteError{st: status.Newf(code, format, args...)}
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("xpc: remote error: %s: %s", e.st.Code(), e.st.Message())
}

func (e *RemoteError) Code() codes.Code {
	return e.st.Code()
}

func (e *RemoteError) Message() string {
	return e.st.Message()
}

func (e *RemoteError) GRPCStatus() *status.Status {
	return e.st
}

// AsRemoteError converts a transport error. Errors carrying a gRPC status
// keep their code, anything else becomes codes.Unknown.
func AsRemoteError(err error) *RemoteError {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re
	}
	return &RemoteError{st: status.Convert(err)}
}

func errCanceled(reason string) *RemoteError {
	return NewRemoteError(codes.Canceled, "%s", reason)
}
