package rpc

import (
	"context"
)

// Transports are not meant to be used directly. Channels built on top of
// them take care of framing, sessions and delivery queues.

// Handler serves one request. A listener invokes its handler sequentially in
// arrival order, so a handler should hand work off instead of blocking.
// respond must be called exactly once; it may be called from any goroutine
// after Handler returns.
type Handler func(request []byte, respond func(response []byte, err error))

// Caller is the one-shot request primitive. Call enqueues request before it
// returns, so requests issued one after another on the same namespace reach
// the listener in that order. reply is invoked exactly once unless Call
// itself returns an error, in which case it is never invoked. reply never
// runs before Call returns, so callers may hold locks across Call.
type Caller interface {
	Call(namespace string, request []byte, reply func(response []byte, err error)) error
}

type Listener interface {
	Listen(namespace string, onRequest Handler) (context.CancelFunc, error)
}

// RPC defines the common interface for the Remote Procedure Call technology
type RPC interface {
	Caller
	Listener
}
