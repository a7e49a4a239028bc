package xpc

import "context"

// MessageHandler handles a message from the other end of a session. ctx
// belongs to the session's target queue and carries the sender's metadata.
// The reply is sent back when the sender waits for one; a nil reply is sent
// as a message without payload.
type MessageHandler func(ctx context.Context, msg *Message) (reply interface{}, err error)

// HandleTyped decodes incoming messages into M before calling fn.
func HandleTyped[M any](fn func(ctx context.Context, msg M) (interface{}, error)) MessageHandler {
	return func(ctx context.Context, msg *Message) (interface{}, error) {
		m, err := Decode[M](msg)
		if err != nil {
			return nil, err
		}
		return fn(ctx, m)
	}
}

// HandleDictionary decodes incoming messages into a Dictionary before
// calling fn.
func HandleDictionary(fn func(ctx context.Context, msg Dictionary) (Dictionary, error)) MessageHandler {
	return func(ctx context.Context, msg *Message) (interface{}, error) {
		d, err := Decode[Dictionary](msg)
		if err != nil {
			return nil, err
		}
		reply, err := fn(ctx, d)
		if err != nil || reply == nil {
			return nil, err
		}
		return reply, nil
	}
}
