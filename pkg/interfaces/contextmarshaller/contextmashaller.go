package contextmarshaller

import "context"

// ContextMarshaller carries the parts of a caller's context that survive a
// trip to the remote side of a channel.
type ContextMarshaller interface {
	Marshal(ctx context.Context) ([]byte, error)
	// Unmarshal restores data on top of parent, which is usually the context
	// handed out by the receiving delivery queue.
	Unmarshal(parent context.Context, data []byte) (context.Context, context.CancelFunc, error)
}
