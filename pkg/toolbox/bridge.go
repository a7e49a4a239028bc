package toolbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/f0mster/xpctoolbox/pkg/queue"
	"github.com/f0mster/xpctoolbox/pkg/xpc"
)

// Sender is the one-shot primitive calls are made over. *xpc.Session
// implements it.
type Sender interface {
	// SendWithReply enqueues msg and calls reply exactly once with the
	// result, unless it returns an error itself.
	SendWithReply(ctx context.Context, msg interface{}, reply func(*xpc.Message, error)) error
	// Queue is the queue reply runs on.
	Queue() *queue.Queue
}

var _ Sender = (*xpc.Session)(nil)

// Call is a request waiting for its reply.
type Call[R any] struct {
	once  sync.Once
	done  chan struct{}
	reply R
	err   error
}

func newCall[R any]() *Call[R] {
	return &Call[R]{done: make(chan struct{})}
}

func (c *Call[R]) settle(reply R, err error) {
	c.once.Do(func() {
		c.reply, c.err = reply, err
		close(c.done)
	})
}

func (c *Call[R]) fail(err error) {
	var zero R
	c.settle(zero, err)
}

// Done is closed once the call is settled.
func (c *Call[R]) Done() <-chan struct{} {
	return c.done
}

// Result waits for the call to settle.
func (c *Call[R]) Result() (R, error) {
	<-c.done
	return c.reply, c.err
}

// Go sends msg over s and returns without waiting. The reply is decoded into
// R; use *xpc.Message to get it undecoded.
func Go[R any](ctx context.Context, s Sender, msg interface{}) *Call[R] {
	c := newCall[R]()
	err := s.SendWithReply(ctx, msg, func(m *xpc.Message, err error) {
		if err != nil {
			c.fail(err)
			return
		}
		c.settle(xpc.Decode[R](m))
	})
	if err != nil {
		c.fail(err)
	}
	return c
}

// Send sends msg and waits for the reply or for ctx to be done. A message
// already sent is not taken back when ctx is done first.
func Send[R any](ctx context.Context, s Sender, msg interface{}) (R, error) {
	c := Go[R](ctx, s, msg)
	select {
	case <-c.Done():
		return c.Result()
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

func SendMessage(ctx context.Context, s Sender, msg interface{}) (*xpc.Message, error) {
	return Send[*xpc.Message](ctx, s, msg)
}

func SendDictionary(ctx context.Context, s Sender, msg xpc.Dictionary) (xpc.Dictionary, error) {
	return Send[xpc.Dictionary](ctx, s, msg)
}

func SendEmpty[R any](ctx context.Context, s Sender) (R, error) {
	return Send[R](ctx, s, xpc.EmptyPayload)
}

func SendEmptyMessage(ctx context.Context, s Sender) (*xpc.Message, error) {
	return SendMessage(ctx, s, xpc.EmptyPayload)
}

func SendEmptyDictionary(ctx context.Context, s Sender) (xpc.Dictionary, error) {
	return SendDictionary(ctx, s, xpc.Dictionary{})
}

// SendSync sends msg and blocks until the reply arrives or s is canceled.
// ctx only carries metadata; it does not end the wait.
//
// Calling SendSync with a context handed out by s's own queue panics: the
// reply would have to run on the queue the caller is blocking.
func SendSync[R any](ctx context.Context, s Sender, msg interface{}) (R, error) {
	if q := s.Queue(); q.IsCurrent(ctx) {
		panic(fmt.Sprintf("toolbox: SendSync called from the delivery queue %q of its own channel", q.Label()))
	}
	return Go[R](ctx, s, msg).Result()
}

func SendSyncMessage(ctx context.Context, s Sender, msg interface{}) (*xpc.Message, error) {
	return SendSync[*xpc.Message](ctx, s, msg)
}

func SendSyncDictionary(ctx context.Context, s Sender, msg xpc.Dictionary) (xpc.Dictionary, error) {
	return SendSync[xpc.Dictionary](ctx, s, msg)
}

func SendSyncEmpty[R any](ctx context.Context, s Sender) (R, error) {
	return SendSync[R](ctx, s, xpc.EmptyPayload)
}

func SendSyncEmptyMessage(ctx context.Context, s Sender) (*xpc.Message, error) {
	return SendSyncMessage(ctx, s, xpc.EmptyPayload)
}

func SendSyncEmptyDictionary(ctx context.Context, s Sender) (xpc.Dictionary, error) {
	return SendSyncDictionary(ctx, s, xpc.Dictionary{})
}
