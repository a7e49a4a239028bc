package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/f0mster/xpctoolbox/pkg/rpc"
)

const queueSize = 10000

type RPCTransport struct {
	id          uuid.UUID
	timeout     time.Duration
	cancelfuncs map[uuid.UUID]context.CancelFunc
	queues      map[string]*namespaceQueue
	mutex       sync.Mutex
}

var _ rpc.RPC = (*RPCTransport)(nil)

type namespaceQueue struct {
	ch        chan requestMsg
	listeners int
}

type responseMsg struct {
	Response []byte
	Err      error
}

type requestMsg struct {
	Arguments  []byte
	ResponseTo chan responseMsg
}

// New returns an in-process transport. A zero timeout waits for replies
// forever.
func New(timeout time.Duration) (inst *RPCTransport) {
	return &RPCTransport{
		id:          uuid.New(),
		timeout:     timeout,
		cancelfuncs: map[uuid.UUID]context.CancelFunc{},
		queues:      map[string]*namespaceQueue{},
	}
}

func (r *RPCTransport) GetRPCAddress() string {
	return fmt.Sprintf("memory://%s", r.id.String())
}

// Close stops every listener started on r.
func (r *RPCTransport) Close() {
	r.mutex.Lock()
	cancels := make([]context.CancelFunc, 0, len(r.cancelfuncs))
	for _, cancelfunc := range r.cancelfuncs {
		cancels = append(cancels, cancelfunc)
	}
	r.mutex.Unlock()
	for _, cancelfunc := range cancels {
		cancelfunc()
	}
}

func (r *RPCTransport) queue(namespace string) *namespaceQueue {
	q, ok := r.queues[namespace]
	if !ok {
		q = &namespaceQueue{ch: make(chan requestMsg, queueSize)}
		r.queues[namespace] = q
	}
	return q
}

func (r *RPCTransport) Call(namespace string, arguments []byte, reply func(response []byte, err error)) error {
	respCh := make(chan responseMsg, 1)
	req := requestMsg{
		Arguments:  arguments,
		ResponseTo: respCh,
	}

	r.mutex.Lock()
	q := r.queue(namespace)
	// if queue is full - drop request and return ResourceExhausted status.
	select {
	case q.ch <- req:
	default:
		r.mutex.Unlock()
		return status.New(codes.ResourceExhausted, "queue is full").Err()
	}
	r.mutex.Unlock()

	go func() {
		var timeout <-chan time.Time
		if r.timeout > 0 {
			timer := time.NewTimer(r.timeout)
			defer timer.Stop()
			timeout = timer.C
		}
		select {
		case <-timeout:
			reply(nil, status.New(codes.DeadlineExceeded, "no reply before timeout").Err())
		case resp := <-respCh:
			reply(resp.Response, resp.Err)
		}
	}()
	return nil
}

func (r *RPCTransport) Listen(namespace string, onRequest rpc.Handler) (context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()

	r.mutex.Lock()
	q := r.queue(namespace)
	q.listeners++
	ch := q.ch
	once := sync.Once{}
	stop := func() {
		once.Do(func() {
			cancel()
			r.mutex.Lock()
			delete(r.cancelfuncs, id)
			q.listeners--
			if q.listeners == 0 {
				// nobody is left to answer queued requests
				delete(r.queues, namespace)
				drain(q.ch)
			}
			r.mutex.Unlock()
		})
	}
	r.cancelfuncs[id] = stop
	r.mutex.Unlock()

	go func() {
		for {
			select {
			case req := <-ch:
				onRequest(req.Arguments, respondOnce(req.ResponseTo))
			case <-ctx.Done():
				return
			}
		}
	}()

	return stop, nil
}

func respondOnce(ch chan responseMsg) func(response []byte, err error) {
	once := sync.Once{}
	return func(response []byte, err error) {
		once.Do(func() {
			ch <- responseMsg{Response: response, Err: err}
		})
	}
}

func drain(ch chan requestMsg) {
	for {
		select {
		case req := <-ch:
			req.ResponseTo <- responseMsg{Err: status.New(codes.Unavailable, "listener went away").Err()}
		default:
			return
		}
	}
}
