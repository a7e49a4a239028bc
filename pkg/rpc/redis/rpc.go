package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mediocregopher/radix/v3"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/f0mster/xpctoolbox/pkg/rpc"
)

// idle listeners poll this often in case a wake-up was published before
// they subscribed
const pollInterval = 100 * time.Millisecond

type Rpc struct {
	pool    *radix.Pool
	pubsub  radix.PubSubConn
	timeout time.Duration
}

var _ rpc.RPC = (*Rpc)(nil)

// New connects to redis. A zero timeout waits for replies forever.
func New(network, addr string, poolsize int, timeout time.Duration) (inst *Rpc, err error) {
	inst = &Rpc{timeout: timeout}
	inst.pool, err = radix.NewPool(network, addr, poolsize)
	if err != nil {
		return nil, err
	}
	inst.pubsub, err = radix.PersistentPubSubWithOpts(network, addr)
	if err != nil {
		inst.pool.Close()
		return nil, err
	}
	return
}

func (r *Rpc) Close() {
	r.pool.Close()
	r.pubsub.Close()
}

func queueKey(namespace string) string {
	return namespace + "queue"
}

func wakeTopic(namespace string) string {
	return namespace + "queuePS"
}

func (r *Rpc) Call(namespace string, arguments []byte, reply func(response []byte, err error)) error {
	msgCh := make(chan radix.PubSubMessage, 1)
	myTopic := "reply." + uuid.NewString()
	if err := r.pubsub.Subscribe(msgCh, myTopic); err != nil {
		return err
	}
	sreq, err := json.Marshal(rpc.RequestMsg{Arguments: arguments, ResponseTo: myTopic})
	if err != nil {
		_ = r.pubsub.Unsubscribe(msgCh, myTopic)
		return err
	}
	if err = r.pool.Do(radix.Cmd(nil, "RPUSH", queueKey(namespace), string(sreq))); err != nil {
		_ = r.pubsub.Unsubscribe(msgCh, myTopic)
		return err
	}
	// listeners poll anyway, a lost wake-up only costs latency
	_ = r.pool.Do(radix.Cmd(nil, "PUBLISH", wakeTopic(namespace), "1"))

	go func() {
		var timeout <-chan time.Time
		if r.timeout > 0 {
			timer := time.NewTimer(r.timeout)
			defer timer.Stop()
			timeout = timer.C
		}
		var (
			response []byte
			err      error
		)
		select {
		case <-timeout:
			err = status.New(codes.DeadlineExceeded, "no reply before timeout").Err()
		case msg := <-msgCh:
			response, err = rpc.DecodeResponse(msg.Message)
		}
		_ = r.pubsub.Unsubscribe(msgCh, myTopic)
		reply(response, err)
	}()
	return nil
}

func (r *Rpc) Listen(namespace string, onRequest rpc.Handler) (context.CancelFunc, error) {
	msgCh := make(chan radix.PubSubMessage, 100)
	if err := r.pubsub.Subscribe(msgCh, wakeTopic(namespace)); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			var val string
			mn := radix.MaybeNil{Rcv: &val}
			if err := r.pool.Do(radix.Cmd(&mn, "LPOP", queueKey(namespace))); err != nil {
				if ctx.Err() != nil {
					return
				}
			} else if !mn.Nil && len(val) > 0 {
				r.serve(val, onRequest)
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-msgCh:
			case <-ticker.C:
			}
		}
	}()

	once := sync.Once{}
	return func() {
		once.Do(func() {
			cancel()
			<-stopped
			_ = r.pubsub.Unsubscribe(msgCh, wakeTopic(namespace))
		})
	}, nil
}

func (r *Rpc) serve(raw string, onRequest rpc.Handler) {
	req := rpc.RequestMsg{}
	if err := json.Unmarshal([]byte(raw), &req); err != nil || req.ResponseTo == "" {
		// nowhere to send the failure to
		return
	}
	onRequest(req.Arguments, func(response []byte, err error) {
		res, err := rpc.EncodeResponse(response, err)
		if err != nil {
			return
		}
		_ = r.pool.Do(radix.Cmd(nil, "PUBLISH", req.ResponseTo, string(res)))
	})
}
