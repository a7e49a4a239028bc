package nats

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/f0mster/xpctoolbox/pkg/rpc"
)

const queueGroup = "xpctoolbox"

type Rpc struct {
	timeout    time.Duration
	connection *nats.Conn
}

var _ rpc.RPC = (*Rpc)(nil)

// New connects to a NATS server. A zero timeout waits for replies forever.
func New(addr string, timeout time.Duration) (inst *Rpc, err error) {
	conn, err := nats.Connect(addr)
	if err != nil {
		return
	}
	inst = &Rpc{timeout: timeout, connection: conn}
	return
}

func (r *Rpc) Close() {
	r.connection.Close()
}

func (r *Rpc) Call(namespace string, arguments []byte, reply func(response []byte, err error)) error {
	sreq, err := json.Marshal(rpc.RequestMsg{Arguments: arguments})
	if err != nil {
		return err
	}

	once := sync.Once{}
	var timer *time.Timer
	inbox := nats.NewInbox()
	sub, err := r.connection.Subscribe(inbox, func(msg *nats.Msg) {
		once.Do(func() {
			if timer != nil {
				timer.Stop()
			}
			reply(rpc.DecodeResponse(msg.Data))
		})
	})
	if err != nil {
		return err
	}
	if err = sub.AutoUnsubscribe(1); err != nil {
		_ = sub.Unsubscribe()
		return err
	}
	if r.timeout > 0 {
		timer = time.AfterFunc(r.timeout, func() {
			once.Do(func() {
				_ = sub.Unsubscribe()
				reply(nil, status.New(codes.DeadlineExceeded, "no reply before timeout").Err())
			})
		})
	}
	if err = r.connection.PublishRequest(namespace, inbox, sreq); err != nil {
		if timer != nil {
			timer.Stop()
		}
		_ = sub.Unsubscribe()
		return err
	}
	return nil
}

func (r *Rpc) Listen(namespace string, onRequest rpc.Handler) (context.CancelFunc, error) {
	s, err := r.connection.QueueSubscribe(
		namespace,
		queueGroup,
		func(msg *nats.Msg) {
			respond := func(response []byte, err error) {
				res, err := rpc.EncodeResponse(response, err)
				if err != nil {
					return
				}
				_ = msg.Respond(res)
			}
			req := rpc.RequestMsg{}
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				respond(nil, status.Errorf(codes.InvalidArgument, "malformed request: %v", err))
				return
			}
			onRequest(req.Arguments, respond)
		},
	)
	if err != nil {
		return nil, err
	}
	if err = r.connection.Flush(); err != nil {
		_ = s.Unsubscribe()
		return nil, err
	}
	return func() {
		_ = s.Unsubscribe()
	}, nil
}
