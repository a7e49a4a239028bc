package xpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/f0mster/xpctoolbox/pkg/queue"
	"github.com/f0mster/xpctoolbox/pkg/registry"
	"github.com/f0mster/xpctoolbox/pkg/servicename"
)

const (
	roleSession = "session"
	rolePeer    = "peer"
)

type SessionConfig struct {
	Network
	// TargetQueue runs handlers and reply callbacks. nil means queue.Default().
	TargetQueue *queue.Queue
	Options     Options
	// IncomingMessageHandler handles messages the service sends on its own.
	// Optional.
	IncomingMessageHandler MessageHandler
	// CancellationHandler runs once on the target queue when the session is
	// canceled, whoever canceled it. Optional.
	CancellationHandler func(err *RemoteError)
}

// Session is one end of a channel. Client sessions are created with
// NewSystemSession or NewAppSession; listeners create the peer sessions on
// their side.
type Session struct {
	id      string
	name    string
	role    string
	remote  string
	local   string
	network Network
	queue   *queue.Queue

	activateMu sync.Mutex

	mu        sync.Mutex
	state     State
	handler   MessageHandler
	onCancel  func(err *RemoteError)
	onClose   func()
	pending   map[uint64]pendingCall
	nextID    uint64
	cancelErr *RemoteError

	stopListen context.CancelFunc
	stopWatch  registry.CancelFunc
	cancelOnce sync.Once
}

type pendingCall struct {
	reply func(*Message, error)
	// direct replies skip the target queue
	direct bool
}

func (p pendingCall) settle(q *queue.Queue, msg *Message, err error) {
	if p.direct {
		p.reply(msg, err)
		return
	}
	q.Async(func(context.Context) {
		p.reply(msg, err)
	})
}

// NewSystemSession connects to a service published in the system namespace.
func NewSystemSession(name servicename.SystemServiceName, cfg SessionConfig) (*Session, error) {
	return newSession(servicename.SchemeSystem.Namespace(name.RawValue()), cfg)
}

// NewAppSession connects to a service published in the application
// namespace.
func NewAppSession(name servicename.AppServiceName, cfg SessionConfig) (*Session, error) {
	return newSession(servicename.SchemeApp.Namespace(name.RawValue()), cfg)
}

func newSession(namespace string, cfg SessionConfig) (*Session, error) {
	if err := cfg.Network.check(); err != nil {
		return nil, err
	}
	if len(cfg.Registry.Instances(namespace)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, namespace)
	}
	id := uuid.NewString()
	s := &Session{
		id:       id,
		name:     namespace,
		role:     roleSession,
		remote:   namespace,
		local:    "peer/" + id,
		network:  cfg.Network,
		queue:    cfg.TargetQueue,
		handler:  cfg.IncomingMessageHandler,
		onCancel: cfg.CancellationHandler,
		pending:  map[uint64]pendingCall{},
	}
	if s.queue == nil {
		s.queue = queue.Default()
	}
	if cfg.Options.has(OptionInactive) {
		return s, nil
	}
	if err := s.Activate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// Name is the scheme qualified name of the service.
func (s *Session) Name() string {
	return s.name
}

func (s *Session) Queue() *queue.Queue {
	return s.queue
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Activate connects an inactive session to its service and waits for the
// service to accept it. Activating an active session does nothing. A
// rejected session is canceled and the rejection is returned.
func (s *Session) Activate() error {
	s.activateMu.Lock()
	defer s.activateMu.Unlock()

	s.mu.Lock()
	switch s.state {
	case StateActive:
		s.mu.Unlock()
		return nil
	case StateCanceled:
		err := s.cancelErr
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	stopListen, err := s.network.RPC.Listen(s.local, s.serve)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.stopListen = stopListen
	s.stopWatch = s.network.Registry.WatchUnregistered(s.remote, func() {
		s.invalidate(NewRemoteError(codes.Unavailable, "service %s unregistered", s.remote), false)
	})
	s.mu.Unlock()

	// the watch only sees the service go away from now on
	if len(s.network.Registry.Instances(s.remote)) == 0 {
		s.invalidate(NewRemoteError(codes.NotFound, "service %s not found", s.remote), false)
		return fmt.Errorf("%w: %s", ErrServiceNotFound, s.remote)
	}

	done := make(chan error, 1)
	env := envelope{Kind: kindConnect, Session: s.id, Peer: s.local}
	connected := pendingCall{reply: func(_ *Message, err error) { done <- err }, direct: true}
	if err = s.call(env, connected); err != nil {
		s.invalidate(AsRemoteError(err), false)
		return err
	}
	if err = <-done; err != nil {
		re := AsRemoteError(err)
		s.invalidate(re, false)
		return re
	}

	s.mu.Lock()
	if s.state != StateInactive {
		err := s.cancelErr
		s.mu.Unlock()
		return err
	}
	s.state = StateActive
	s.mu.Unlock()
	s.network.publishState(s.name, StateEvent{ID: s.id, Role: s.role, State: StateActive})
	return nil
}

// Cancel tears the session down. Calls still waiting for a reply fail with
// codes.Canceled and the other end is told the session is gone.
func (s *Session) Cancel() {
	s.invalidate(errCanceled("session canceled"), true)
}

// SendWithReply sends msg and calls reply exactly once, on the target queue,
// with the reply or the failure. Messages sent on one session are enqueued in
// the order SendWithReply is called. When SendWithReply returns an error,
// reply is never called.
//
// Sending on a session that was never activated is a programming error and
// panics.
func (s *Session) SendWithReply(ctx context.Context, msg interface{}, reply func(*Message, error)) error {
	if reply == nil {
		return fmt.Errorf("xpc: reply handler must be set")
	}
	env, err := s.message(ctx, msg, false)
	if err != nil {
		return err
	}
	return s.call(env, pendingCall{reply: reply})
}

// Send sends msg without waiting for a reply.
func (s *Session) Send(ctx context.Context, msg interface{}) error {
	env, err := s.message(ctx, msg, true)
	if err != nil {
		return err
	}
	return s.call(env, pendingCall{reply: func(*Message, error) {}, direct: true})
}

func (s *Session) message(ctx context.Context, msg interface{}, noReply bool) (envelope, error) {
	if s.State() == StateInactive {
		panic(fmt.Sprintf("xpc: message sent on session %s to %s before it was activated", s.id, s.name))
	}
	format, data, err := encode(msg)
	if err != nil {
		return envelope{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	mctx, err := s.network.ContextMarshaller.Marshal(ctx)
	if err != nil {
		return envelope{}, fmt.Errorf("xpc: marshal context: %w", err)
	}
	return envelope{
		Kind:    kindMessage,
		Session: s.id,
		Peer:    s.local,
		Context: mctx,
		Format:  format,
		Payload: data,
		NoReply: noReply,
	}, nil
}

// call enqueues env under the session lock, so the transport sees messages
// in call order and Cancel never misses a pending reply.
func (s *Session) call(env envelope, p pendingCall) error {
	req, err := json.Marshal(env)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCanceled {
		return s.cancelErr
	}
	s.nextID++
	id := s.nextID
	s.pending[id] = p
	if err = s.network.RPC.Call(s.remote, req, func(response []byte, err error) {
		s.complete(id, response, err)
	}); err != nil {
		delete(s.pending, id)
		return AsRemoteError(err)
	}
	return nil
}

func (s *Session) complete(id uint64, response []byte, err error) {
	s.mu.Lock()
	p, ok := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()
	if !ok {
		// canceled meanwhile, already settled
		return
	}

	var msg *Message
	if err != nil {
		err = AsRemoteError(err)
	} else {
		msg, err = decodeReply(response)
	}
	p.settle(s.queue, msg, err)
}

func (s *Session) invalidate(reason *RemoteError, notifyPeer bool) {
	s.cancelOnce.Do(func() {
		s.mu.Lock()
		prev := s.state
		s.state = StateCanceled
		s.cancelErr = reason
		pending := s.pending
		s.pending = map[uint64]pendingCall{}
		stopListen, stopWatch := s.stopListen, s.stopWatch
		onCancel, onClose := s.onCancel, s.onClose
		s.mu.Unlock()

		if stopWatch != nil {
			stopWatch()
		}
		if notifyPeer && prev == StateActive {
			s.notifyCanceled()
		}
		if stopListen != nil {
			stopListen()
		}
		if onClose != nil {
			onClose()
		}
		for _, p := range pending {
			p.settle(s.queue, nil, reason)
		}
		if onCancel != nil {
			s.queue.Async(func(context.Context) {
				onCancel(reason)
			})
		}
		s.network.publishState(s.name, StateEvent{ID: s.id, Role: s.role, State: StateCanceled})
	})
}

func (s *Session) notifyCanceled() {
	req, err := json.Marshal(envelope{Kind: kindCancel, Session: s.id, Peer: s.local})
	if err != nil {
		return
	}
	if err = s.network.RPC.Call(s.remote, req, func([]byte, error) {}); err != nil {
		s.network.Logger.Error(err, "notify peer of cancellation", s.name, s.id)
	}
}

// serve handles what the service sends to a client session.
func (s *Session) serve(request []byte, respond func([]byte, error)) {
	env, err := decodeEnvelope(request)
	if err != nil {
		respond(nil, err)
		return
	}
	switch env.Kind {
	case kindMessage:
		s.deliver(env, respond)
	case kindCancel:
		respond(nil, nil)
		s.invalidate(errCanceled("peer canceled the session"), false)
	default:
		respond(nil, status.Errorf(codes.InvalidArgument, "unexpected envelope kind %d", env.Kind))
	}
}

// deliver runs the message handler on the target queue and sends back what
// it returns.
func (s *Session) deliver(env envelope, respond func([]byte, error)) {
	s.mu.Lock()
	handler, state := s.handler, s.state
	s.mu.Unlock()

	if state != StateActive {
		respond(nil, status.Errorf(codes.Unavailable, "session is %s", state))
		return
	}
	if env.NoReply {
		respond(nil, nil)
	}
	if handler == nil {
		if !env.NoReply {
			respond(nil, status.Error(codes.Unimplemented, "no incoming message handler"))
		}
		return
	}

	s.queue.Async(func(qctx context.Context) {
		ctx, cancel, err := s.network.ContextMarshaller.Unmarshal(qctx, env.Context)
		if err != nil {
			ctx, cancel = context.WithCancel(qctx)
		}
		defer cancel()

		reply, err := handler(ctx, env.message())
		if env.NoReply {
			return
		}
		if err != nil {
			respond(nil, err)
			return
		}
		data, err := encodeReply(reply)
		if err != nil {
			respond(nil, status.Errorf(codes.Internal, "encode reply: %v", err))
			return
		}
		respond(data, nil)
	})
}
