package xpc

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/f0mster/xpctoolbox/pkg/queue"
	"github.com/f0mster/xpctoolbox/pkg/registry"
	"github.com/f0mster/xpctoolbox/pkg/servicename"
)

const roleListener = "listener"

type ListenerConfig struct {
	Network
	// TargetQueue runs the session handler and the handlers of accepted
	// sessions. nil means queue.Default().
	TargetQueue *queue.Queue
	Options     Options
	// IncomingSessionHandler decides on every session a client opens.
	IncomingSessionHandler func(req *IncomingSessionRequest) Decision
}

// Listener publishes a service name and accepts sessions opened against it.
type Listener struct {
	id      string
	name    string
	network Network
	queue   *queue.Queue
	decide  func(req *IncomingSessionRequest) Decision

	activateMu sync.Mutex

	mu         sync.Mutex
	state      State
	peers      map[string]*Session
	stopListen context.CancelFunc
}

// NewSystemListener publishes name in the system namespace.
func NewSystemListener(name servicename.SystemServiceName, cfg ListenerConfig) (*Listener, error) {
	return newListener(servicename.SchemeSystem.Namespace(name.RawValue()), cfg)
}

// NewAppListener publishes name in the application namespace.
func NewAppListener(name servicename.AppServiceName, cfg ListenerConfig) (*Listener, error) {
	return newListener(servicename.SchemeApp.Namespace(name.RawValue()), cfg)
}

func newListener(namespace string, cfg ListenerConfig) (*Listener, error) {
	if err := cfg.Network.check(); err != nil {
		return nil, err
	}
	if cfg.IncomingSessionHandler == nil {
		return nil, fmt.Errorf("incoming session handler must be set")
	}
	l := &Listener{
		id:      uuid.NewString(),
		name:    namespace,
		network: cfg.Network,
		queue:   cfg.TargetQueue,
		decide:  cfg.IncomingSessionHandler,
		peers:   map[string]*Session{},
	}
	if l.queue == nil {
		l.queue = queue.Default()
	}
	if cfg.Options.has(OptionInactive) {
		return l, nil
	}
	if err := l.Activate(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Listener) Name() string {
	return l.name
}

func (l *Listener) Queue() *queue.Queue {
	return l.queue
}

func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Activate starts listening and publishes the name in the registry.
func (l *Listener) Activate() error {
	l.activateMu.Lock()
	defer l.activateMu.Unlock()

	switch l.State() {
	case StateActive:
		return nil
	case StateCanceled:
		return errCanceled("listener canceled")
	}

	stop, err := l.network.RPC.Listen(l.name, l.serve)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.stopListen = stop
	l.state = StateActive
	l.mu.Unlock()

	l.network.Registry.Register(l.name, registry.InstanceId(l.id))
	l.network.Logger.Info("listening", l.name, l.id)
	l.network.publishState(l.name, StateEvent{ID: l.id, Role: roleListener, State: StateActive})
	return nil
}

// Cancel unpublishes the name, stops listening and cancels every accepted
// session.
func (l *Listener) Cancel() {
	l.mu.Lock()
	if l.state == StateCanceled {
		l.mu.Unlock()
		return
	}
	prev := l.state
	l.state = StateCanceled
	stop := l.stopListen
	peers := make([]*Session, 0, len(l.peers))
	for _, p := range l.peers {
		peers = append(peers, p)
	}
	l.mu.Unlock()

	if prev == StateActive {
		l.network.Registry.Unregister(l.name, registry.InstanceId(l.id))
	}
	for _, p := range peers {
		p.Cancel()
	}
	if stop != nil {
		stop()
	}
	l.network.publishState(l.name, StateEvent{ID: l.id, Role: roleListener, State: StateCanceled})
}

func (l *Listener) serve(request []byte, respond func([]byte, error)) {
	env, err := decodeEnvelope(request)
	if err != nil {
		respond(nil, err)
		return
	}
	switch env.Kind {
	case kindConnect:
		l.connect(env, respond)
	case kindMessage:
		p := l.peer(env.Session)
		if p == nil {
			respond(nil, status.Errorf(codes.FailedPrecondition, "unknown session %s", env.Session))
			return
		}
		p.deliver(env, respond)
	case kindCancel:
		respond(nil, nil)
		if p := l.peer(env.Session); p != nil {
			p.invalidate(errCanceled("peer canceled the session"), false)
		}
	default:
		respond(nil, status.Errorf(codes.InvalidArgument, "unexpected envelope kind %d", env.Kind))
	}
}

func (l *Listener) peer(id string) *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peers[id]
}

func (l *Listener) connect(env envelope, respond func([]byte, error)) {
	if env.Session == "" || env.Peer == "" {
		respond(nil, status.Error(codes.InvalidArgument, "connect without session"))
		return
	}
	p := &Session{
		id:      env.Session,
		name:    l.name,
		role:    rolePeer,
		remote:  env.Peer,
		local:   l.name,
		network: l.network,
		queue:   l.queue,
		pending: map[uint64]pendingCall{},
	}
	req := &IncomingSessionRequest{session: p}
	l.queue.Async(func(context.Context) {
		d := l.decide(req)
		if !d.accepted {
			l.network.Logger.Info("session rejected: "+d.reason, l.name, p.id)
			respond(nil, status.Errorf(codes.PermissionDenied, "session rejected: %s", d.reason))
			return
		}

		p.mu.Lock()
		p.handler = d.handler
		p.onCancel = d.onCancel
		p.onClose = func() { l.remove(p) }
		p.mu.Unlock()

		l.mu.Lock()
		if l.state != StateActive {
			l.mu.Unlock()
			respond(nil, status.Error(codes.Unavailable, "listener canceled"))
			return
		}
		if _, dup := l.peers[p.id]; dup {
			l.mu.Unlock()
			respond(nil, status.Errorf(codes.AlreadyExists, "session %s already connected", p.id))
			return
		}
		l.peers[p.id] = p
		l.mu.Unlock()

		p.mu.Lock()
		p.state = StateActive
		p.mu.Unlock()
		l.network.publishState(l.name, StateEvent{ID: p.id, Role: rolePeer, State: StateActive})
		respond(nil, nil)
	})
}

func (l *Listener) remove(p *Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.peers[p.id] == p {
		delete(l.peers, p.id)
	}
}

// IncomingSessionRequest is a session a client wants to open. Answer it with
// Accept or Reject.
type IncomingSessionRequest struct {
	session *Session
}

func (r *IncomingSessionRequest) SessionID() string {
	return r.session.id
}

// Session is the server side of the requested session. It can be kept to
// message the client once accepted.
func (r *IncomingSessionRequest) Session() *Session {
	return r.session
}

// Accept opens the session. handler receives the client's messages and
// cancellationHandler, if set, runs once when the session goes away.
func (r *IncomingSessionRequest) Accept(handler MessageHandler, cancellationHandler func(err *RemoteError)) Decision {
	return Decision{accepted: true, handler: handler, onCancel: cancellationHandler}
}

func (r *IncomingSessionRequest) Reject(reason string) Decision {
	return Decision{reason: reason}
}

// Decision is returned by a listener's incoming session handler.
type Decision struct {
	accepted bool
	reason   string
	handler  MessageHandler
	onCancel func(err *RemoteError)
}

func (d Decision) Accepted() bool {
	return d.accepted
}
