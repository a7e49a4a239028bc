package toolbox

import (
	"github.com/f0mster/xpctoolbox/pkg/servicename"
	"github.com/f0mster/xpctoolbox/pkg/xpc"
)

var (
	newSystemSession  = xpc.NewSystemSession
	newAppSession     = xpc.NewAppSession
	newSystemListener = xpc.NewSystemListener
	newAppListener    = xpc.NewAppListener
)

// NewSession opens a session to the service called name, using the
// constructor of name's scheme. cfg is passed on as is and so are the
// constructor's errors.
func NewSession(name servicename.ServiceName, cfg xpc.SessionConfig) (*xpc.Session, error) {
	switch n := name.(type) {
	case servicename.SystemServiceName:
		return newSystemSession(n, cfg)
	case servicename.AppServiceName:
		return newAppSession(n, cfg)
	default:
		return nil, unexpectedServiceName(name)
	}
}

// NewListener publishes a listener under name, using the constructor of
// name's scheme.
func NewListener(name servicename.ServiceName, cfg xpc.ListenerConfig) (*xpc.Listener, error) {
	switch n := name.(type) {
	case servicename.SystemServiceName:
		return newSystemListener(n, cfg)
	case servicename.AppServiceName:
		return newAppListener(n, cfg)
	default:
		return nil, unexpectedServiceName(name)
	}
}
