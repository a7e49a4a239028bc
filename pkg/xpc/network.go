package xpc

import (
	"encoding/json"
	"fmt"

	"github.com/f0mster/xpctoolbox/pkg/interfaces/contextmarshaller"
	"github.com/f0mster/xpctoolbox/pkg/interfaces/logger"
	"github.com/f0mster/xpctoolbox/pkg/pubsub"
	"github.com/f0mster/xpctoolbox/pkg/registry"
	"github.com/f0mster/xpctoolbox/pkg/rpc"
)

// Network is what sessions and listeners share: the transport messages
// travel over and the registry service names resolve in.
type Network struct {
	RPC               rpc.RPC
	Registry          registry.Registry
	ContextMarshaller contextmarshaller.ContextMarshaller
	Logger            logger.Logger
	// Events receives a StateEvent for every state change when set.
	Events pubsub.Publisher
}

func (n *Network) check() error {
	if n.RPC == nil {
		return fmt.Errorf("rpc must be set")
	}
	if n.Registry == nil {
		return fmt.Errorf("registry must be set")
	}
	if n.ContextMarshaller == nil {
		n.ContextMarshaller = &contextmarshaller.DefaultCtxMarshaller{}
	}
	if n.Logger == nil {
		n.Logger = &logger.DefaultLogger{}
	}
	return nil
}

const stateEventName = "state"

type StateEvent struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	State State  `json:"state"`
}

func (n *Network) publishState(namespace string, ev StateEvent) {
	n.Logger.Debug("state "+ev.State.String(), namespace, ev.ID)
	if n.Events == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err == nil {
		err = n.Events.Publish(namespace, stateEventName, data)
	}
	if err != nil {
		n.Logger.Error(err, "publish state event", namespace, ev.ID)
	}
}
