package tests

import (
	"testing"
	"time"

	"github.com/f0mster/xpctoolbox/internal/testlogger"
	memevents "github.com/f0mster/xpctoolbox/pkg/pubsub/memory"
	memregistry "github.com/f0mster/xpctoolbox/pkg/registry/memory"
	memrpc "github.com/f0mster/xpctoolbox/pkg/rpc/memory"
	"github.com/f0mster/xpctoolbox/pkg/xpc"
)

// Network is an in-process network for channel tests. Replies that never come
// time out after a few seconds so a broken test fails instead of hanging.
type Network struct {
	xpc.Network
	Log *testlogger.Logger
	Bus *memevents.Events
}

func NewNetwork(t *testing.T) Network {
	r := memrpc.New(5 * time.Second)
	t.Cleanup(r.Close)
	log := testlogger.New()
	events := memevents.New()
	return Network{
		Network: xpc.Network{
			RPC:      r,
			Registry: memregistry.New(),
			Logger:   log,
			Events:   events,
		},
		Log: log,
		Bus: events,
	}
}
