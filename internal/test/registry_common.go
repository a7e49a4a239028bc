package tests

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/xpctoolbox/pkg/registry"
)

func waitTimeout(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("watch callbacks were not called")
	}
}

// Registry_Test drives reg2 and observes the effects through reg1. Both may
// be the same registry.
func Registry_Test(reg1 registry.Registry, reg2 registry.Registry, t *testing.T) {
	wrong := func() { t.Error("wrong behavior") }
	wrongInst := func(registry.InstanceId) { t.Error("wrong behavior") }

	wg := sync.WaitGroup{}
	wg.Add(1)
	stop := reg1.WatchRegistered("ns1", func() {
		wg.Done()
	})
	stop7 := reg1.WatchRegistered("nsa", wrong)

	reg2.Register("ns1", "inst:1")
	waitTimeout(t, &wg)
	require.Equal(t, map[registry.InstanceId]bool{"inst:1": true}, reg1.Instances("ns1"))
	require.Empty(t, reg1.Instances("nsa"))

	wg.Add(1)
	var stop1 registry.CancelFunc
	stop1 = reg1.WatchInstanceRegistered("ns1", func(instanceId registry.InstanceId) {
		require.Equal(t, registry.InstanceId("inst:1"), instanceId)
		wg.Done()
	})
	waitTimeout(t, &wg)
	stop1()
	stop2 := reg1.WatchInstanceRegistered("nsa", wrongInst)
	stop3 := reg1.WatchUnregistered("ns2", wrong)
	stop4 := reg1.WatchInstanceUnregistered("ns2", wrongInst)

	wg.Add(2)
	stop5 := reg1.WatchUnregistered("ns1", func() {
		wg.Done()
	})
	stop6 := reg1.WatchInstanceUnregistered("ns1", func(instanceId registry.InstanceId) {
		require.Equal(t, registry.InstanceId("inst:1"), instanceId)
		wg.Done()
	})
	reg2.Unregister("ns1", "inst:1")
	waitTimeout(t, &wg)
	require.Empty(t, reg1.Instances("ns1"))

	stop()
	stop1()
	stop2()
	stop3()
	stop4()
	stop5()
	stop6()
	stop7()

	// nothing is watching any more
	reg2.Register("ns1", "inst:1")
	reg2.Unregister("ns1", "inst:1")
	time.Sleep(50 * time.Millisecond)
}
