package memory_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/xpctoolbox/pkg/pubsub/memory"
)

func TestEvents_Order(t *testing.T) {
	ev := memory.New()
	mu := sync.Mutex{}
	got := []string{}
	wg := sync.WaitGroup{}
	wg.Add(50)
	cancel, err := ev.Subscribe("system/a", "state", func(event []byte) error {
		mu.Lock()
		got = append(got, string(event))
		mu.Unlock()
		wg.Done()
		return nil
	})
	require.NoError(t, err)
	defer cancel()

	other, err := ev.Subscribe("system/b", "state", func(event []byte) error {
		t.Error("event for a different namespace")
		return nil
	})
	require.NoError(t, err)
	defer other()

	want := []string{}
	for i := 0; i < 50; i++ {
		want = append(want, fmt.Sprint(i))
		require.NoError(t, ev.Publish("system/a", "state", []byte(fmt.Sprint(i))))
	}
	wg.Wait()
	mu.Lock()
	require.Equal(t, want, got)
	mu.Unlock()
}

func TestEvents_Cancel(t *testing.T) {
	ev := memory.New()
	called := make(chan struct{}, 1)
	cancel, err := ev.SubscribeForTopic("t", func(event []byte) error {
		called <- struct{}{}
		return nil
	})
	require.NoError(t, err)
	cancel()
	cancel()
	require.NoError(t, ev.PublishToTopic("t", []byte("x")))
	select {
	case <-called:
		t.Fatal("callback after cancel")
	case <-time.After(20 * time.Millisecond):
	}
}
