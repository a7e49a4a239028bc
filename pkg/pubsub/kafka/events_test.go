package kafka_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"

	"github.com/f0mster/xpctoolbox/pkg/pubsub/kafka"
)

// startKafka runs a single node redpanda broker, which speaks the kafka
// protocol and needs no zookeeper.
func startKafka(t *testing.T) string {
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker is not available: %s", err)
	}
	if _, err = pool.Client.Info(); err != nil {
		t.Skipf("docker is not available: %s", err)
	}
	res, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "vectorized/redpanda",
		Tag:        "v21.11.3",
		Cmd: []string{
			"redpanda", "start", "--overprovisioned", "--smp", "1", "--memory", "512M",
			"--reserve-memory", "0M", "--node-id", "0", "--check=false",
			"--kafka-addr", "0.0.0.0:9092",
			"--advertise-kafka-addr", "127.0.0.1:29092",
		},
		PortBindings: map[docker.Port][]docker.PortBinding{
			"9092/tcp": {{HostIP: "127.0.0.1", HostPort: "29092"}},
		},
	})
	if err != nil {
		t.Fatalf("Could not start resource: %s", err)
	}
	t.Cleanup(func() {
		_ = pool.Purge(res)
	})
	broker := "127.0.0.1:29092"
	if err = pool.Retry(func() error {
		client, err := sarama.NewClient([]string{broker}, kafka.Config())
		if err != nil {
			return err
		}
		return client.Close()
	}); err != nil {
		t.Fatalf("Could not connect to docker: %s", err)
	}
	return broker
}

func TestKafkaEvents(t *testing.T) {
	broker := startKafka(t)
	ev, err := kafka.New(kafka.Config(), []string{broker})
	require.NoError(t, err)
	defer ev.Close()

	ns := "system/" + uuid.NewString()
	mu := sync.Mutex{}
	got := []string{}
	cancel, err := ev.Subscribe(ns, "state", func(event []byte) error {
		mu.Lock()
		got = append(got, string(event))
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	defer cancel()

	want := []string{}
	for i := 0; i < 20; i++ {
		want = append(want, fmt.Sprint(i))
		require.NoError(t, ev.Publish(ns, "state", []byte(fmt.Sprint(i))))
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == len(want)
	}, 30*time.Second, 10*time.Millisecond)
	mu.Lock()
	require.Equal(t, want, got)
	mu.Unlock()
}
