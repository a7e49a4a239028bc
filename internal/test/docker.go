package tests

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ory/dockertest/v3"
)

/*
  Docker is required for transports talking to a real broker.

  The daemon address is taken from DOCKER_HOST. Tests are skipped when no
  daemon answers.
*/

func getAddr(dockerEndpoint, port string) string {
	// experimental support of local docker daemon
	dockerEndpoint = strings.Replace(dockerEndpoint, "tcp://", "", 1)

	host := strings.Split(dockerEndpoint, ":")[0]

	if strings.Contains(dockerEndpoint, "unix:") || strings.Contains(dockerEndpoint, "http://localhost:") {
		host = "0.0.0.0"
	}

	return fmt.Sprintf("%s:%s", host, port)
}

// RunContainer starts repository:tag, waits until ready accepts the mapped
// address of port and purges the container when the test ends.
func RunContainer(t testing.TB, repository, tag, port string, ready func(addr string) error) string {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker is not available: %s", err)
	}
	if _, err = pool.Client.Info(); err != nil {
		t.Skipf("docker is not available: %s", err)
	}

	res, err := pool.Run(repository, tag, nil)
	if err != nil {
		t.Fatalf("Could not start resource: %s", err)
	}
	t.Cleanup(func() {
		if err := pool.Purge(res); err != nil {
			t.Errorf("Could not purge resource: %s", err)
		}
	})

	addr := getAddr(pool.Client.Endpoint(), res.GetPort(port))
	// exponential backoff-retry, because the application in the container might not be ready to accept connections yet
	if err = pool.Retry(func() error {
		return ready(addr)
	}); err != nil {
		t.Fatalf("Could not connect to docker: %s", err)
	}
	return addr
}
