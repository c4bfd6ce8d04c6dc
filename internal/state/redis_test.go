package state

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections"),
			},
		},
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	endpoint, err := container.PortEndpoint(ctx, "6379/tcp", "redis")
	require.NoError(t, err)

	store, err := OpenRedis(ctx, endpoint, "jobwatch:test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	testStoreContract(t, store)

	opened, err := Open(ctx, endpoint)
	require.NoError(t, err)
	require.IsType(t, RedisStore{}, opened)
	require.NoError(t, opened.Close())
}
