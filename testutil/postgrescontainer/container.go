// Package postgrescontainer starts a throwaway PostgreSQL for integration tests.
package postgrescontainer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage         = "postgres:16-alpine"
	postgresPort          = "5432/tcp"
	postgresUser          = "test"
	postgresPassword      = "test"
	postgresDatabase      = "library"
	containerStartTimeout = 90 * time.Second
)

// StartOrSkip starts a PostgreSQL container and returns its DSN.
// The test is skipped in -short mode. The container is terminated on test cleanup.
func StartOrSkip(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{postgresPort},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDatabase,
		},
		// the server restarts once after the init scripts ran
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(containerStartTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	t.Cleanup(func() {
		if terminateErr := container.Terminate(context.Background()); terminateErr != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", terminateErr)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err, "failed to get container host")

	mappedPort, err := container.MappedPort(ctx, postgresPort)
	require.NoError(t, err, "failed to get mapped port")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, host, mappedPort.Port(), postgresDatabase,
	)
}
