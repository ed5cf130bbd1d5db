//go:build integration

// Package postgrestest starts a disposable PostgreSQL for integration tests.
package postgrestest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/molfp/internal/infrastructure/database/postgres"
)

const (
	image    = "postgres:16-alpine"
	user     = "molfp"
	password = "molfp"
	database = "molfp_test"
)

// Start launches a PostgreSQL container for the lifetime of t and returns
// the settings to reach it. Tests are skipped in -short mode.
func Start(t testing.TB) postgres.Config {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test needs docker")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     user,
				"POSTGRES_PASSWORD": password,
				"POSTGRES_DB":       database,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return postgres.Config{
		Host:     host,
		Port:     port.Int(),
		Database: database,
		Username: user,
		Password: password,
	}
}

// Connect starts a container, connects and applies the embedded migrations.
func Connect(t testing.TB) *postgres.Connection {
	t.Helper()
	conn, err := postgres.NewConnection(Start(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	m, err := postgres.NewMigrator(conn, nil)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	return conn
}

//Personal.AI order the ending
