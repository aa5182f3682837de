package storagetest

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/abduss/mediahost/internal/config"
	"github.com/abduss/mediahost/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Postgres starts a disposable PostgreSQL container, applies the embedded
// migrations and returns a pool. It skips unless TEST_INTEGRATION is set.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION is not set")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("mediahost_test"),
		postgres.WithUsername("mediahost"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		t.Fatalf("container port %q: %v", port.Port(), err)
	}

	cfg := config.PostgresConfig{
		Host:     host,
		Port:     portNum,
		User:     "mediahost",
		Password: "test-password",
		Database: "mediahost_test",
		SSLMode:  "disable",
	}

	if _, err := storage.Migrate(cfg.MigrateURL()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := storage.NewPostgresPool(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
