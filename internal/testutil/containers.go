package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cloo-solutions/tenderflow/internal/database"
)

const (
	pgvectorImage = "pgvector/pgvector:0.8.1-pg18"
	dbName        = "tenderflow"
)

// PostgresContainer is a throwaway pgvector-enabled PostgreSQL.
type PostgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

// NewPostgresContainer starts PostgreSQL with the vector extension available.
func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgvectorImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     dbName,
				"POSTGRES_PASSWORD": dbName,
				"POSTGRES_DB":       dbName,
			},
			// postgres restarts once after initdb, so the ready line shows up twice
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to create postgres container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	return &PostgresContainer{Container: container, Host: host, Port: port.Port()}
}

// ConnectionString returns the PostgreSQL connection string
func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%[1]s:%[1]s@%s:%s/%[1]s?sslmode=disable", dbName, pc.Host, pc.Port)
}

// Terminate stops and removes the container
func (pc *PostgresContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(pc.Container)
}

// MigrationsSource turns a migrations directory into a golang-migrate file source.
func MigrationsSource(t *testing.T, migrationsDir string) string {
	t.Helper()
	abs, err := filepath.Abs(migrationsDir)
	if err != nil {
		t.Fatalf("failed to resolve migrations dir: %v", err)
	}
	return "file://" + filepath.ToSlash(abs)
}

// NewTestPool applies every up migration in migrationsDir and returns a pool on the
// migrated database. Connecting is retried while the container finishes starting.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	cfg := database.Config{URL: pc.ConnectionString(), MaxConns: 10}
	var (
		pool *pgxpool.Pool
		err  error
	)
	for i := 0; i < 5; i++ {
		if pool, err = database.NewPool(ctx, cfg); err == nil {
			break
		}
		time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to connect after retries: %v", err)
	}

	if _, err := database.Migrate(cfg.URL, MigrationsSource(t, migrationsDir), 0); err != nil {
		pool.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return pool
}
