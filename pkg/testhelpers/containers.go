// Package testhelpers provides shared fixtures for ekaya-trane integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ekaya-inc/ekaya-trane/pkg/config"
	"github.com/ekaya-inc/ekaya-trane/pkg/retry"
)

// PostgresImage is the image integration tests load frames from.
const PostgresImage = "postgres:16-alpine"

const (
	testDatabase = "trane_test"
	testUser     = "trane"
	testPassword = "test_password"
)

// TestDB is a Postgres container shared by every integration test of a run.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	// Source describes the container the way the config file describes a Postgres source.
	Source *config.PostgresConfig
}

var (
	sharedDB     *TestDB
	sharedDBOnce sync.Once
	sharedDBErr  error
)

// GetTestDB starts the shared container on first use. Tests are skipped with -short since
// they need Docker.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
	sharedDBOnce.Do(func() {
		sharedDB, sharedDBErr = startPostgres(context.Background())
	})
	if sharedDBErr != nil {
		t.Fatalf("Failed to start test database: %v", sharedDBErr)
	}
	return sharedDB
}

func startPostgres(ctx context.Context) (*TestDB, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        PostgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       testDatabase,
				"POSTGRES_USER":     testUser,
				"POSTGRES_PASSWORD": testPassword,
			},
			// readiness is logged once by the init server and once by the real one
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("container port: %w", err)
	}
	source := &config.PostgresConfig{
		Host:           host,
		Port:           port.Int(),
		User:           testUser,
		Password:       testPassword,
		Database:       testDatabase,
		SSLMode:        "disable",
		MaxConnections: 4,
	}

	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*pgxpool.Pool, error) {
		p, err := pgxpool.New(ctx, source.ConnectionString())
		if err != nil {
			return nil, err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return &TestDB{Container: container, Pool: pool, Source: source}, nil
}

// CreateTable runs ddl and the inserts, dropping the table when the test ends.
func (db *TestDB) CreateTable(t *testing.T, table, ddl string, inserts ...string) {
	t.Helper()
	ctx := context.Background()

	if _, err := db.Pool.Exec(ctx, ddl); err != nil {
		t.Fatalf("create %s: %v", table, err)
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+table)
	})
	for _, stmt := range inserts {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("seed %s: %v", table, err)
		}
	}
}
