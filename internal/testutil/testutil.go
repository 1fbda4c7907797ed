// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dotsalary/dotsalary/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

// StartPostgres returns a DSN for an empty database.
// TEST_DATABASE_URL is used when set; otherwise a disposable container is
// started and terminate stops it.
func StartPostgres(ctx context.Context) (dsn string, terminate func(), err error) {
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		return dsn, func() {}, nil
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "dotsalary_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return "", nil, fmt.Errorf("start postgres container: %w", err)
	}

	terminate = func() { _ = container.Terminate(context.Background()) }

	host, err := container.Host(ctx)
	if err != nil {
		terminate()
		return "", nil, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		terminate()
		return "", nil, fmt.Errorf("container port: %w", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/dotsalary_test?sslmode=disable", host, port.Port())
	return dsn, terminate, nil
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// TruncateUsers removes every user and restarts the id sequence.
func TruncateUsers(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, "TRUNCATE users RESTART IDENTITY"); err != nil {
		return fmt.Errorf("truncate users: %w", err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// Decimal parses s or fails the test.
func Decimal(t testing.TB, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

// NewTestUser creates an unsaved user.
func NewTestUser(t testing.TB, name, salary string) *model.User {
	t.Helper()
	return &model.User{Name: name, Salary: Decimal(t, salary)}
}

// SalaryFixture returns ten unsaved users in insertion order.
// Exactly three of them (Mallory, Trent, Victor) earn between 3070 and 3075.
func SalaryFixture(t testing.TB) []*model.User {
	t.Helper()
	rows := []struct{ name, salary string }{
		{"Zed", "3050"},
		{"Mallory", "3072.50"},
		{"Alice", "3060"},
		{"Trent", "3075"},
		{"Bob", "3080"},
		{"Victor", "3070"},
		{"Dave", "3090"},
		{"Eve", "3065"},
		{"Frank", "3095"},
		{"Grace", "3085"},
	}

	users := make([]*model.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, NewTestUser(t, r.name, r.salary))
	}
	return users
}
