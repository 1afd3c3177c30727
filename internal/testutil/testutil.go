// Package testutil provides shared helpers for integration tests that need
// PostgreSQL or Redis. Tests skip when the infrastructure is unreachable
// unless TEST_REQUIRE_INFRA (or the per-backend variant) is set.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	// Import pgx driver for database/sql compatibility in tests.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/target/fuzzysearch/internal/migrate"
)

// TestingTB is an interface that covers both *testing.T and *testing.B.
type TestingTB interface {
	Helper()
	Cleanup(func())
	Skip(args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
}

// TestDBConfig holds configuration for the test database.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig returns default test database configuration.
// Defaults to port 55432 (local test DB from the docker-compose test profile).
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "55432"),
		User:     getEnvOrDefault("TEST_DB_USER", "fuzzysearch"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "fuzzysearch"),
		DBName:   getEnvOrDefault("TEST_DB_NAME", "fuzzysearch"),
	}
}

func (c TestDBConfig) dsn(searchPath string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   c.DBName,
	}
	q := u.Query()
	q.Set("sslmode", getEnvOrDefault("TEST_DB_SSL_MODE", "disable"))
	if searchPath != "" {
		q.Set("search_path", searchPath)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// SetupTestDB returns a connection scoped to a fresh schema with all
// migrations applied. The schema is dropped when the test finishes.
func SetupTestDB(t TestingTB) *sql.DB {
	t.Helper()
	cfg := DefaultTestDBConfig()

	admin, err := sql.Open("pgx", cfg.dsn(""))
	if err != nil {
		t.Fatal("open admin DB:", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := admin.PingContext(ctx); err != nil {
		_ = admin.Close()
		skipOrFail(t, requireDB(), "Test database not available:", err)
		return nil
	}

	schema := generateSchemaName()
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		_ = admin.Close()
		t.Fatalf("create schema %s: %v", schema, err)
	}

	db, err := sql.Open("pgx", cfg.dsn(schema))
	if err != nil {
		_ = admin.Close()
		t.Fatal("open schema DB:", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Close()
		if _, err := admin.ExecContext(ctx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("warning: failed to drop schema %s: %v", schema, err)
		}
		_ = admin.Close()
	})

	if err := migrate.Run(ctx, db); err != nil {
		t.Fatal("run migrations:", err)
	}
	return db
}

// SetupTestRedis returns a client for TEST_REDIS_ADDR (default
// localhost:56379) on TEST_REDIS_DB (default 15), flushed before use.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()
	addr := getEnvOrDefault("TEST_REDIS_ADDR", "localhost:56379")
	dbIndex := 15
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &dbIndex); err != nil {
			t.Logf("invalid TEST_REDIS_DB=%q, using %d", v, dbIndex)
		}
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: dbIndex})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		skipOrFail(t, requireRedis(), "Redis not available for testing:", err)
		return nil
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		_ = client.Close()
		t.Fatal("flush test redis:", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// UniquePrefix returns a random key prefix so tests sharing a Redis DB do
// not collide.
func UniquePrefix(name string) string {
	return name + ":" + generateSchemaName() + ":"
}

func skipOrFail(t TestingTB, required bool, args ...any) {
	if required {
		t.Fatal(args...)
	}
	t.Skip(args...)
}

func generateSchemaName() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("t_%d", time.Now().UnixNano())
	}
	return "t_" + hex.EncodeToString(b)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }
