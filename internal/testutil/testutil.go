// README: Helpers for DB- and Redis-backed tests; both skip when their env var is unset.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"busticket/internal/infra"
	"busticket/migrations"
)

// DB connects to BUSTICKET_TEST_DSN, applies migrations and truncates every table.
func DB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("BUSTICKET_TEST_DSN")
	if dsn == "" {
		t.Skip("BUSTICKET_TEST_DSN not set; skipping DB-backed test")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	if err := infra.Migrate(ctx, db, migrations.FS); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE tickets, route_sections, section_fares, buses, stops, routes"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return db
}

// Redis connects to BUSTICKET_TEST_REDIS_ADDR and flushes the selected database.
func Redis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("BUSTICKET_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BUSTICKET_TEST_REDIS_ADDR not set; skipping Redis-backed test")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return rdb
}
