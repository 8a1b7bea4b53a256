package testutil

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/syssam/magicbox/driver"
)

// PostgresEnv enables the tests that run against a PostgreSQL container.
const PostgresEnv = "MAGICBOX_POSTGRES_TESTS"

// PostgresDDL creates the fixture tables on PostgreSQL.
var PostgresDDL = []string{
	`CREATE TABLE users (
		id SERIAL PRIMARY KEY,
		username TEXT,
		name TEXT,
		hands INTEGER,
		times_captured INTEGER,
		occupation TEXT,
		not_fillable TEXT,
		not_filterable TEXT,
		mentor_id INTEGER,
		password_hash TEXT
	)`,
	`CREATE TABLE profiles (
		id SERIAL PRIMARY KEY,
		user_id INTEGER,
		favorite_cheese TEXT,
		favorite_fruit TEXT,
		is_human BOOLEAN NOT NULL DEFAULT FALSE,
		not_fillable TEXT,
		not_filterable TEXT
	)`,
	`CREATE TABLE posts (
		id SERIAL PRIMARY KEY,
		user_id INTEGER,
		title TEXT
	)`,
	`CREATE TABLE tags (
		id SERIAL PRIMARY KEY,
		label TEXT
	)`,
	`CREATE TABLE post_tag (
		id SERIAL PRIMARY KEY,
		post_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		extra TEXT
	)`,
	`CREATE TABLE notes (
		id TEXT PRIMARY KEY,
		body TEXT
	)`,
}

var (
	pgOnce sync.Once
	pgDSN  string
	pgErr  error
)

// OpenPostgres starts a shared PostgreSQL container on first use and
// returns a driver on a fresh schema holding the fixture tables. The test
// is skipped unless PostgresEnv is set to 1.
func OpenPostgres(t *testing.T) *entsql.Driver {
	t.Helper()
	if os.Getenv(PostgresEnv) != "1" {
		t.Skipf("set %s=1 to run PostgreSQL tests", PostgresEnv)
	}
	pgOnce.Do(func() {
		ctx := context.Background()
		container, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("magicbox"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			pgErr = err
			return
		}
		pgDSN, pgErr = container.ConnectionString(ctx, "sslmode=disable")
	})
	require.NoError(t, pgErr)

	admin, err := driver.Open(dialect.Postgres, pgDSN)
	require.NoError(t, err)
	defer admin.Close()
	schema := "t_" + time.Now().Format("150405_000000000")
	Exec(t, admin, "CREATE SCHEMA "+schema)

	drv, err := driver.Open(dialect.Postgres, pgDSN+"&search_path="+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		drv.Close()
		if admin, err := driver.Open(dialect.Postgres, pgDSN); err == nil {
			_ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE", []any{}, nil)
			admin.Close()
		}
	})
	for _, stmt := range PostgresDDL {
		Exec(t, drv, stmt)
	}
	return drv
}
