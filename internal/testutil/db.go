package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/magicbox/driver"
	"github.com/syssam/magicbox/graph"
)

// DDL creates the fixture tables on SQLite.
var DDL = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
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
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		favorite_cheese TEXT,
		favorite_fruit TEXT,
		is_human BOOLEAN NOT NULL DEFAULT 0,
		not_fillable TEXT,
		not_filterable TEXT
	)`,
	`CREATE TABLE posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		title TEXT
	)`,
	`CREATE TABLE tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT
	)`,
	`CREATE TABLE post_tag (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		extra TEXT
	)`,
	`CREATE TABLE notes (
		id TEXT PRIMARY KEY,
		body TEXT
	)`,
}

// Registry returns the registry of the fixture entities.
func Registry(t testing.TB) *graph.Registry {
	t.Helper()
	reg, err := graph.New(Schemas()...)
	require.NoError(t, err)
	return reg
}

// OpenSQLite opens a file-backed SQLite database in a temporary directory
// and creates the fixture tables. The database is closed with the test.
func OpenSQLite(t testing.TB) *entsql.Driver {
	t.Helper()
	return openSQLite(t, SQLiteDSN(t))
}

// SQLiteDSN returns the DSN of a fresh database file in a temporary
// directory.
func SQLiteDSN(t testing.TB) string {
	return "file:" + filepath.Join(t.TempDir(), "magicbox.db") + "?_pragma=busy_timeout(5000)"
}

// SeedSQLite creates and seeds the fixture tables in the database at dsn
// and closes it, leaving the file for another process or driver.
func SeedSQLite(t testing.TB, dsn string) {
	t.Helper()
	drv := openSQLite(t, dsn)
	Seed(t, drv)
	require.NoError(t, drv.Close())
}

func openSQLite(t testing.TB, dsn string) *entsql.Driver {
	t.Helper()
	drv, err := driver.Open(dialect.SQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })
	for _, stmt := range DDL {
		Exec(t, drv, stmt)
	}
	return drv
}

// Exec runs a statement and fails the test on error. Placeholders are
// written as "?" for every dialect.
func Exec(t testing.TB, drv dialect.Driver, query string, args ...any) {
	t.Helper()
	if args == nil {
		args = []any{}
	}
	query = rebind(drv.Dialect(), query)
	require.NoError(t, drv.Exec(context.Background(), query, args, nil), query)
}

func rebind(d, query string) string {
	if d != dialect.Postgres {
		return query
	}
	var (
		b strings.Builder
		n int
	)
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// QueryInt runs a single-value integer query.
func QueryInt(t testing.TB, drv dialect.Driver, query string, args ...any) int64 {
	t.Helper()
	v := queryValue(t, drv, query, args)
	n, ok := v.(int64)
	require.True(t, ok, "%s: got %T", query, v)
	return n
}

// QueryString runs a single-value text query.
func QueryString(t testing.TB, drv dialect.Driver, query string, args ...any) string {
	t.Helper()
	switch v := queryValue(t, drv, query, args).(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		require.Failf(t, "unexpected value", "%s: got %T", query, v)
		return ""
	}
}

func queryValue(t testing.TB, drv dialect.Driver, query string, args []any) any {
	t.Helper()
	if args == nil {
		args = []any{}
	}
	query = rebind(drv.Dialect(), query)
	rows := &entsql.Rows{}
	require.NoError(t, drv.Query(context.Background(), query, args, rows), query)
	values, err := driver.ScanValues(rows)
	require.NoError(t, err)
	require.Len(t, values, 1, query)
	return values[0]
}
