// Package driver opens databases for the engine and wraps them with
// statistics, debug logging, row scanning and live schema inspection.
//
// Database drivers are registered by blank imports in the binary:
//
//	import (
//	    _ "github.com/go-sql-driver/mysql"
//	    _ "github.com/jackc/pgx/v5/stdlib"
//	    _ "github.com/lib/pq"
//	    _ "modernc.org/sqlite"
//	)
//
//	drv, err := driver.Open("sqlite", "file:app.db")
package driver

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// Source names a database/sql driver and the SQL dialect spoken through it.
type Source struct {
	Driver  string // database/sql driver name
	Dialect string // dialect.SQLite, dialect.Postgres or dialect.MySQL
}

var sources = map[string]Source{
	"sqlite":   {Driver: "sqlite", Dialect: dialect.SQLite},
	"sqlite3":  {Driver: "sqlite", Dialect: dialect.SQLite},
	"postgres": {Driver: "postgres", Dialect: dialect.Postgres},
	"pgx":      {Driver: "pgx", Dialect: dialect.Postgres},
	"mysql":    {Driver: "mysql", Dialect: dialect.MySQL},
}

// Lookup returns the source registered under name.
func Lookup(name string) (Source, error) {
	s, ok := sources[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(sources))
		for n := range sources {
			names = append(names, n)
		}
		sort.Strings(names)
		return Source{}, fmt.Errorf("driver: unsupported database %q (supported: %s)", name, strings.Join(names, ", "))
	}
	return s, nil
}

// Open opens the database named by name: sqlite, sqlite3, postgres, pgx
// or mysql.
func Open(name, dsn string) (*entsql.Driver, error) {
	src, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(src.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("driver: open %s: %w", name, err)
	}
	return entsql.OpenDB(src.Dialect, db), nil
}
