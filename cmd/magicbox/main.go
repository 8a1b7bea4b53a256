// Package main provides a CLI over the magicbox engine.
//
// The CLI supports:
//   - query: Read records with filters, sorts, eager loads and aggregates
//   - save: Create or update records from JSON input
//   - delete: Delete a record by key
//   - verify: Check that the database tables match the declared entities
//
// Entities are declared in the configuration file (see package config).
//
// Usage:
//
//	magicbox [flags] <command>
package main

import (
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		exitWithError(err)
	}
}
