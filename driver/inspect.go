package driver

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"
	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"golang.org/x/sync/singleflight"

	"github.com/syssam/magicbox/schema/field"
)

// Column is a live table column.
type Column struct {
	Name string
	Raw  string      // type as reported by the database
	Type schema.Type // parsed type, nil when unknown
	Null bool
}

// Accepts reports whether values of a field of type t can be stored in
// the column. Types the inspector could not classify are accepted.
func (c Column) Accepts(t field.Type) bool {
	var class string
	switch c.Type.(type) {
	case *schema.IntegerType:
		class = "integer"
	case *schema.BoolType:
		class = "bool"
	case *schema.FloatType, *schema.DecimalType:
		class = "float"
	case *schema.StringType, *schema.EnumType:
		class = "string"
	case *schema.TimeType:
		class = "time"
	case *schema.BinaryType:
		class = "binary"
	case *schema.JSONType:
		class = "json"
	case *schema.UUIDType:
		class = "uuid"
	default:
		return true
	}
	accept := map[field.Type][]string{
		field.TypeInt:     {"integer", "float"},
		field.TypeInt64:   {"integer", "float"},
		field.TypeFloat64: {"float", "integer"},
		field.TypeBool:    {"bool", "integer"},
		field.TypeString:  {"string", "uuid", "json"},
		field.TypeUUID:    {"uuid", "string", "binary"},
		field.TypeTime:    {"time", "string", "integer"},
		field.TypeJSON:    {"json", "string", "binary"},
		field.TypeBytes:   {"binary", "string"},
	}[t]
	if accept == nil {
		return true
	}
	for _, a := range accept {
		if a == class {
			return true
		}
	}
	return false
}

// Inspector reads table columns from the live database through the atlas
// inspectors. Results are memoized per table and concurrent lookups of one
// table share a round trip.
type Inspector struct {
	drv   dialect.Driver
	open  func() (migrate.Driver, error)
	cache sync.Map // table -> []Column
	group singleflight.Group
}

// NewInspector returns an inspector over drv.
func NewInspector(drv dialect.Driver) *Inspector {
	return &Inspector{
		drv: drv,
		open: sync.OnceValues(func() (migrate.Driver, error) {
			return openAtlas(drv)
		}),
	}
}

// Columns returns the columns of table in declaration order. A missing
// table yields an empty slice.
func (i *Inspector) Columns(ctx context.Context, table string) ([]Column, error) {
	if v, ok := i.cache.Load(table); ok {
		return v.([]Column), nil
	}
	v, err, _ := i.group.Do(table, func() (any, error) {
		if v, ok := i.cache.Load(table); ok {
			return v, nil
		}
		columns, err := i.columns(ctx, table)
		if err != nil {
			return nil, err
		}
		i.cache.Store(table, columns)
		return columns, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Column), nil
}

// Forget drops the memoized columns of table.
func (i *Inspector) Forget(table string) {
	i.cache.Delete(table)
}

func (i *Inspector) columns(ctx context.Context, table string) ([]Column, error) {
	drv, err := i.open()
	if err != nil {
		return nil, fmt.Errorf("driver: inspect %s: %w", table, err)
	}
	// An empty name selects the connection's current schema on Postgres
	// and MySQL.
	name := ""
	if i.drv.Dialect() == dialect.SQLite {
		name = "main"
	}
	s, err := drv.InspectSchema(ctx, name, &schema.InspectOptions{Tables: []string{table}})
	switch {
	case schema.IsNotExistError(err):
		return []Column{}, nil
	case err != nil:
		return nil, fmt.Errorf("driver: inspect %s: %w", table, err)
	}
	t, ok := s.Table(table)
	if !ok {
		return []Column{}, nil
	}
	columns := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		col := Column{Name: c.Name}
		if c.Type != nil {
			col.Raw, col.Type, col.Null = c.Type.Raw, c.Type.Type, c.Type.Null
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func openAtlas(drv dialect.Driver) (migrate.Driver, error) {
	conn := execQuerier{drv: drv}
	switch d := drv.Dialect(); d {
	case dialect.SQLite:
		return sqlite.Open(conn)
	case dialect.Postgres:
		return postgres.Open(conn)
	case dialect.MySQL:
		return mysql.Open(conn)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", d)
	}
}

// execQuerier exposes a dialect.Driver as the schema.ExecQuerier atlas
// inspects through, so inspection queries pass the stats and debug
// wrappers.
type execQuerier struct {
	drv dialect.Driver
}

func (e execQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows := &entsql.Rows{}
	if err := e.drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	r, ok := rows.ColumnScanner.(*sql.Rows)
	if !ok {
		rows.Close()
		return nil, fmt.Errorf("unexpected rows type %T", rows.ColumnScanner)
	}
	return r, nil
}

func (e execQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	if err := e.drv.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	return res, nil
}
