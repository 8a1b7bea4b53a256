package repository

import (
	"context"
	"encoding/json"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/syssam/magicbox"
	"github.com/syssam/magicbox/driver"
	"github.com/syssam/magicbox/graph"
	"github.com/syssam/magicbox/querylanguage"
	"github.com/syssam/magicbox/resolver"
	"github.com/syssam/magicbox/schema/field"
)

// AggregateColumn is the result column of an aggregate query.
const AggregateColumn = "aggregate"

var aggregates = map[string]func(string) string{
	"avg":   sql.Avg,
	"count": sql.Count,
	"max":   sql.Max,
	"min":   sql.Min,
	"sum":   sql.Sum,
}

// query is an assembled read: the selector and the eager loads to run on
// its records.
type query struct {
	*sql.Selector
	loads []resolver.EagerLoad
}

// Query assembles the read query of the repository state without running
// it. Disallowed or unresolvable parts of the request are left out and
// logged at debug level.
func (r *Repository) Query(ctx context.Context) (*sql.Selector, error) {
	q, err := r.query(ctx, true)
	if err != nil {
		return nil, err
	}
	return q.Selector, nil
}

func (r *Repository) query(ctx context.Context, filtered bool) (*query, error) {
	b := sql.Dialect(r.driver.Dialect())
	sel := b.Select().From(b.Table(r.entity.Table))
	if filtered {
		if err := r.applyFilters(ctx, sel); err != nil {
			return nil, err
		}
	}
	group := r.applyGroupBy(sel)
	r.applyAggregate(sel, group)
	r.logExcluded(ctx, "sort", resolver.ApplySort(sel, r.entity, r.policy, r.sorts))
	loads, excluded := resolver.EagerLoads(r.entity, r.policy, r.eager)
	r.logExcluded(ctx, "include", excluded)
	for _, m := range r.modifiers {
		m(sel)
	}
	return &query{Selector: sel, loads: loads}, nil
}

// applyFilters adds the filter predicate to sel, as one group.
func (r *Repository) applyFilters(ctx context.Context, sel *sql.Selector) error {
	if len(r.filters) == 0 {
		return nil
	}
	tree, excluded := querylanguage.Parse(r.filters, r.policy)
	r.logExcluded(ctx, "filter", excluded)
	if tree == nil {
		return nil
	}
	p, excluded := querylanguage.Compile(tree, r.entity)
	r.logExcluded(ctx, "filter", excluded)
	if p == nil {
		return nil
	}
	if err := r.registry.Schema().EvalP(r.entity.Name, p, sel); err != nil {
		return magicbox.NewQueryError(r.entity.Name, "filter", err)
	}
	return nil
}

// applyGroupBy groups by the requested columns that are stored fields.
func (r *Repository) applyGroupBy(sel *sql.Selector) []string {
	var group []string
	for _, c := range r.groupBy {
		if r.entity.HasColumn(c) && !slices.Contains(group, c) {
			group = append(group, c)
		}
	}
	if len(group) > 0 {
		sel.GroupBy(sel.Columns(group...)...)
	}
	return group
}

// applyAggregate selects the first valid aggregate, in function-name
// order, followed by the group columns.
func (r *Repository) applyAggregate(sel *sql.Selector, group []string) {
	for _, name := range slices.Sorted(maps.Keys(r.aggregate)) {
		fn, ok := aggregates[strings.ToLower(name)]
		column := r.aggregate[name]
		if !ok || !r.entity.HasColumn(column) {
			continue
		}
		sel.Select().AppendSelectAs(fn(sel.C(column)), AggregateColumn)
		sel.AppendSelect(sel.Columns(group...)...)
		return
	}
}

// records runs q and scans its rows into records of entity.
func (r *Repository) records(ctx context.Context, entity *graph.Entity, sel *sql.Selector) ([]*magicbox.Record, error) {
	rows, err := r.rows(ctx, sel)
	if err != nil {
		return nil, err
	}
	records := make([]*magicbox.Record, len(rows))
	for i, row := range rows {
		records[i] = record(entity, row)
	}
	return records, nil
}

func (r *Repository) rows(ctx context.Context, q sql.Querier) ([]map[string]any, error) {
	query, args := q.Query()
	rows := &sql.Rows{}
	if err := r.driver.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return driver.ScanMaps(rows)
}

func (r *Repository) values(ctx context.Context, q sql.Querier) ([]any, error) {
	query, args := q.Query()
	rows := &sql.Rows{}
	if err := r.driver.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return driver.ScanValues(rows)
}

func (r *Repository) exec(ctx context.Context, q sql.Querier) (sql.Result, error) {
	query, args := q.Query()
	var res sql.Result
	if err := r.driver.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// record builds a record of entity from a scanned row. Unknown, virtual
// and sensitive columns are left out; the aggregate column is kept.
func record(entity *graph.Entity, row map[string]any) *magicbox.Record {
	rec := magicbox.NewRecord(entity.Name, entity.Key)
	for column, v := range row {
		if column == AggregateColumn {
			rec.Fields[column] = normalize(nil, v)
			continue
		}
		fd, ok := entity.Field(column)
		if !ok || fd.Virtual || fd.Sensitive {
			continue
		}
		rec.Fields[column] = normalize(fd, v)
	}
	return rec
}

// normalize converts a scanned value to the Go type of fd. Drivers return
// text columns as []byte and SQLite returns booleans as integers.
func normalize(fd *field.Descriptor, v any) any {
	switch v := v.(type) {
	case []byte:
		if fd != nil && fd.Type == field.TypeBytes {
			return v
		}
		s := string(v)
		if fd == nil {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
			return s
		}
		if fd.Type == field.TypeJSON {
			var out any
			if err := json.Unmarshal(v, &out); err == nil {
				return out
			}
			return s
		}
		return fd.Coerce(s)
	case int64:
		if fd != nil && fd.Type == field.TypeBool {
			return v != 0
		}
	case string:
		if fd != nil && fd.Type == field.TypeJSON {
			var out any
			if err := json.Unmarshal([]byte(v), &out); err == nil {
				return out
			}
		}
	}
	return v
}

// arg converts an input value to the value bound for a column of fd.
func arg(fd *field.Descriptor, v any) (any, error) {
	switch v := v.(type) {
	case string:
		if fd.Type == field.TypeString || fd.Type == field.TypeUUID || fd.Type == field.TypeTime {
			return v, nil
		}
		return fd.Coerce(v), nil
	case float64:
		if fd.Type.Integer() && v == math.Trunc(v) {
			return int64(v), nil
		}
	case json.Number:
		if fd.Type.Integer() {
			return v.Int64()
		}
		return v.Float64()
	case uuid.UUID:
		return v.String(), nil
	case map[string]any, []any:
		if fd.Type == field.TypeJSON {
			b, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			return string(b), nil
		}
	}
	return v, nil
}

// keyOf returns a comparable form of a key value: integers as int64,
// everything else as its string form.
func keyOf(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		if v == math.Trunc(v) {
			return int64(v)
		}
		return v
	case []byte:
		return keyOf(string(v))
	case json.Number:
		return keyOf(string(v))
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		return v
	case uuid.UUID:
		return v.String()
	default:
		return v
	}
}

// random returns the ordering expression of a random row.
func random(d string) sql.Querier {
	if d == dialect.MySQL {
		return sql.Expr("RAND()")
	}
	return sql.Expr("RANDOM()")
}
