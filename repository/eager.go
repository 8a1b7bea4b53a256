package repository

import (
	"context"
	"strings"

	"entgo.io/ent/dialect/sql"

	"github.com/syssam/magicbox"
	"github.com/syssam/magicbox/contrib/dataloader"
	"github.com/syssam/magicbox/graph"
	"github.com/syssam/magicbox/resolver"
	"github.com/syssam/magicbox/schema/edge"
)

// pivotPrefix marks the pivot columns selected with many-to-many rows.
const pivotPrefix = "pivot__"

// loadNode is one relation of an eager-load tree.
type loadNode struct {
	name       string
	constraint func(*sql.Selector)
	children   []*loadNode
}

// loadTree merges resolved eager-load paths into a tree. Intermediate
// hops of a nested path are loaded without constraint unless requested
// on their own.
func loadTree(loads []resolver.EagerLoad) []*loadNode {
	var roots []*loadNode
	for _, l := range loads {
		level := &roots
		var n *loadNode
		for _, name := range strings.Split(l.Path, ".") {
			n = nil
			for _, c := range *level {
				if c.name == name {
					n = c
					break
				}
			}
			if n == nil {
				n = &loadNode{name: name}
				*level = append(*level, n)
			}
			level = &n.children
		}
		if l.Constraint != nil {
			n.constraint = compose(n.constraint, l.Constraint)
		}
	}
	return roots
}

func compose(a, b func(*sql.Selector)) func(*sql.Selector) {
	if a == nil {
		return b
	}
	return func(s *sql.Selector) {
		a(s)
		b(s)
	}
}

// eagerLoad loads the relations of loads onto records, one batched query
// per relation and level.
func (r *Repository) eagerLoad(ctx context.Context, records []*magicbox.Record, loads []resolver.EagerLoad) error {
	if len(records) == 0 || len(loads) == 0 {
		return nil
	}
	return r.loadNodes(ctx, r.entity, records, loadTree(loads))
}

func (r *Repository) loadNodes(ctx context.Context, entity *graph.Entity, records []*magicbox.Record, nodes []*loadNode) error {
	for _, n := range nodes {
		rel, ok := entity.Relation(n.name)
		if !ok {
			continue
		}
		children, err := r.loadRelation(ctx, rel, records, n.constraint)
		if err != nil {
			return err
		}
		if len(n.children) > 0 && len(children) > 0 {
			if err := r.loadNodes(ctx, rel.Target, children, n.children); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadRelation queries the related rows of records and attaches them. It
// returns the loaded rows.
func (r *Repository) loadRelation(ctx context.Context, rel *graph.Relation, records []*magicbox.Record, constraint func(*sql.Selector)) ([]*magicbox.Record, error) {
	// parent is the value of a record that related rows point at.
	parent := func(rec *magicbox.Record) any {
		if rel.Kind == edge.KindBelongsTo {
			return keyOf(rec.Fields[rel.Field])
		}
		return keyOf(rec.ID())
	}
	keys := make([]any, 0, len(records))
	for _, rec := range records {
		if k := parent(rec); k != nil {
			keys = append(keys, k)
		}
	}
	children, err := dataloader.Load(ctx, keys, dataloader.DefaultBatchSize, func(ctx context.Context, batch []any) ([]*magicbox.Record, error) {
		return r.related(ctx, rel, batch, constraint)
	})
	if err != nil {
		return nil, err
	}
	groups := dataloader.GroupByKey(children, func(c *magicbox.Record) any {
		switch rel.Kind {
		case edge.KindBelongsTo:
			return keyOf(c.ID())
		case edge.KindBelongsToMany:
			return keyOf(c.Pivot[rel.Through.Parent])
		default:
			return keyOf(c.Fields[rel.Field])
		}
	})
	parents := make([]any, len(records))
	for i, rec := range records {
		parents[i] = parent(rec)
	}
	for i, group := range dataloader.OrderGroupsByKeys(parents, groups) {
		rec := records[i]
		if parents[i] == nil {
			group = nil
		}
		switch {
		case rel.Kind.Unique() && len(group) > 0:
			rec.Edges[rel.Name] = group[0]
		case rel.Kind.Unique():
			rec.Edges[rel.Name] = (*magicbox.Record)(nil)
		case group == nil:
			rec.Edges[rel.Name] = []*magicbox.Record{}
		default:
			rec.Edges[rel.Name] = group
		}
	}
	return children, nil
}

// related queries the rows of rel pointing at keys.
func (r *Repository) related(ctx context.Context, rel *graph.Relation, keys []any, constraint func(*sql.Selector)) ([]*magicbox.Record, error) {
	var (
		b      = sql.Dialect(r.driver.Dialect())
		target = rel.Target
		t      = b.Table(target.Table)
		sel    = b.Select().From(t)
	)
	switch rel.Kind {
	case edge.KindBelongsTo:
		sel.Where(sql.In(t.C(target.Key), keys...))
	case edge.KindHasOne, edge.KindHasMany:
		sel.Where(sql.In(t.C(rel.Field), keys...))
	case edge.KindBelongsToMany:
		pivot := b.Table(rel.Through.Table).As(rel.Through.Table)
		if rel.Through.Table == target.Table {
			pivot.As(rel.Through.Table + "_pivot")
		}
		sel.Select(t.C("*")).
			Join(pivot).
			On(pivot.C(rel.Through.Target), t.C(target.Key)).
			Where(sql.In(pivot.C(rel.Through.Parent), keys...))
		for _, c := range append([]string{rel.Through.Parent, rel.Through.Target}, rel.Pivot...) {
			sel.AppendSelectAs(pivot.C(c), pivotPrefix+c)
		}
	}
	if constraint != nil {
		constraint(sel)
	}
	rows, err := r.rows(ctx, sel)
	if err != nil {
		return nil, err
	}
	records := make([]*magicbox.Record, len(rows))
	for i, row := range rows {
		var pivot map[string]any
		for column, v := range row {
			name, ok := strings.CutPrefix(column, pivotPrefix)
			if !ok {
				continue
			}
			if pivot == nil {
				pivot = make(map[string]any)
			}
			pivot[name] = normalize(nil, v)
			delete(row, column)
		}
		records[i] = record(target, row)
		records[i].Pivot = pivot
	}
	return records, nil
}
