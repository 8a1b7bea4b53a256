// Package resolver validates relation paths against the entity graph.
//
// EagerLoads turns requested eager-load paths into safe ones: gated by the
// includable list, truncated to the depth limit and cut at the first hop
// that is not a relation. ApplySort turns sort paths into ORDER BY terms,
// joining through relations when a path crosses them.
package resolver

import (
	"fmt"
	"strings"

	"entgo.io/ent/dialect/sql"

	"github.com/syssam/magicbox"
	"github.com/syssam/magicbox/graph"
	"github.com/syssam/magicbox/privacy"
	"github.com/syssam/magicbox/schema/edge"
)

// EagerLoad is a relation path to load with the records, and an optional
// constraint applied to the query of its last hop.
type EagerLoad struct {
	Path       string
	Constraint func(*sql.Selector)
}

// Segments returns the relation names of the path.
func (l EagerLoad) Segments() []string {
	return strings.Split(l.Path, ".")
}

// EagerLoads resolves loads against entity. The result keeps the request
// order; duplicate paths are merged and their constraints composed.
func EagerLoads(entity *graph.Entity, policy *privacy.Policy, loads []EagerLoad) ([]EagerLoad, []magicbox.Exclusion) {
	var (
		out      []EagerLoad
		excluded []magicbox.Exclusion
		index    = make(map[string]int)
	)
	exclude := func(path, format string, args ...any) {
		excluded = append(excluded, magicbox.Exclusion{Path: path, Reason: fmt.Sprintf(format, args...)})
	}
	for _, load := range loads {
		segments := load.Segments()
		if !policy.IsIncludable(segments[0]) {
			exclude(load.Path, "%q is not includable", segments[0])
			continue
		}
		segments = policy.ApplyDepthRestriction(segments, 0)
		if len(segments) == 0 {
			exclude(load.Path, "depth limit %d", policy.DepthLimit())
			continue
		}
		resolved := 0
		for current := entity; resolved < len(segments); resolved++ {
			rel, ok := current.Relation(segments[resolved])
			if !ok {
				break
			}
			current = rel.Target
		}
		if resolved == 0 {
			exclude(load.Path, "%s has no relation %q", entity.Name, segments[0])
			continue
		}
		path := strings.Join(segments[:resolved], ".")
		if path != load.Path {
			exclude(load.Path, "truncated to %q", path)
		}
		if i, ok := index[path]; ok {
			out[i].Constraint = compose(out[i].Constraint, load.Constraint)
			continue
		}
		index[path] = len(out)
		out = append(out, EagerLoad{Path: path, Constraint: load.Constraint})
	}
	return out, excluded
}

func compose(a, b func(*sql.Selector)) func(*sql.Selector) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return func(s *sql.Selector) {
			a(s)
			b(s)
		}
	}
}

// Sort orders by a column, possibly across relations.
type Sort struct {
	Path      string
	Direction string // asc or desc, in any case
}

// ApplySort adds the ORDER BY terms of sorts to sel, whose FROM table is
// the table of entity. Relation hops are resolved by name or by their
// singular or plural alias and become inner joins, so base rows without a
// related row drop out. The base table columns are selected explicitly
// before the first join so that joined columns never shadow them. Entries that fail a check are dropped whole.
func ApplySort(sel *sql.Selector, entity *graph.Entity, policy *privacy.Policy, sorts []Sort) []magicbox.Exclusion {
	j := &joiner{
		sel:    sel,
		used:   map[string]bool{sel.TableName(): true},
		joined: make(map[string]*sql.SelectTable),
	}
	var excluded []magicbox.Exclusion
	exclude := func(path, format string, args ...any) {
		excluded = append(excluded, magicbox.Exclusion{Path: path, Reason: fmt.Sprintf(format, args...)})
	}
	for _, s := range sorts {
		order := sql.Asc
		switch strings.ToLower(s.Direction) {
		case "asc":
		case "desc":
			order = sql.Desc
		default:
			exclude(s.Path, "invalid direction %q", s.Direction)
			continue
		}
		segments := strings.Split(s.Path, ".")
		if !policy.IsFilterable(segments[0]) {
			exclude(s.Path, "%q is not filterable", segments[0])
			continue
		}
		hops, column := segments[:len(segments)-1], segments[len(segments)-1]
		if len(hops) > policy.DepthLimit() {
			exclude(s.Path, "%d relation hops exceed depth limit %d", len(hops), policy.DepthLimit())
			continue
		}
		rels, target, err := walk(entity, hops)
		if err != nil {
			exclude(s.Path, "%v", err)
			continue
		}
		if !target.HasColumn(column) {
			exclude(s.Path, "%s has no column %q", target.Name, column)
			continue
		}
		if len(rels) == 0 {
			sel.OrderBy(order(sel.C(column)))
			continue
		}
		t := j.join(hops, rels)
		sel.OrderBy(order(t.C(column)))
	}
	return excluded
}

// walk resolves hops through relation aliases.
func walk(entity *graph.Entity, hops []string) ([]*graph.Relation, *graph.Entity, error) {
	rels := make([]*graph.Relation, 0, len(hops))
	current := entity
	for _, hop := range hops {
		rel, ok := current.RelationAlias(hop)
		if !ok {
			return nil, nil, fmt.Errorf("%s has no relation %q", current.Name, hop)
		}
		rels = append(rels, rel)
		current = rel.Target
	}
	return rels, current, nil
}

// joiner adds joins to a selector. Joins are shared by sorts with a
// common relation prefix, and a table already present in the query is
// joined under a numbered alias.
type joiner struct {
	sel      *sql.Selector
	used     map[string]bool
	joined   map[string]*sql.SelectTable
	selected bool
}

func (j *joiner) join(hops []string, rels []*graph.Relation) *sql.SelectTable {
	if !j.selected && len(j.sel.SelectedColumns()) == 0 {
		j.sel.Select(j.sel.C("*"))
	}
	j.selected = true
	var (
		b       = sql.Dialect(j.sel.Dialect())
		current = j.sel.Table()
		owner   = rels[0].Owner
	)
	for i, rel := range rels {
		key := strings.Join(hops[:i+1], ".")
		if t, ok := j.joined[key]; ok {
			current, owner = t, rel.Target
			continue
		}
		target := b.Table(rel.Target.Table).As(j.alias(rel.Target.Table))
		switch rel.Kind {
		case edge.KindBelongsToMany:
			pivot := b.Table(rel.Through.Table).As(j.alias(rel.Through.Table))
			j.sel.Join(pivot).On(current.C(owner.Key), pivot.C(rel.Through.Parent))
			j.sel.Join(target).On(pivot.C(rel.Through.Target), target.C(rel.Target.Key))
		case edge.KindHasMany, edge.KindHasOne:
			j.sel.Join(target).On(current.C(owner.Key), target.C(rel.Field))
		case edge.KindBelongsTo:
			j.sel.Join(target).On(current.C(rel.Field), target.C(rel.Target.Key))
		}
		j.joined[key] = target
		current, owner = target, rel.Target
	}
	return current
}

func (j *joiner) alias(table string) string {
	alias := table
	for i := 2; j.used[alias]; i++ {
		alias = fmt.Sprintf("%s_%d", table, i)
	}
	j.used[alias] = true
	return alias
}
