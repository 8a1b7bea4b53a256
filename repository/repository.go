// Package repository binds one entity type to a database and serves reads
// and cascading writes driven by flat key/value input.
//
// A Repository carries the per-request state of one entity: the write
// input, filters, sort order, eager loads, group-by, aggregate, query
// modifiers and the access policy. It is not safe for concurrent use;
// bind one per request.
//
//	repo, err := repository.New(registry, "User", drv)
//	if err != nil {
//	    return err
//	}
//	users, err := repo.
//	    SetFilters(map[string]any{"username": "^al"}).
//	    SetEagerLoads("posts").
//	    AddSort("posts.title", "desc").
//	    All(ctx)
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"

	"github.com/syssam/magicbox"
	"github.com/syssam/magicbox/driver"
	"github.com/syssam/magicbox/graph"
	"github.com/syssam/magicbox/privacy"
	"github.com/syssam/magicbox/resolver"
	"github.com/syssam/magicbox/schema/field"
)

// Factory binds the repository of a related entity during a cascade.
type Factory func(entity string) (*Repository, error)

// Repository is the engine bound to one entity type.
type Repository struct {
	registry  *graph.Registry
	entity    *graph.Entity
	driver    dialect.Driver
	policy    *privacy.Policy
	logger    *slog.Logger
	factory   Factory
	inspector *driver.Inspector

	input     any
	filters   map[string]any
	sorts     []resolver.Sort
	eager     []resolver.EagerLoad
	groupBy   []string
	aggregate map[string]string
	modifiers []func(*sql.Selector)
}

type options struct {
	logger    *slog.Logger
	factory   Factory
	depth     int
	inspector *driver.Inspector
}

// Option configures a Repository.
type Option func(*options)

// WithLogger sets the logger of exclusions and cascade steps.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFactory sets the factory used to bind related repositories while
// cascading writes. The default binds a fresh repository of the related
// entity on the same registry and driver.
func WithFactory(f Factory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// WithDepthLimit sets the initial depth limit of the policy.
func WithDepthLimit(n int) Option {
	return func(o *options) {
		o.depth = n
	}
}

// WithInspector shares a column inspector between repositories.
func WithInspector(i *driver.Inspector) Option {
	return func(o *options) {
		o.inspector = i
	}
}

// New binds entity to drv. The policy starts as a copy of the entity's
// declared access lists.
func New(registry *graph.Registry, entity string, drv dialect.Driver, opts ...Option) (*Repository, error) {
	if registry == nil {
		return nil, magicbox.NewConfigError(entity, "nil registry")
	}
	if drv == nil {
		return nil, magicbox.NewConfigError(entity, "nil driver")
	}
	e, ok := registry.Entity(entity)
	if !ok {
		return nil, magicbox.NewConfigError(entity, "unknown entity")
	}
	o := &options{depth: privacy.DefaultDepthLimit}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.inspector == nil {
		o.inspector = driver.NewInspector(drv)
	}
	r := &Repository{
		registry:  registry,
		entity:    e,
		driver:    drv,
		policy:    privacy.New(e.Access, o.depth),
		logger:    o.logger,
		factory:   o.factory,
		inspector: o.inspector,
	}
	if r.factory == nil {
		r.factory = func(name string) (*Repository, error) {
			return New(registry, name, drv, WithLogger(o.logger), WithInspector(o.inspector), WithDepthLimit(o.depth))
		}
	}
	return r, nil
}

// Entity returns the bound entity.
func (r *Repository) Entity() *graph.Entity {
	return r.entity
}

// Policy returns the repository's access policy. Changes to it apply to
// subsequent operations of this repository only.
func (r *Repository) Policy() *privacy.Policy {
	return r.policy
}

// KeyName returns the primary-key column of the entity.
func (r *Repository) KeyName() string {
	return r.entity.Key
}

// Clone returns a copy of the repository with its own policy and state.
func (r *Repository) Clone() *Repository {
	c := *r
	c.policy = r.policy.Clone()
	c.filters = maps.Clone(r.filters)
	c.sorts = slices.Clone(r.sorts)
	c.eager = slices.Clone(r.eager)
	c.groupBy = slices.Clone(r.groupBy)
	c.aggregate = maps.Clone(r.aggregate)
	c.modifiers = slices.Clone(r.modifiers)
	return &c
}

// Verify checks that the entity table and the pivot tables of its
// many-to-many relations have every declared column, and that entity
// columns can hold their field types.
func (r *Repository) Verify(ctx context.Context) error {
	check := func(table string, want []string, types map[string]field.Type) error {
		have, err := r.inspector.Columns(ctx, table)
		if err != nil {
			return err
		}
		byName := make(map[string]driver.Column, len(have))
		for _, c := range have {
			byName[c.Name] = c
		}
		var missing, mistyped []string
		for _, name := range want {
			c, ok := byName[name]
			if !ok {
				missing = append(missing, name)
				continue
			}
			if t, ok := types[name]; ok && !c.Accepts(t) {
				mistyped = append(mistyped, fmt.Sprintf("%s (%s, want %s)", name, c.Raw, t))
			}
		}
		switch {
		case len(missing) > 0:
			return magicbox.NewConfigError(r.entity.Name, "table %q is missing columns %v", table, missing)
		case len(mistyped) > 0:
			return magicbox.NewConfigError(r.entity.Name, "table %q has mistyped columns: %s", table, strings.Join(mistyped, ", "))
		}
		return nil
	}
	types := make(map[string]field.Type, len(r.entity.Fields))
	for _, fd := range r.entity.Fields {
		if !fd.Virtual {
			types[fd.Name] = fd.Type
		}
	}
	if err := check(r.entity.Table, r.entity.Columns(), types); err != nil {
		return err
	}
	for _, rel := range r.entity.Relations {
		if rel.Through.Table == "" {
			continue
		}
		want := append([]string{rel.Through.Parent, rel.Through.Target}, rel.Pivot...)
		if err := check(rel.Through.Table, want, nil); err != nil {
			return err
		}
	}
	return nil
}

// SetInput sets the write input: a map[string]any for a single record, or
// a []map[string]any, a []any of maps or a map keyed "0".."n-1" for many.
func (r *Repository) SetInput(input any) *Repository {
	r.input = input
	return r
}

// Input returns the write input.
func (r *Repository) Input() any {
	return r.input
}

// IsManyOperation reports whether the input holds more than one record.
func (r *Repository) IsManyOperation() bool {
	switch in := r.input.(type) {
	case []any:
		return len(in) > 0
	case []map[string]any:
		return len(in) > 0
	case map[string]any:
		return len(in) > 0 && isList(in)
	default:
		return false
	}
}

// isList reports whether the keys of m are exactly "0".."len(m)-1".
func isList(m map[string]any) bool {
	for k := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(m) || strconv.Itoa(i) != k {
			return false
		}
	}
	return true
}

// single returns the input as one record.
func (r *Repository) single() map[string]any {
	m, _ := r.input.(map[string]any)
	return m
}

// many returns the input as a list of records. Entries that are not maps
// are skipped.
func (r *Repository) many() []map[string]any {
	switch in := r.input.(type) {
	case []map[string]any:
		return in
	case []any:
		return mapsOf(in)
	case map[string]any:
		if !isList(in) {
			return []map[string]any{in}
		}
		items := make([]any, len(in))
		for k, v := range in {
			i, _ := strconv.Atoi(k)
			items[i] = v
		}
		return mapsOf(items)
	default:
		return nil
	}
}

func mapsOf(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, v := range items {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// InputID returns the key of the input record, or nil.
func (r *Repository) InputID() any {
	return r.single()[r.entity.Key]
}

// SetFilters replaces the filters.
func (r *Repository) SetFilters(filters map[string]any) *Repository {
	r.filters = maps.Clone(filters)
	return r
}

// AddFilters merges filters into the current ones.
func (r *Repository) AddFilters(filters map[string]string) *Repository {
	for k, v := range filters {
		r.AddFilter(k, v)
	}
	return r
}

// AddFilter sets the filter of one path.
func (r *Repository) AddFilter(path, value string) *Repository {
	if r.filters == nil {
		r.filters = make(map[string]any)
	}
	r.filters[path] = value
	return r
}

// Filters returns a copy of the filters.
func (r *Repository) Filters() map[string]any {
	return maps.Clone(r.filters)
}

// SetSortOrder replaces the sort order. Map entries are applied in key
// order; use AddSort to control precedence.
func (r *Repository) SetSortOrder(order map[string]string) *Repository {
	r.sorts = r.sorts[:0:0]
	for _, path := range slices.Sorted(maps.Keys(order)) {
		r.sorts = append(r.sorts, resolver.Sort{Path: path, Direction: order[path]})
	}
	return r
}

// AddSort appends a sort after the current ones.
func (r *Repository) AddSort(path, direction string) *Repository {
	r.sorts = append(r.sorts, resolver.Sort{Path: path, Direction: direction})
	return r
}

// SortOrder returns the sorts in application order.
func (r *Repository) SortOrder() []resolver.Sort {
	return slices.Clone(r.sorts)
}

// SetEagerLoads replaces the eager loads with unconstrained paths.
func (r *Repository) SetEagerLoads(paths ...string) *Repository {
	r.eager = r.eager[:0:0]
	for _, p := range paths {
		r.eager = append(r.eager, resolver.EagerLoad{Path: p})
	}
	return r
}

// AddEagerLoad appends an eager load whose last hop is queried with
// constraint applied. constraint may be nil.
func (r *Repository) AddEagerLoad(path string, constraint func(*sql.Selector)) *Repository {
	r.eager = append(r.eager, resolver.EagerLoad{Path: path, Constraint: constraint})
	return r
}

// EagerLoads returns the requested eager-load paths.
func (r *Repository) EagerLoads() []string {
	paths := make([]string, len(r.eager))
	for i := range r.eager {
		paths[i] = r.eager[i].Path
	}
	return paths
}

// SetGroupBy sets the group-by columns. Each argument may hold several
// comma-separated columns.
func (r *Repository) SetGroupBy(columns ...string) *Repository {
	r.groupBy = r.groupBy[:0:0]
	for _, c := range columns {
		for _, part := range strings.Split(c, ",") {
			if part = strings.TrimSpace(part); part != "" {
				r.groupBy = append(r.groupBy, part)
			}
		}
	}
	return r
}

// GroupBy returns the requested group-by columns.
func (r *Repository) GroupBy() []string {
	return slices.Clone(r.groupBy)
}

// SetAggregate sets the aggregate as function name to column, e.g.
// {"count": "id"}. Only one aggregate is applied.
func (r *Repository) SetAggregate(aggregate map[string]string) *Repository {
	r.aggregate = maps.Clone(aggregate)
	return r
}

// Aggregate returns the requested aggregate.
func (r *Repository) Aggregate() map[string]string {
	return maps.Clone(r.aggregate)
}

// SetModifiers replaces the query modifiers.
func (r *Repository) SetModifiers(modifiers ...func(*sql.Selector)) *Repository {
	r.modifiers = slices.Clone(modifiers)
	return r
}

// AddModifier appends a query modifier. Modifiers run last, in order.
func (r *Repository) AddModifier(modifier func(*sql.Selector)) *Repository {
	r.modifiers = append(r.modifiers, modifier)
	return r
}

// Modifiers returns the query modifiers.
func (r *Repository) Modifiers() []func(*sql.Selector) {
	return slices.Clone(r.modifiers)
}

func (r *Repository) logExcluded(ctx context.Context, op string, excluded []magicbox.Exclusion) {
	for _, e := range excluded {
		r.logger.DebugContext(ctx, "excluded",
			"entity", r.entity.Name,
			"op", op,
			"path", e.Path,
			"reason", e.Reason,
		)
	}
}

// String implements fmt.Stringer.
func (r *Repository) String() string {
	return fmt.Sprintf("Repository(%s)", r.entity.Name)
}
