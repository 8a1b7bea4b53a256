package graph

import (
	"fmt"
	"slices"
	"sort"

	"entgo.io/ent/dialect/sql/sqlgraph"
	"github.com/go-openapi/inflect"

	"github.com/syssam/magicbox"
	"github.com/syssam/magicbox/privacy"
	"github.com/syssam/magicbox/schema/edge"
	"github.com/syssam/magicbox/schema/field"
)

// DefaultKey is the primary-key column of entities that do not name one.
const DefaultKey = "id"

type (
	// Entity is a validated entity type.
	Entity struct {
		Name      string
		Table     string
		Key       string
		Fields    []*field.Descriptor // declaration order, key first
		Relations []*Relation         // declaration order
		Access    *privacy.Defaults

		fields    map[string]*field.Descriptor
		relations map[string]*Relation
		aliases   map[string]*Relation
	}

	// Relation is a relation with its naming defaults applied.
	Relation struct {
		edge.Descriptor
		Owner  *Entity
		Target *Entity
	}

	// Registry is the immutable set of entities.
	Registry struct {
		entities map[string]*Entity
		order    []*Entity
		schema   *sqlgraph.Schema
	}
)

// New validates the schemas and builds a registry. All problems found are
// returned together as *magicbox.ConfigError values.
func New(schemas ...magicbox.Interface) (*Registry, error) {
	r := &Registry{entities: make(map[string]*Entity, len(schemas))}
	var errs []error
	for _, s := range schemas {
		e, err := newEntity(s)
		errs = append(errs, err...)
		if e == nil {
			continue
		}
		if _, ok := r.entities[e.Name]; ok {
			errs = append(errs, magicbox.NewConfigError(e.Name, "declared more than once"))
			continue
		}
		r.entities[e.Name] = e
		r.order = append(r.order, e)
	}
	for _, e := range r.order {
		errs = append(errs, r.link(e)...)
	}
	if err := magicbox.NewAggregateError(errs...); err != nil {
		return nil, err
	}
	for _, e := range r.order {
		e.buildAliases()
	}
	schema, err := r.lower()
	if err != nil {
		return nil, magicbox.NewConfigError("", "%v", err)
	}
	r.schema = schema
	return r, nil
}

// MustNew is like New but panics on error.
func MustNew(schemas ...magicbox.Interface) *Registry {
	r, err := New(schemas...)
	if err != nil {
		panic(err)
	}
	return r
}

func newEntity(s magicbox.Interface) (*Entity, []error) {
	if s == nil {
		return nil, []error{magicbox.NewConfigError("", "nil schema")}
	}
	cfg := s.Config()
	if cfg.Name == "" {
		return nil, []error{magicbox.NewConfigError("", "schema %T has no name", s)}
	}
	e := &Entity{
		Name:      cfg.Name,
		Table:     cfg.Table,
		Key:       cfg.Key,
		Access:    s.Access(),
		fields:    make(map[string]*field.Descriptor),
		relations: make(map[string]*Relation),
	}
	if e.Table == "" {
		e.Table = inflect.Tableize(e.Name)
	}
	if e.Key == "" {
		e.Key = DefaultKey
	}
	var errs []error
	if e.Access == nil {
		errs = append(errs, magicbox.NewConfigError(e.Name, "missing access lists"))
	}
	for _, f := range s.Fields() {
		fd := f.Descriptor()
		switch {
		case fd.Err != nil:
			errs = append(errs, magicbox.NewConfigError(e.Name, "%v", fd.Err))
		case e.fields[fd.Name] != nil:
			errs = append(errs, magicbox.NewConfigError(e.Name, "field %q declared more than once", fd.Name))
		default:
			e.fields[fd.Name] = fd
			e.Fields = append(e.Fields, fd)
		}
	}
	switch key, ok := e.fields[e.Key]; {
	case !ok:
		key = field.Int(e.Key).Descriptor()
		e.fields[e.Key] = key
		e.Fields = append([]*field.Descriptor{key}, e.Fields...)
	case key.Virtual:
		errs = append(errs, magicbox.NewConfigError(e.Name, "key %q cannot be virtual", e.Key))
	default:
		i := slices.Index(e.Fields, key)
		e.Fields = append(append([]*field.Descriptor{key}, e.Fields[:i]...), e.Fields[i+1:]...)
	}
	for _, ed := range s.Edges() {
		d := ed.Descriptor()
		switch {
		case d.Err != nil:
			errs = append(errs, magicbox.NewConfigError(e.Name, "%v", d.Err))
		case e.relations[d.Name] != nil:
			errs = append(errs, magicbox.NewConfigError(e.Name, "relation %q declared more than once", d.Name))
		default:
			rel := &Relation{Descriptor: *d, Owner: e}
			rel.Pivot = slices.Clone(d.Pivot)
			e.relations[d.Name] = rel
			e.Relations = append(e.Relations, rel)
		}
	}
	return e, errs
}

// link resolves relation targets and applies foreign-key defaults.
func (r *Registry) link(e *Entity) []error {
	var errs []error
	for _, rel := range e.Relations {
		target, ok := r.entities[rel.Descriptor.Target]
		if !ok {
			errs = append(errs, magicbox.NewConfigError(e.Name, "relation %q targets unknown entity %q", rel.Name, rel.Descriptor.Target))
			continue
		}
		rel.Target = target
		switch rel.Kind {
		case edge.KindBelongsTo:
			if rel.Field == "" {
				rel.Field = inflect.Underscore(rel.Name) + "_" + target.Key
			}
			if !e.HasColumn(rel.Field) {
				errs = append(errs, magicbox.NewConfigError(e.Name, "relation %q: foreign key %q is not a field", rel.Name, rel.Field))
			}
		case edge.KindHasOne, edge.KindHasMany:
			if rel.Field == "" {
				rel.Field = singular(e.Name) + "_" + e.Key
			}
			if !target.HasColumn(rel.Field) {
				errs = append(errs, magicbox.NewConfigError(e.Name, "relation %q: foreign key %q is not a field of %s", rel.Name, rel.Field, target.Name))
			}
		case edge.KindBelongsToMany:
			t := &rel.Through
			if t.Table == "" {
				names := []string{singular(e.Name), singular(target.Name)}
				sort.Strings(names)
				t.Table = names[0] + "_" + names[1]
			}
			if t.Parent == "" {
				t.Parent = singular(e.Name) + "_" + e.Key
			}
			if t.Target == "" {
				t.Target = singular(target.Name) + "_" + target.Key
			}
			if t.Parent == t.Target {
				errs = append(errs, magicbox.NewConfigError(e.Name, "relation %q: pivot columns must differ, both are %q", rel.Name, t.Parent))
			}
		}
	}
	return errs
}

func singular(name string) string {
	return inflect.Underscore(inflect.Singularize(name))
}

// buildAliases registers the singular and plural forms of every relation
// name that is not itself a relation name.
func (e *Entity) buildAliases() {
	e.aliases = make(map[string]*Relation)
	for _, rel := range e.Relations {
		for _, alias := range []string{inflect.Singularize(rel.Name), inflect.Pluralize(rel.Name)} {
			if _, ok := e.relations[alias]; ok {
				continue
			}
			if _, ok := e.aliases[alias]; !ok {
				e.aliases[alias] = rel
			}
		}
	}
}

// Entity returns the entity with the given name.
func (r *Registry) Entity(name string) (*Entity, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// Entities returns all entities in declaration order.
func (r *Registry) Entities() []*Entity {
	return slices.Clone(r.order)
}

// Fields returns the column names of an entity.
func (r *Registry) Fields(entity string) []string {
	if e, ok := r.entities[entity]; ok {
		return e.Columns()
	}
	return nil
}

// PrimaryKey returns the primary-key column of an entity.
func (r *Registry) PrimaryKey(entity string) string {
	if e, ok := r.entities[entity]; ok {
		return e.Key
	}
	return ""
}

// Table returns the table of an entity.
func (r *Registry) Table(entity string) string {
	if e, ok := r.entities[entity]; ok {
		return e.Table
	}
	return ""
}

// Relation returns the relation declared on entity under name.
func (r *Registry) Relation(entity, name string) (*Relation, bool) {
	if e, ok := r.entities[entity]; ok {
		return e.Relation(name)
	}
	return nil, false
}

// RelationAlias is like Relation but also accepts the singular and plural
// forms of relation names.
func (r *Registry) RelationAlias(entity, name string) (*Relation, bool) {
	if e, ok := r.entities[entity]; ok {
		return e.RelationAlias(name)
	}
	return nil, false
}

// Schema returns the sqlgraph representation of the registry.
func (r *Registry) Schema() *sqlgraph.Schema {
	return r.schema
}

// Field returns the field named name, virtual fields included.
func (e *Entity) Field(name string) (*field.Descriptor, bool) {
	fd, ok := e.fields[name]
	return fd, ok
}

// HasColumn reports whether name is a stored column of the entity.
func (e *Entity) HasColumn(name string) bool {
	fd, ok := e.fields[name]
	return ok && !fd.Virtual
}

// Columns returns the stored columns, key first.
func (e *Entity) Columns() []string {
	columns := make([]string, 0, len(e.Fields))
	for _, fd := range e.Fields {
		if !fd.Virtual {
			columns = append(columns, fd.Name)
		}
	}
	return columns
}

// KeyField returns the descriptor of the primary key.
func (e *Entity) KeyField() *field.Descriptor {
	return e.fields[e.Key]
}

// AutoKey reports whether the primary key is assigned by the database.
func (e *Entity) AutoKey() bool {
	return e.KeyField().AutoKey()
}

// Relation returns the relation named name.
func (e *Entity) Relation(name string) (*Relation, bool) {
	rel, ok := e.relations[name]
	return rel, ok
}

// RelationAlias returns the relation named name, or the relation whose
// singular or plural form is name.
func (e *Entity) RelationAlias(name string) (*Relation, bool) {
	if rel, ok := e.relations[name]; ok {
		return rel, true
	}
	rel, ok := e.aliases[name]
	return rel, ok
}

// String implements fmt.Stringer.
func (r *Relation) String() string {
	return fmt.Sprintf("%s.%s(%s %s)", r.Owner.Name, r.Name, r.Kind, r.Target.Name)
}
