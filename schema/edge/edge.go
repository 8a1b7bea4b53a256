package edge

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the relation kind.
type Kind uint8

// Relation kinds.
const (
	_ Kind = iota
	KindBelongsTo
	KindHasOne
	KindHasMany
	KindBelongsToMany
)

var kindNames = [...]string{
	KindBelongsTo:     "BelongsTo",
	KindHasOne:        "HasOne",
	KindHasMany:       "HasMany",
	KindBelongsToMany: "BelongsToMany",
}

// String returns the kind name.
func (k Kind) String() string {
	if k >= KindBelongsTo && k <= KindBelongsToMany {
		return kindNames[k]
	}
	return "Invalid"
}

// Unique reports whether the relation points at a single row.
func (k Kind) Unique() bool {
	return k == KindBelongsTo || k == KindHasOne
}

// BeforeSave reports whether related rows are written before the owner.
func (k Kind) BeforeSave() bool {
	return k == KindBelongsTo
}

// ParseKind parses a kind name. It accepts the Go spelling and the
// snake_case spelling (belongs_to_many).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "")) {
	case "belongsto":
		return KindBelongsTo, nil
	case "hasone":
		return KindHasOne, nil
	case "hasmany":
		return KindHasMany, nil
	case "belongstomany":
		return KindBelongsToMany, nil
	}
	return 0, fmt.Errorf("edge: unknown relation kind %q", s)
}

// Through describes the pivot table of a BelongsToMany relation.
type Through struct {
	Table  string // pivot table
	Parent string // column referencing the owner
	Target string // column referencing the target
}

// Descriptor for relation configuration.
type Descriptor struct {
	Name    string   // relation name
	Target  string   // target entity name
	Kind    Kind     // relation kind
	Field   string   // foreign-key column
	Through Through  // pivot table, BelongsToMany only
	Pivot   []string // extra pivot columns, BelongsToMany only
	Err     error
}

// Builder is the fluent relation builder.
type Builder struct {
	desc *Descriptor
}

func newBuilder(name, target string, kind Kind) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Target: target, Kind: kind}}
}

// New returns a builder of the given kind.
func New(kind Kind, name, target string) *Builder {
	return newBuilder(name, target, kind)
}

// BelongsTo returns a relation whose foreign key lives on the owner.
func BelongsTo(name, target string) *Builder {
	return newBuilder(name, target, KindBelongsTo)
}

// HasOne returns a relation to a single row holding the owner's key.
func HasOne(name, target string) *Builder {
	return newBuilder(name, target, KindHasOne)
}

// HasMany returns a relation to the rows holding the owner's key.
func HasMany(name, target string) *Builder {
	return newBuilder(name, target, KindHasMany)
}

// BelongsToMany returns a relation through a pivot table.
func BelongsToMany(name, target string) *Builder {
	return newBuilder(name, target, KindBelongsToMany)
}

// Field sets the foreign-key column. For BelongsTo it is a column of the
// owner, for HasOne and HasMany a column of the target.
func (b *Builder) Field(column string) *Builder {
	if b.desc.Kind == KindBelongsToMany {
		b.desc.Err = fmt.Errorf("edge %q: use Through to configure the pivot columns", b.desc.Name)
	}
	b.desc.Field = column
	return b
}

// Through sets the pivot table and its two key columns.
func (b *Builder) Through(table, parent, target string) *Builder {
	if b.desc.Kind != KindBelongsToMany {
		b.desc.Err = fmt.Errorf("edge %q: Through is only valid on BelongsToMany", b.desc.Name)
	}
	b.desc.Through = Through{Table: table, Parent: parent, Target: target}
	return b
}

// Pivot declares extra pivot columns that may be written and are loaded
// with the relation.
func (b *Builder) Pivot(columns ...string) *Builder {
	if b.desc.Kind != KindBelongsToMany {
		b.desc.Err = fmt.Errorf("edge %q: Pivot is only valid on BelongsToMany", b.desc.Name)
	}
	b.desc.Pivot = append(b.desc.Pivot, columns...)
	return b
}

// Descriptor implements the magicbox.Edge interface.
func (b *Builder) Descriptor() *Descriptor {
	switch {
	case b.desc.Err != nil:
	case b.desc.Name == "":
		b.desc.Err = errors.New("edge: missing name")
	case b.desc.Target == "":
		b.desc.Err = fmt.Errorf("edge %q: missing target", b.desc.Name)
	case b.desc.Kind < KindBelongsTo || b.desc.Kind > KindBelongsToMany:
		b.desc.Err = fmt.Errorf("edge %q: invalid kind", b.desc.Name)
	}
	return b.desc
}
