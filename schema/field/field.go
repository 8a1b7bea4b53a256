package field

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	entfield "entgo.io/ent/schema/field"
	"golang.org/x/crypto/bcrypt"
)

// Type is the storage type of a field.
type Type = entfield.Type

// Field types.
const (
	TypeBool    = entfield.TypeBool
	TypeTime    = entfield.TypeTime
	TypeJSON    = entfield.TypeJSON
	TypeUUID    = entfield.TypeUUID
	TypeBytes   = entfield.TypeBytes
	TypeString  = entfield.TypeString
	TypeInt     = entfield.TypeInt
	TypeInt64   = entfield.TypeInt64
	TypeFloat64 = entfield.TypeFloat64
)

// Setter converts an input value into the column assignments it stands for.
type Setter func(v any) (map[string]any, error)

// Descriptor for field configuration.
type Descriptor struct {
	Name        string     // column name
	Type        Type       // storage type
	Optional    bool       // nullable column
	Default     any        // insert default when the input omits the field
	DefaultFunc func() any // like Default, evaluated per insert
	Setter      Setter     // write mutator
	Virtual     bool       // mutator-only field without a column
	Sensitive   bool       // never returned in records
	Err         error
}

// Builder is the fluent field builder.
type Builder struct {
	desc *Descriptor
}

func newBuilder(name string, t Type) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Type: t}}
}

// String returns a new string field.
func String(name string) *Builder { return newBuilder(name, TypeString) }

// Int returns a new int field.
func Int(name string) *Builder { return newBuilder(name, TypeInt) }

// Int64 returns a new int64 field.
func Int64(name string) *Builder { return newBuilder(name, TypeInt64) }

// Float returns a new float64 field.
func Float(name string) *Builder { return newBuilder(name, TypeFloat64) }

// Bool returns a new bool field.
func Bool(name string) *Builder { return newBuilder(name, TypeBool) }

// Time returns a new time field.
func Time(name string) *Builder { return newBuilder(name, TypeTime) }

// UUID returns a new uuid field. UUID keys are generated on create.
func UUID(name string) *Builder { return newBuilder(name, TypeUUID) }

// JSON returns a new json field.
func JSON(name string) *Builder { return newBuilder(name, TypeJSON) }

// Bytes returns a new bytes field.
func Bytes(name string) *Builder { return newBuilder(name, TypeBytes) }

// Password returns a virtual field that stores the bcrypt hash of its
// input in column.
func Password(name, column string) *Builder {
	return Virtual(name, func(v any) (map[string]any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field: %s expects a string, got %T", name, v)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		return map[string]any{column: string(hash)}, nil
	})
}

// Virtual returns a mutator-only field.
func Virtual(name string, fn Setter) *Builder {
	b := newBuilder(name, TypeString)
	b.desc.Virtual = true
	b.desc.Setter = fn
	return b
}

// FromName returns a builder for the type spelled by typ, as used in
// configuration files: string, text, int, int64, float, bool, time, uuid,
// json and bytes.
func FromName(name, typ string) *Builder {
	switch strings.ToLower(typ) {
	case "string", "text", "":
		return String(name)
	case "int", "integer":
		return Int(name)
	case "int64", "bigint":
		return Int64(name)
	case "float", "float64", "double":
		return Float(name)
	case "bool", "boolean":
		return Bool(name)
	case "time", "datetime", "timestamp":
		return Time(name)
	case "uuid":
		return UUID(name)
	case "json":
		return JSON(name)
	case "bytes", "blob":
		return Bytes(name)
	default:
		b := String(name)
		b.desc.Err = fmt.Errorf("field: unknown type %q for %q", typ, name)
		return b
	}
}

// Optional marks the column as nullable.
func (b *Builder) Optional() *Builder {
	b.desc.Optional = true
	return b
}

// Default sets the insert default.
func (b *Builder) Default(v any) *Builder {
	b.desc.Default = v
	return b
}

// DefaultFunc sets a function computing the insert default.
func (b *Builder) DefaultFunc(fn func() any) *Builder {
	b.desc.DefaultFunc = fn
	return b
}

// Setter sets a write mutator on a real column.
func (b *Builder) Setter(fn Setter) *Builder {
	b.desc.Setter = fn
	return b
}

// Sensitive hides the field from result records.
func (b *Builder) Sensitive() *Builder {
	b.desc.Sensitive = true
	return b
}

// Descriptor implements the magicbox.Field interface.
func (b *Builder) Descriptor() *Descriptor {
	if b.desc.Name == "" && b.desc.Err == nil {
		b.desc.Err = errors.New("field: missing name")
	}
	return b.desc
}

// AutoKey reports whether a key field of this descriptor is assigned by
// the database.
func (d *Descriptor) AutoKey() bool {
	return d.Type.Integer()
}

// DefaultValue returns the insert default and whether one is declared.
func (d *Descriptor) DefaultValue() (any, bool) {
	switch {
	case d.DefaultFunc != nil:
		return d.DefaultFunc(), true
	case d.Default != nil:
		return d.Default, true
	default:
		return nil, false
	}
}

// Coerce converts a textual operand to the Go type of the field. Values
// that do not parse are returned unchanged.
func (d *Descriptor) Coerce(s string) any {
	switch {
	case d.Type.Integer():
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case d.Type.Float():
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case d.Type == TypeBool:
		if v, err := strconv.ParseBool(s); err == nil {
			return v
		}
	}
	return s
}
