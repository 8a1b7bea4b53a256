// Package magicbox is a generic relational access engine.
//
// Callers describe entities once, through a small schema contract, and then
// drive reads and writes with flat key/value structures instead of
// per-resource query code:
//
//	type User struct{ magicbox.Schema }
//
//	func (User) Config() magicbox.Config {
//	    return magicbox.Config{Name: "User"}
//	}
//
//	func (User) Fields() []magicbox.Field {
//	    return []magicbox.Field{
//	        field.Int("id"),
//	        field.String("username"),
//	        field.Int("hands").Optional(),
//	    }
//	}
//
//	func (User) Edges() []magicbox.Edge {
//	    return []magicbox.Edge{
//	        edge.HasMany("posts", "Post"),
//	        edge.HasOne("profile", "Profile"),
//	    }
//	}
//
//	func (User) Access() *privacy.Defaults {
//	    return &privacy.Defaults{
//	        Fillable:   privacy.Allow("username", "hands", "posts"),
//	        Includable: privacy.AllowAll(),
//	        Filterable: privacy.AllowAll(),
//	    }
//	}
//
// The entity set is validated and lowered by the graph package; the
// repository package binds one entity to a driver and exposes the
// query assembler and the cascading persister.
package magicbox

import (
	"github.com/syssam/magicbox/privacy"
	"github.com/syssam/magicbox/schema/edge"
	"github.com/syssam/magicbox/schema/field"
)

type (
	// Interface is the contract every entity schema implements.
	Interface interface {
		// Config returns the entity name, table and key column.
		Config() Config
		// Fields returns the entity's columns.
		Fields() []Field
		// Edges returns the entity's relations.
		Edges() []Edge
		// Access returns the allow-lists a bound repository starts from.
		Access() *privacy.Defaults
	}

	// Config holds the naming of an entity.
	Config struct {
		// Name is the entity type name, e.g. "User".
		Name string
		// Table defaults to the pluralised, underscored name.
		Table string
		// Key is the primary-key column. Defaults to "id".
		Key string
	}

	// Field is implemented by the field builders.
	Field interface {
		Descriptor() *field.Descriptor
	}

	// Edge is implemented by the edge builders.
	Edge interface {
		Descriptor() *edge.Descriptor
	}

	// Schema is the default implementation of Interface. Embed it in
	// entity types and override what the entity needs.
	Schema struct {
		Interface
	}
)

// Config returns an empty entity config.
func (Schema) Config() Config { return Config{} }

// Fields of the schema.
func (Schema) Fields() []Field { return nil }

// Edges of the schema.
func (Schema) Edges() []Edge { return nil }

// Access of the schema.
func (Schema) Access() *privacy.Defaults { return nil }

// Schema implements Interface.
var _ Interface = (*Schema)(nil)
