// Package schema groups the builders used to declare magicbox entities.
//
//   - [field]: Field builders for entity columns and write mutators
//   - [edge]: Edge builders for entity relations
//
// # Quick Start
//
// Define an entity by embedding magicbox.Schema and implementing the
// methods the entity needs:
//
//	type Post struct{ magicbox.Schema }
//
//	func (Post) Config() magicbox.Config {
//	    return magicbox.Config{Name: "Post"} // table "posts", key "id"
//	}
//
//	func (Post) Fields() []magicbox.Field {
//	    return []magicbox.Field{
//	        field.Int("user_id"),
//	        field.String("title"),
//	    }
//	}
//
//	func (Post) Edges() []magicbox.Edge {
//	    return []magicbox.Edge{
//	        edge.BelongsTo("user", "User"),
//	        edge.BelongsToMany("tags", "Tag").Pivot("extra"),
//	    }
//	}
//
//	func (Post) Access() *privacy.Defaults {
//	    return &privacy.Defaults{
//	        Fillable:   privacy.AllowAll(),
//	        Includable: privacy.Allow("user", "tags"),
//	        Filterable: privacy.AllowAll(),
//	    }
//	}
//
// # Field Types
//
//	field.String("name")
//	field.Int("hands")
//	field.Int64("views")
//	field.Float("rating")
//	field.Bool("is_human")
//	field.Time("created_at")
//	field.UUID("id")
//	field.JSON("metadata")
//	field.Bytes("avatar")
//
// # Relationships
//
//	edge.BelongsTo("user", "User")    // posts.user_id
//	edge.HasOne("profile", "Profile") // profiles.user_id
//	edge.HasMany("posts", "Post")     // posts.user_id
//	edge.BelongsToMany("tags", "Tag") // post_tag(post_id, tag_id)
//
// Entities may also be declared in YAML, see package config.
package schema
