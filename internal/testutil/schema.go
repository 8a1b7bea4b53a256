// Package testutil provides the entity fixtures, SQLite databases and seed
// data shared by the engine's tests.
package testutil

import (
	"github.com/syssam/magicbox"
	"github.com/syssam/magicbox/privacy"
	"github.com/syssam/magicbox/schema/edge"
	"github.com/syssam/magicbox/schema/field"
)

// User is the central fixture entity.
type User struct{ magicbox.Schema }

func (User) Config() magicbox.Config {
	return magicbox.Config{Name: "User"}
}

func (User) Fields() []magicbox.Field {
	return []magicbox.Field{
		field.Int("id"),
		field.String("username").Optional(),
		field.String("name").Optional(),
		field.Int("hands").Optional(),
		field.Int("times_captured").Optional(),
		field.String("occupation").Optional(),
		field.String("not_fillable").Optional(),
		field.String("not_filterable").Optional(),
		field.Int("mentor_id").Optional(),
		field.String("password_hash").Optional().Sensitive(),
		field.Password("password", "password_hash"),
	}
}

func (User) Edges() []magicbox.Edge {
	return []magicbox.Edge{
		edge.HasMany("posts", "Post"),
		edge.HasOne("profile", "Profile"),
		edge.BelongsTo("mentor", "User").Field("mentor_id"),
		edge.HasMany("apprentices", "User").Field("mentor_id"),
	}
}

func (User) Access() *privacy.Defaults {
	return &privacy.Defaults{
		Fillable: privacy.Allow(
			"username", "name", "hands", "times_captured", "occupation",
			"not_filterable", "mentor_id", "password",
			"posts", "profile", "mentor",
		),
		Includable: privacy.Allow("posts", "profile", "mentor"),
		Filterable: privacy.Allow(
			"id", "username", "name", "hands", "times_captured", "occupation",
			"not_fillable", "posts", "profile", "mentor",
		),
	}
}

// Profile belongs to a user.
type Profile struct{ magicbox.Schema }

func (Profile) Config() magicbox.Config {
	return magicbox.Config{Name: "Profile"}
}

func (Profile) Fields() []magicbox.Field {
	return []magicbox.Field{
		field.Int("user_id").Optional(),
		field.String("favorite_cheese").Optional(),
		field.String("favorite_fruit").Optional(),
		field.Bool("is_human").Default(false),
		field.String("not_fillable").Optional(),
		field.String("not_filterable").Optional(),
	}
}

func (Profile) Edges() []magicbox.Edge {
	return []magicbox.Edge{
		edge.BelongsTo("user", "User"),
	}
}

func (Profile) Access() *privacy.Defaults {
	return &privacy.Defaults{
		Fillable:   privacy.Allow("user_id", "favorite_cheese", "favorite_fruit", "is_human", "not_filterable", "user"),
		Includable: privacy.AllowAll(),
		Filterable: privacy.Allow("id", "user_id", "favorite_cheese", "favorite_fruit", "is_human", "user", "users"),
	}
}

// Post belongs to a user and carries tags.
type Post struct{ magicbox.Schema }

func (Post) Config() magicbox.Config {
	return magicbox.Config{Name: "Post"}
}

func (Post) Fields() []magicbox.Field {
	return []magicbox.Field{
		field.Int("user_id").Optional(),
		field.String("title").Optional(),
	}
}

func (Post) Edges() []magicbox.Edge {
	return []magicbox.Edge{
		edge.BelongsTo("user", "User"),
		edge.BelongsToMany("tags", "Tag").Pivot("extra"),
	}
}

func (Post) Access() *privacy.Defaults {
	return &privacy.Defaults{
		Fillable:   privacy.AllowAll(),
		Includable: privacy.AllowAll(),
		Filterable: privacy.AllowAll(),
	}
}

// Tag is shared between posts through the post_tag pivot.
type Tag struct{ magicbox.Schema }

func (Tag) Config() magicbox.Config {
	return magicbox.Config{Name: "Tag"}
}

func (Tag) Fields() []magicbox.Field {
	return []magicbox.Field{
		field.String("label").Optional(),
	}
}

func (Tag) Edges() []magicbox.Edge {
	return []magicbox.Edge{
		edge.BelongsToMany("posts", "Post").Pivot("extra"),
	}
}

func (Tag) Access() *privacy.Defaults {
	return &privacy.Defaults{
		Fillable:   privacy.AllowAll(),
		Includable: privacy.AllowAll(),
		Filterable: privacy.AllowAll(),
	}
}

// Note has a generated UUID key.
type Note struct{ magicbox.Schema }

func (Note) Config() magicbox.Config {
	return magicbox.Config{Name: "Note"}
}

func (Note) Fields() []magicbox.Field {
	return []magicbox.Field{
		field.UUID("id"),
		field.String("body").Optional(),
	}
}

func (Note) Access() *privacy.Defaults {
	return &privacy.Defaults{
		Fillable:   privacy.AllowAll(),
		Includable: privacy.AllowAll(),
		Filterable: privacy.AllowAll(),
	}
}

// Schemas returns every fixture entity.
func Schemas() []magicbox.Interface {
	return []magicbox.Interface{User{}, Profile{}, Post{}, Tag{}, Note{}}
}
