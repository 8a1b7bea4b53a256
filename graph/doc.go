// Package graph holds the validated relation graph of a set of entities.
//
// A Registry is built once from the entity schemas and is read-only
// afterwards, so it can be shared by every repository and goroutine:
//
//	reg, err := graph.New(User{}, Post{}, Tag{}, Profile{})
//
// Building the registry fills in naming defaults:
//
//	table         inflect.Tableize(name)                 User -> users
//	key           "id" (an auto-keyed int when not declared)
//	BelongsTo fk  <relation>_<target key>                user -> user_id
//	HasOne/Many   <owner singular>_<owner key>           User -> user_id
//	pivot table   the two singular names, sorted, "_"    post_tag
//	pivot keys    <owner singular>_<key>, <target singular>_<key>
//
// Relations are found by exact name with Relation, or by exact name and
// then by their singular and plural forms with RelationAlias.
//
// The registry also lowers itself to a *sqlgraph.Schema, which is used to
// evaluate compiled filters against a selector.
package graph
