// Package edge provides fluent builders for defining entity relations.
//
// A relation is one of four kinds. The kind decides where the foreign key
// lives and when the cascading persister writes the related rows:
//
//	edge.BelongsTo("user", "User")         // posts.user_id -> users.id, saved before the owner
//	edge.HasOne("profile", "Profile")      // profiles.user_id -> users.id, saved after
//	edge.HasMany("posts", "Post")          // posts.user_id -> users.id, saved after
//	edge.BelongsToMany("tags", "Tag")      // post_tag(post_id, tag_id), synced after
//
// Foreign keys and pivot tables follow naming defaults that the graph
// package fills in when they are not declared:
//
//	edge.BelongsTo("author", "User").Field("author_id")
//	edge.HasMany("posts", "Post").Field("user_id")
//	edge.BelongsToMany("tags", "Tag").
//	    Through("post_tag", "post_id", "tag_id").
//	    Pivot("extra")
package edge
