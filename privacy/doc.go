// Package privacy provides the allow-lists that gate what callers may do
// with an entity through a bound repository.
//
// # Core Concepts
//
// A Policy holds three independent lists and a depth limit:
//
//   - Fillable: input keys that may be written (fields and relations)
//   - Includable: relation paths that may be eager-loaded
//   - Filterable: paths that may be filtered and sorted on
//   - Depth limit: how many relation hops a path may traverse
//
// Each list is either the wildcard AllowAll or an explicit key set:
//
//	func (User) Access() *privacy.Defaults {
//	    return &privacy.Defaults{
//	        Fillable:   privacy.Allow("username", "name", "posts", "profile"),
//	        Includable: privacy.AllowAll(),
//	        Filterable: privacy.AllowAll(),
//	    }
//	}
//
// # Lifecycle
//
// Defaults are read once when a repository is bound. The repository owns a
// deep copy that callers may change for the rest of the request:
//
//	repo.Policy().AddFillable("hands")
//	repo.Policy().RemoveFilterable("secret")
//	repo.Policy().SetDepthLimit(2)
//
// Adding keys to, or setting keys on, a wildcard list drops the wildcard.
// Removing a key from a wildcard list has no effect.
package privacy
