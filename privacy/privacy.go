package privacy

import (
	"fmt"
	"maps"
	"slices"
)

// Wildcard is the configuration spelling of AllowAll.
const Wildcard = "*"

// DefaultDepthLimit is the depth limit of a Policy built without one.
const DefaultDepthLimit = 1

// Kind identifies one of the three allow-lists.
type Kind uint8

// List kinds.
const (
	Fillable Kind = iota
	Includable
	Filterable
	kinds
)

var kindNames = [...]string{
	Fillable:   "fillable",
	Includable: "includable",
	Filterable: "filterable",
}

// String returns the list name.
func (k Kind) String() string {
	if k < kinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// List is either the wildcard or an explicit key set. The zero value
// allows nothing.
type List struct {
	all  bool
	keys map[string]struct{}
}

// AllowAll returns the wildcard list.
func AllowAll() List {
	return List{all: true}
}

// Allow returns a list holding exactly the given keys.
func Allow(keys ...string) List {
	l := List{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		l.keys[k] = struct{}{}
	}
	return l
}

// Parse returns AllowAll when keys is exactly ["*"], and Allow(keys...)
// otherwise.
func Parse(keys []string) List {
	if len(keys) == 1 && keys[0] == Wildcard {
		return AllowAll()
	}
	return Allow(keys...)
}

// IsAll reports whether the list is the wildcard.
func (l List) IsAll() bool {
	return l.all
}

// Has reports whether key is allowed.
func (l List) Has(key string) bool {
	if l.all {
		return true
	}
	_, ok := l.keys[key]
	return ok
}

// Keys returns the sorted explicit keys. It returns nil for AllowAll.
func (l List) Keys() []string {
	if l.all {
		return nil
	}
	return slices.Sorted(maps.Keys(l.keys))
}

// Len returns the number of explicit keys.
func (l List) Len() int {
	return len(l.keys)
}

func (l List) clone() List {
	return List{all: l.all, keys: maps.Clone(l.keys)}
}

// String implements fmt.Stringer.
func (l List) String() string {
	if l.all {
		return "[*]"
	}
	return fmt.Sprint(l.Keys())
}

// Defaults are the allow-lists an entity declares for itself.
type Defaults struct {
	Fillable   List
	Includable List
	Filterable List
}

// Policy is the mutable, per-repository copy of an entity's allow-lists
// plus its depth limit. A Policy is not safe for concurrent use.
type Policy struct {
	lists [kinds]List
	depth int
}

// New returns a Policy seeded with a deep copy of d. A nil d allows nothing.
func New(d *Defaults, depthLimit int) *Policy {
	p := &Policy{}
	if d != nil {
		p.lists[Fillable] = d.Fillable.clone()
		p.lists[Includable] = d.Includable.clone()
		p.lists[Filterable] = d.Filterable.clone()
	}
	p.SetDepthLimit(depthLimit)
	return p
}

// Clone returns a deep copy of the policy.
func (p *Policy) Clone() *Policy {
	c := &Policy{depth: p.depth}
	for k := range p.lists {
		c.lists[k] = p.lists[k].clone()
	}
	return c
}

// List returns a copy of the list of the given kind.
func (p *Policy) List(k Kind) List {
	return p.lists[k].clone()
}

// Set replaces the list of the given kind.
func (p *Policy) Set(k Kind, l List) {
	p.lists[k] = l.clone()
}

// Add allows the given keys. Adding to a wildcard list replaces the
// wildcard with exactly the added keys.
func (p *Policy) Add(k Kind, keys ...string) {
	l := &p.lists[k]
	if l.all || l.keys == nil {
		*l = Allow()
	}
	for _, key := range keys {
		l.keys[key] = struct{}{}
	}
}

// Remove disallows the given keys. It is a no-op on a wildcard list.
func (p *Policy) Remove(k Kind, keys ...string) {
	l := &p.lists[k]
	if l.all {
		return
	}
	for _, key := range keys {
		delete(l.keys, key)
	}
}

// Keys returns the sorted explicit keys of the list, or nil for AllowAll.
func (p *Policy) Keys(k Kind) []string {
	return p.lists[k].Keys()
}

// Map returns the explicit keys of the list as a key->true map, or nil
// for AllowAll.
func (p *Policy) Map(k Kind) map[string]bool {
	l := p.lists[k]
	if l.all {
		return nil
	}
	m := make(map[string]bool, len(l.keys))
	for key := range l.keys {
		m[key] = true
	}
	return m
}

// IsAll reports whether the list of the given kind is the wildcard.
func (p *Policy) IsAll(k Kind) bool {
	return p.lists[k].all
}

// Is reports whether key is allowed by the list of the given kind.
func (p *Policy) Is(k Kind, key string) bool {
	return p.lists[k].Has(key)
}

// SetFillable replaces the fillable list.
func (p *Policy) SetFillable(l List) { p.Set(Fillable, l) }

// AddFillable allows keys to be written.
func (p *Policy) AddFillable(keys ...string) { p.Add(Fillable, keys...) }

// RemoveFillable stops keys from being written.
func (p *Policy) RemoveFillable(keys ...string) { p.Remove(Fillable, keys...) }

// IsFillable reports whether key may be written.
func (p *Policy) IsFillable(key string) bool { return p.Is(Fillable, key) }

// SetIncludable replaces the includable list.
func (p *Policy) SetIncludable(l List) { p.Set(Includable, l) }

// AddIncludable allows relations to be eager-loaded.
func (p *Policy) AddIncludable(keys ...string) { p.Add(Includable, keys...) }

// RemoveIncludable stops relations from being eager-loaded.
func (p *Policy) RemoveIncludable(keys ...string) { p.Remove(Includable, keys...) }

// IsIncludable reports whether a relation may be eager-loaded.
func (p *Policy) IsIncludable(key string) bool { return p.Is(Includable, key) }

// SetFilterable replaces the filterable list.
func (p *Policy) SetFilterable(l List) { p.Set(Filterable, l) }

// AddFilterable allows paths to be filtered and sorted on.
func (p *Policy) AddFilterable(keys ...string) { p.Add(Filterable, keys...) }

// RemoveFilterable stops paths from being filtered and sorted on.
func (p *Policy) RemoveFilterable(keys ...string) { p.Remove(Filterable, keys...) }

// IsFilterable reports whether a path may be filtered and sorted on.
func (p *Policy) IsFilterable(key string) bool { return p.Is(Filterable, key) }

// DepthLimit returns the maximum number of relation hops.
func (p *Policy) DepthLimit() int {
	return p.depth
}

// SetDepthLimit sets the maximum number of relation hops. Negative
// values are clamped to zero.
func (p *Policy) SetDepthLimit(n int) {
	p.depth = max(n, 0)
}

// ApplyDepthRestriction returns segments[0:min(len(segments), limit+offset)].
func (p *Policy) ApplyDepthRestriction(segments []string, offset int) []string {
	n := min(len(segments), max(p.depth+offset, 0))
	return segments[:n]
}
