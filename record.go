package magicbox

import (
	"encoding/json"
	"maps"
)

// Record is one row of an entity, with its eager-loaded relations.
type Record struct {
	// Type is the entity type name.
	Type string
	// Key is the primary-key column of Type.
	Key string
	// Fields maps column names to scanned values.
	Fields map[string]any
	// Edges holds loaded relations: *Record for singular relations,
	// []*Record for plural ones. A singular relation without a row
	// is present with a nil *Record.
	Edges map[string]any
	// Pivot holds the join-table columns when the record was loaded
	// through a many-to-many relation.
	Pivot map[string]any
}

// NewRecord returns an empty record of the given type.
func NewRecord(typ, key string) *Record {
	return &Record{
		Type:   typ,
		Key:    key,
		Fields: make(map[string]any),
		Edges:  make(map[string]any),
	}
}

// ID returns the primary-key value.
func (r *Record) ID() any {
	return r.Fields[r.Key]
}

// Get returns the value of a column.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Edge returns a loaded relation.
func (r *Record) Edge(name string) (any, bool) {
	v, ok := r.Edges[name]
	return v, ok
}

// One returns a loaded singular relation, or nil.
func (r *Record) One(name string) *Record {
	v, _ := r.Edges[name].(*Record)
	return v
}

// Many returns a loaded plural relation, or nil.
func (r *Record) Many(name string) []*Record {
	v, _ := r.Edges[name].([]*Record)
	return v
}

// Map flattens the record, its relations and its pivot into a map.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.Fields)+len(r.Edges)+1)
	maps.Copy(m, r.Fields)
	for name, v := range r.Edges {
		switch v := v.(type) {
		case *Record:
			if v == nil {
				m[name] = nil
			} else {
				m[name] = v.Map()
			}
		case []*Record:
			vs := make([]map[string]any, len(v))
			for i := range v {
				vs[i] = v[i].Map()
			}
			m[name] = vs
		}
	}
	if r.Pivot != nil {
		m["pivot"] = r.Pivot
	}
	return m
}

// MarshalJSON implements json.Marshaler.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}
