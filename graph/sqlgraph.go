package graph

import (
	"entgo.io/ent/dialect/sql/sqlgraph"

	"github.com/syssam/magicbox/schema/edge"
)

// lower converts the registry to a sqlgraph schema. Node types are entity
// names and edge names are relation names, so entql predicates built from
// filter paths evaluate directly against it.
func (r *Registry) lower() (*sqlgraph.Schema, error) {
	g := &sqlgraph.Schema{}
	for _, e := range r.order {
		key := e.KeyField()
		node := &sqlgraph.Node{
			NodeSpec: sqlgraph.NodeSpec{
				Table:   e.Table,
				Columns: e.Columns(),
				ID:      sqlgraph.NewFieldSpec(e.Key, key.Type),
			},
			Type:   e.Name,
			Fields: make(map[string]*sqlgraph.FieldSpec, len(e.Fields)),
		}
		for _, fd := range e.Fields {
			if fd.Virtual || fd.Name == e.Key {
				continue
			}
			node.Fields[fd.Name] = sqlgraph.NewFieldSpec(fd.Name, fd.Type)
		}
		g.Nodes = append(g.Nodes, node)
	}
	for _, e := range r.order {
		for _, rel := range e.Relations {
			if err := g.AddE(rel.Name, rel.EdgeSpec(), e.Name, rel.Target.Name); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// EdgeSpec returns the sqlgraph edge spec of the relation.
func (r *Relation) EdgeSpec() *sqlgraph.EdgeSpec {
	switch r.Kind {
	case edge.KindBelongsTo:
		return &sqlgraph.EdgeSpec{
			Rel:     sqlgraph.M2O,
			Inverse: true,
			Table:   r.Owner.Table,
			Columns: []string{r.Field},
		}
	case edge.KindHasOne:
		return &sqlgraph.EdgeSpec{
			Rel:     sqlgraph.O2O,
			Table:   r.Target.Table,
			Columns: []string{r.Field},
		}
	case edge.KindHasMany:
		return &sqlgraph.EdgeSpec{
			Rel:     sqlgraph.O2M,
			Table:   r.Target.Table,
			Columns: []string{r.Field},
		}
	default:
		return &sqlgraph.EdgeSpec{
			Rel:     sqlgraph.M2M,
			Table:   r.Through.Table,
			Columns: []string{r.Through.Parent, r.Through.Target},
		}
	}
}
