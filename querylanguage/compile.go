package querylanguage

import (
	"fmt"

	"entgo.io/ent/entql"

	"github.com/syssam/magicbox"
	"github.com/syssam/magicbox/graph"
	"github.com/syssam/magicbox/schema/field"
)

// Compile resolves n against entity. Each leaf hop must name a relation of
// the current entity, and the terminal segment a stored column of the
// last target; leaves that do not resolve are dropped. Relation hops
// become nested has-edge predicates around the column comparison. The
// result is nil when no leaf survives.
func Compile(n Node, entity *graph.Entity) (entql.P, []magicbox.Exclusion) {
	c := &compiler{}
	return c.node(n, entity), c.excluded
}

type compiler struct {
	excluded []magicbox.Exclusion
}

func (c *compiler) node(n Node, e *graph.Entity) entql.P {
	switch n := n.(type) {
	case *Leaf:
		return c.leaf(n, e)
	case *Group:
		var acc entql.P
		for _, child := range n.Children {
			p := c.node(child, e)
			switch g, ok := child.(*Group); {
			case p == nil:
			case acc == nil:
				acc = p
			case ok && g.Conj == Or:
				acc = entql.Or(acc, p)
			default:
				acc = entql.And(acc, p)
			}
		}
		return acc
	default:
		return nil
	}
}

func (c *compiler) leaf(l *Leaf, e *graph.Entity) entql.P {
	hops := l.Hops()
	target := e
	for _, hop := range hops {
		rel, ok := target.Relation(hop)
		if !ok {
			c.exclude(l.Path, "%s has no relation %q", target.Name, hop)
			return nil
		}
		target = rel.Target
	}
	column := l.Column()
	fd, ok := target.Field(column)
	if !ok || fd.Virtual {
		c.exclude(l.Path, "%s has no column %q", target.Name, column)
		return nil
	}
	p := predicate(fd, l)
	if p == nil {
		c.exclude(l.Path, "operator %q does not apply", l.Op)
		return nil
	}
	for i := len(hops) - 1; i >= 0; i-- {
		p = entql.HasEdgeWith(hops[i], p)
	}
	return p
}

func (c *compiler) exclude(path, format string, args ...any) {
	c.excluded = append(c.excluded, magicbox.Exclusion{Path: path, Reason: fmt.Sprintf(format, args...)})
}

// predicate builds the column comparison of a leaf. String operands are
// coerced to the field type before comparing.
func predicate(fd *field.Descriptor, l *Leaf) entql.P {
	name := fd.Name
	switch v := l.Value.(type) {
	case nil:
		switch l.Op {
		case OpNull:
			return entql.FieldNil(name)
		case OpNotNull:
			return entql.FieldNotNil(name)
		}
	case bool:
		return entql.FieldEQ(name, v)
	case []string:
		vs := make([]any, len(v))
		for i := range v {
			vs[i] = fd.Coerce(v[i])
		}
		switch l.Op {
		case OpIn:
			return entql.FieldIn(name, vs...)
		case OpNotIn:
			return entql.FieldNotIn(name, vs...)
		}
	case string:
		switch l.Op {
		case OpPrefix:
			return entql.FieldHasPrefix(name, v)
		case OpContains:
			return entql.FieldContains(name, v)
		case OpSuffix:
			return entql.FieldHasSuffix(name, v)
		case OpEQ:
			return entql.FieldEQ(name, fd.Coerce(v))
		case OpNEQ:
			return entql.FieldNEQ(name, fd.Coerce(v))
		case OpGT:
			return entql.FieldGT(name, fd.Coerce(v))
		case OpGTE:
			return entql.FieldGTE(name, fd.Coerce(v))
		case OpLT:
			return entql.FieldLT(name, fd.Coerce(v))
		case OpLTE:
			return entql.FieldLTE(name, fd.Coerce(v))
		}
	}
	return nil
}
