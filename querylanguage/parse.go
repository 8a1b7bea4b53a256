// Package querylanguage compiles filter maps into graph predicates.
//
// A filter map is keyed by dot-paths or by the conjunction keys "and" and
// "or", whose values are nested filter maps:
//
//	map[string]any{
//	    "username":              "^al",
//	    "posts.tags.label":      "[go,sql]",
//	    "or": map[string]any{"name": "NULL"},
//	}
//
// Parse turns the map into a Node tree, dropping disallowed and malformed
// entries. Compile resolves the tree against an entity and returns an
// entql.P, which sqlgraph evaluates into EXISTS and IN subqueries.
package querylanguage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/syssam/magicbox"
)

// Op is a filter operator.
type Op string

// Filter operators.
const (
	OpEQ       Op = "="
	OpNEQ      Op = "!="
	OpGT       Op = ">"
	OpGTE      Op = ">="
	OpLT       Op = "<"
	OpLTE      Op = "<="
	OpPrefix   Op = "^"
	OpContains Op = "~"
	OpSuffix   Op = "$"
	OpIn       Op = "["
	OpNotIn    Op = "!["
	OpNull     Op = "NULL"
	OpNotNull  Op = "NOT_NULL"
)

// prefixes in match order, two-character operators first.
var prefixes = []Op{OpGTE, OpLTE, OpNEQ, OpNotIn, OpPrefix, OpContains, OpSuffix, OpLT, OpGT, OpEQ, OpIn}

// IsList reports whether the operator takes a value list.
func (o Op) IsList() bool {
	return o == OpIn || o == OpNotIn
}

// Conj joins a group to the siblings before it.
type Conj uint8

// Conjunctions.
const (
	And Conj = iota
	Or
)

// String implements fmt.Stringer.
func (c Conj) String() string {
	if c == Or {
		return "or"
	}
	return "and"
}

type (
	// Node is a *Leaf or a *Group.
	Node interface {
		node()
	}

	// Leaf is a single comparison. Value is a string for scalar
	// operators, a []string for list operators, a bool for the true and
	// false literals and nil for the null tests.
	Leaf struct {
		Path  string
		Op    Op
		Value any
	}

	// Group folds its children left to right. A child group whose Conj
	// is Or is joined to the accumulated predicate with OR, every other
	// child with AND.
	Group struct {
		Conj     Conj
		Children []Node
	}

	// Gate decides which filter paths are admitted.
	Gate interface {
		IsFilterable(key string) bool
		DepthLimit() int
	}
)

func (*Leaf) node()  {}
func (*Group) node() {}

// Hops returns the relation segments of the leaf path.
func (l *Leaf) Hops() []string {
	segments := strings.Split(l.Path, ".")
	return segments[:len(segments)-1]
}

// Column returns the terminal column of the leaf path.
func (l *Leaf) Column() string {
	return l.Path[strings.LastIndexByte(l.Path, '.')+1:]
}

// Parse builds the filter tree of filters. Entries whose leading segment
// is not filterable are dropped at every level; entries with more hops
// than the depth limit are dropped at the top level only. Groups left
// empty are dropped. The returned group is nil when nothing survives.
func Parse(filters map[string]any, gate Gate) (*Group, []magicbox.Exclusion) {
	p := &parser{gate: gate}
	g := p.group(filters, "", true)
	if len(g.Children) == 0 {
		return nil, p.excluded
	}
	return g, p.excluded
}

type parser struct {
	gate     Gate
	excluded []magicbox.Exclusion
}

func (p *parser) exclude(path, format string, args ...any) {
	p.excluded = append(p.excluded, magicbox.Exclusion{Path: path, Reason: fmt.Sprintf(format, args...)})
}

// group parses one level. Siblings are ordered as plain entries sorted by
// key, then "and" groups, then "or" groups.
func (p *parser) group(filters map[string]any, prefix string, top bool) *Group {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var (
		g        = &Group{Conj: And}
		and, ors []Node
	)
	for _, k := range keys {
		v := filters[k]
		switch conj := strings.ToLower(k); conj {
		case "and", "or":
			sub, ok := v.(map[string]any)
			if !ok {
				p.exclude(prefix+k, "expected a nested filter map, got %T", v)
				continue
			}
			child := p.group(sub, prefix+k+".", false)
			if len(child.Children) == 0 {
				continue
			}
			if conj == "or" {
				child.Conj = Or
				ors = append(ors, child)
			} else {
				and = append(and, child)
			}
		default:
			if leaf := p.leaf(prefix, k, v, top); leaf != nil {
				g.Children = append(g.Children, leaf)
			}
		}
	}
	g.Children = append(append(g.Children, and...), ors...)
	return g
}

// leaf parses one entry. Exclusions are reported under prefix+path.
func (p *parser) leaf(prefix, path string, v any, top bool) *Leaf {
	segments := strings.Split(path, ".")
	if !p.gate.IsFilterable(segments[0]) {
		p.exclude(prefix+path, "%q is not filterable", segments[0])
		return nil
	}
	if hops := len(segments) - 1; top && hops > p.gate.DepthLimit() {
		p.exclude(prefix+path, "%d relation hops exceed depth limit %d", hops, p.gate.DepthLimit())
		return nil
	}
	s, ok := v.(string)
	if !ok {
		p.exclude(prefix+path, "expected a string operand, got %T", v)
		return nil
	}
	op, value, reason := ParseOperand(s)
	if reason != "" {
		p.exclude(prefix+path, "%s", reason)
		return nil
	}
	return &Leaf{Path: path, Op: op, Value: value}
}

// ParseOperand splits a filter value into its operator and operand. A
// non-empty reason means the value is not a valid filter.
func ParseOperand(s string) (op Op, value any, reason string) {
	switch s {
	case "true":
		return OpEQ, true, ""
	case "false":
		return OpEQ, false, ""
	case string(OpNull):
		return OpNull, nil, ""
	case string(OpNotNull):
		return OpNotNull, nil, ""
	}
	for _, op := range prefixes {
		rest, ok := strings.CutPrefix(s, string(op))
		if !ok {
			continue
		}
		if op.IsList() {
			return op, strings.Split(strings.TrimSuffix(rest, "]"), ","), ""
		}
		if strings.Contains(rest, ",") {
			return "", nil, fmt.Sprintf("scalar operator %q with list operand %q", op, rest)
		}
		return op, rest, ""
	}
	return "", nil, fmt.Sprintf("unrecognized filter %q", s)
}
