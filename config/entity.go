package config

import (
	"fmt"

	"github.com/syssam/magicbox"
	"github.com/syssam/magicbox/graph"
	"github.com/syssam/magicbox/privacy"
	"github.com/syssam/magicbox/schema/edge"
	"github.com/syssam/magicbox/schema/field"
)

// EntityConfig declares an entity.
//
//	entities:
//	  - name: User
//	    fields:
//	      - {name: username}
//	      - {name: hands, type: int, optional: true}
//	      - {name: password, type: password, column: password_hash}
//	    relations:
//	      - {name: posts, kind: has_many, target: Post}
//	    fillable: [username, hands, password, posts]
//	    includable: ["*"]
//	    filterable: ["*"]
type EntityConfig struct {
	Name       string           `yaml:"name"`
	Table      string           `yaml:"table,omitempty"`
	Key        string           `yaml:"key,omitempty"`
	Fields     []FieldConfig    `yaml:"fields,omitempty"`
	Relations  []RelationConfig `yaml:"relations,omitempty"`
	Fillable   []string         `yaml:"fillable,omitempty"`
	Includable []string         `yaml:"includable,omitempty"`
	Filterable []string         `yaml:"filterable,omitempty"`
}

// FieldConfig declares a column.
type FieldConfig struct {
	Name string `yaml:"name"`
	// Type is a field type name, see field.FromName, or "password".
	Type      string `yaml:"type,omitempty"`
	Optional  bool   `yaml:"optional,omitempty"`
	Sensitive bool   `yaml:"sensitive,omitempty"`
	Default   any    `yaml:"default,omitempty"`
	// Column is the hash column of a password field. Defaults to the
	// field name suffixed with "_hash".
	Column string `yaml:"column,omitempty"`
}

// RelationConfig declares a relation.
type RelationConfig struct {
	Name       string       `yaml:"name"`
	Kind       string       `yaml:"kind"`
	Target     string       `yaml:"target"`
	ForeignKey string       `yaml:"foreign_key,omitempty"`
	Pivot      *PivotConfig `yaml:"pivot,omitempty"`
}

// PivotConfig declares the join table of a belongs_to_many relation.
type PivotConfig struct {
	Table   string   `yaml:"table,omitempty"`
	Parent  string   `yaml:"parent,omitempty"`
	Target  string   `yaml:"target,omitempty"`
	Columns []string `yaml:"columns,omitempty"`
}

// Schemas returns the declared entities as schemas.
func (c *Config) Schemas() ([]magicbox.Interface, error) {
	out := make([]magicbox.Interface, 0, len(c.Entities))
	for _, ec := range c.Entities {
		s, err := ec.schema()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Registry builds the registry of the declared entities plus extra
// schemas declared in code.
func (c *Config) Registry(extra ...magicbox.Interface) (*graph.Registry, error) {
	schemas, err := c.Schemas()
	if err != nil {
		return nil, err
	}
	return graph.New(append(schemas, extra...)...)
}

// declared implements magicbox.Interface over an EntityConfig.
type declared struct {
	cfg   EntityConfig
	edges []magicbox.Edge
}

func (ec EntityConfig) schema() (magicbox.Interface, error) {
	d := declared{cfg: ec}
	for _, rc := range ec.Relations {
		kind, err := edge.ParseKind(rc.Kind)
		if err != nil {
			return nil, magicbox.NewConfigError(ec.Name, "relation %q: %v", rc.Name, err)
		}
		b := edge.New(kind, rc.Name, rc.Target)
		if rc.ForeignKey != "" {
			b.Field(rc.ForeignKey)
		}
		if p := rc.Pivot; p != nil {
			if p.Table != "" || p.Parent != "" || p.Target != "" {
				b.Through(p.Table, p.Parent, p.Target)
			}
			if len(p.Columns) > 0 {
				b.Pivot(p.Columns...)
			}
		}
		d.edges = append(d.edges, b)
	}
	return d, nil
}

func (d declared) Config() magicbox.Config {
	return magicbox.Config{Name: d.cfg.Name, Table: d.cfg.Table, Key: d.cfg.Key}
}

func (d declared) Fields() []magicbox.Field {
	fields := make([]magicbox.Field, 0, len(d.cfg.Fields))
	for _, fc := range d.cfg.Fields {
		var b *field.Builder
		if fc.Type == "password" {
			column := fc.Column
			if column == "" {
				column = fc.Name + "_hash"
			}
			b = field.Password(fc.Name, column)
		} else {
			b = field.FromName(fc.Name, fc.Type)
		}
		if fc.Optional {
			b.Optional()
		}
		if fc.Sensitive {
			b.Sensitive()
		}
		if fc.Default != nil {
			b.Default(fc.Default)
		}
		fields = append(fields, b)
	}
	return fields
}

func (d declared) Edges() []magicbox.Edge {
	return d.edges
}

func (d declared) Access() *privacy.Defaults {
	return &privacy.Defaults{
		Fillable:   privacy.Parse(d.cfg.Fillable),
		Includable: privacy.Parse(d.cfg.Includable),
		Filterable: privacy.Parse(d.cfg.Filterable),
	}
}

func (d declared) String() string {
	return fmt.Sprintf("declared(%s)", d.cfg.Name)
}
