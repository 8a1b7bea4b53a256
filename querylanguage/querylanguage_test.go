package querylanguage_test

import (
	"testing"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/magicbox/graph"
	"github.com/syssam/magicbox/internal/testutil"
	"github.com/syssam/magicbox/privacy"
	"github.com/syssam/magicbox/querylanguage"
)

func allowAll(depth int) *privacy.Policy {
	return privacy.New(&privacy.Defaults{Filterable: privacy.AllowAll()}, depth)
}

func TestParseOperand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in     string
		op     querylanguage.Op
		value  any
		reject bool
	}{
		{in: "=alice", op: querylanguage.OpEQ, value: "alice"},
		{in: "!=bob", op: querylanguage.OpNEQ, value: "bob"},
		{in: ">=5", op: querylanguage.OpGTE, value: "5"},
		{in: "<=5", op: querylanguage.OpLTE, value: "5"},
		{in: ">5", op: querylanguage.OpGT, value: "5"},
		{in: "<5", op: querylanguage.OpLT, value: "5"},
		{in: "^al", op: querylanguage.OpPrefix, value: "al"},
		{in: "~lic", op: querylanguage.OpContains, value: "lic"},
		{in: "$ce", op: querylanguage.OpSuffix, value: "ce"},
		{in: "[a,b,c]", op: querylanguage.OpIn, value: []string{"a", "b", "c"}},
		{in: "![a,b]", op: querylanguage.OpNotIn, value: []string{"a", "b"}},
		{in: "[solo", op: querylanguage.OpIn, value: []string{"solo"}},
		{in: "true", op: querylanguage.OpEQ, value: true},
		{in: "false", op: querylanguage.OpEQ, value: false},
		{in: "NULL", op: querylanguage.OpNull},
		{in: "NOT_NULL", op: querylanguage.OpNotNull},
		{in: "=", op: querylanguage.OpEQ, value: ""},
		{in: "=Bobby,Robby", reject: true},
		{in: "^a,b", reject: true},
		{in: "alice", reject: true},
		{in: "null", reject: true},
		{in: "", reject: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			op, value, reason := querylanguage.ParseOperand(tt.in)
			if tt.reject {
				assert.NotEmpty(t, reason)
				return
			}
			require.Empty(t, reason)
			assert.Equal(t, tt.op, op)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestParseOrder(t *testing.T) {
	t.Parallel()
	g, excluded := querylanguage.Parse(map[string]any{
		"or":       map[string]any{"username": "^bo"},
		"name":     "NOT_NULL",
		"AND":      map[string]any{"hands": ">1"},
		"username": "^al",
	}, allowAll(1))
	require.Empty(t, excluded)
	require.NotNil(t, g)
	require.Len(t, g.Children, 4)
	assert.Equal(t, &querylanguage.Leaf{Path: "name", Op: querylanguage.OpNotNull}, g.Children[0])
	assert.Equal(t, &querylanguage.Leaf{Path: "username", Op: querylanguage.OpPrefix, Value: "al"}, g.Children[1])
	and, ok := g.Children[2].(*querylanguage.Group)
	require.True(t, ok)
	assert.Equal(t, querylanguage.And, and.Conj)
	or, ok := g.Children[3].(*querylanguage.Group)
	require.True(t, ok)
	assert.Equal(t, querylanguage.Or, or.Conj)
	assert.Equal(t, "or", or.Conj.String())
}

func TestParseGating(t *testing.T) {
	t.Parallel()
	policy := privacy.New(&privacy.Defaults{Filterable: privacy.Allow("username", "posts")}, 1)
	g, excluded := querylanguage.Parse(map[string]any{
		"username":         "=luke",
		"not_filterable":   "=x",
		"posts.tags.label": "=x",
		"posts.title":      "=x",
		"or": map[string]any{
			"name": "=leia",
		},
		"and": map[string]any{
			"posts.tags.label": "=deep",
		},
	}, policy)
	require.NotNil(t, g)
	paths := make([]string, 0, len(excluded))
	for _, e := range excluded {
		paths = append(paths, e.Path)
	}
	assert.ElementsMatch(t, []string{"not_filterable", "posts.tags.label", "or.name"}, paths)
	// Depth is only enforced at the top level, so the nested 2-hop entry survives.
	require.Len(t, g.Children, 3)
	assert.Equal(t, "posts.title", g.Children[0].(*querylanguage.Leaf).Path)
	nested := g.Children[2].(*querylanguage.Group)
	assert.Equal(t, "posts.tags.label", nested.Children[0].(*querylanguage.Leaf).Path)
}

func TestParseNestedExclusionPaths(t *testing.T) {
	t.Parallel()
	_, excluded := querylanguage.Parse(map[string]any{
		"or": map[string]any{
			"username": "luke",
			"and": map[string]any{
				"hands": 2,
				"name":  "=leia",
			},
		},
	}, allowAll(1))
	paths := make([]string, 0, len(excluded))
	for _, e := range excluded {
		paths = append(paths, e.Path)
	}
	assert.ElementsMatch(t, []string{"or.username", "or.and.hands"}, paths)
}

func TestParseDropsEverything(t *testing.T) {
	t.Parallel()
	g, excluded := querylanguage.Parse(map[string]any{
		"username": "=a,b",
		"hands":    5,
		"or":       "nope",
	}, allowAll(0))
	assert.Nil(t, g)
	assert.Len(t, excluded, 3)

	g, excluded = querylanguage.Parse(nil, allowAll(0))
	assert.Nil(t, g)
	assert.Empty(t, excluded)
}

func compile(t *testing.T, filters map[string]any, depth int) (string, []string) {
	t.Helper()
	reg := testutil.Registry(t)
	user, _ := reg.Entity("User")
	g, excluded := querylanguage.Parse(filters, allowAll(depth))
	var reasons []string
	for _, e := range excluded {
		reasons = append(reasons, e.Path)
	}
	if g == nil {
		return "", reasons
	}
	p, dropped := querylanguage.Compile(g, user)
	for _, e := range dropped {
		reasons = append(reasons, e.Path)
	}
	if p == nil {
		return "", reasons
	}
	return p.String(), reasons
}

func TestCompile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		filters  map[string]any
		depth    int
		want     string
		excluded []string
	}{
		{
			name:    "equals",
			filters: map[string]any{"username": "=alice"},
			want:    `username == "alice"`,
		},
		{
			name:    "coerced integer",
			filters: map[string]any{"times_captured": ">2"},
			want:    `times_captured > 2`,
		},
		{
			name:    "uncoercible integer",
			filters: map[string]any{"hands": "=two"},
			want:    `hands == "two"`,
		},
		{
			name:    "or group",
			filters: map[string]any{"username": "^al", "or": map[string]any{"username": "^bo"}},
			want:    `has_prefix(username, "al") || has_prefix(username, "bo")`,
		},
		{
			name:    "in list",
			filters: map[string]any{"id": "[1,2,3]"},
			want:    `id in [1,2,3]`,
		},
		{
			name:    "not in list",
			filters: map[string]any{"username": "![a,b]"},
			want:    `username not in ["a","b"]`,
		},
		{
			name:    "null",
			filters: map[string]any{"occupation": "NULL"},
			want:    `occupation == nil`,
		},
		{
			name:    "one hop",
			filters: map[string]any{"profile.favorite_cheese": "~Gou"},
			depth:   1,
			want:    `has_edge(profile, contains(favorite_cheese, "Gou"))`,
		},
		{
			name:    "bool through relation",
			filters: map[string]any{"profile.is_human": "=true"},
			depth:   1,
			want:    `has_edge(profile, is_human == true)`,
		},
		{
			name:    "two hops",
			filters: map[string]any{"posts.tags.label": "=#peace"},
			depth:   2,
			want:    `has_edge(posts, has_edge(tags, label == "#peace"))`,
		},
		{
			name:     "two hops over the limit",
			filters:  map[string]any{"posts.tags.label": "=#peace"},
			depth:    1,
			excluded: []string{"posts.tags.label"},
		},
		{
			name:     "unknown relation",
			filters:  map[string]any{"posts.nothing.label": "=x", "username": "=luke"},
			depth:    3,
			want:     `username == "luke"`,
			excluded: []string{"posts.nothing.label"},
		},
		{
			name:     "unknown column",
			filters:  map[string]any{"height": ">3"},
			excluded: []string{"height"},
		},
		{
			name:     "virtual column",
			filters:  map[string]any{"password": "=x"},
			excluded: []string{"password"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, excluded := compile(t, tt.filters, tt.depth)
			assert.Equal(t, tt.want, got)
			assert.ElementsMatch(t, tt.excluded, excluded)
		})
	}
}

func TestCompileNestedConjunctions(t *testing.T) {
	t.Parallel()
	got, excluded := compile(t, map[string]any{
		"username": "^Bob",
		"or": map[string]any{
			"username": "^Rob",
			"and": map[string]any{
				"profile.favorite_cheese": "=Cheddar",
				"username":                "$bby",
			},
			"or": map[string]any{
				"username": "=Gobby",
			},
		},
	}, 1)
	require.Empty(t, excluded)
	assert.Equal(t,
		`has_prefix(username, "Bob") || has_prefix(username, "Rob") && has_edge(profile, favorite_cheese == "Cheddar") && has_suffix(username, "bby") || username == "Gobby"`,
		got,
	)
}

func TestCompileEvaluates(t *testing.T) {
	t.Parallel()
	reg := testutil.Registry(t)
	user, _ := reg.Entity("User")
	g, _ := querylanguage.Parse(map[string]any{"posts.tags.id": "=3"}, allowAll(2))
	p, _ := querylanguage.Compile(g, user)
	require.NotNil(t, p)

	s := sql.Dialect(dialect.SQLite).Select().From(sql.Table("users"))
	require.NoError(t, reg.Schema().EvalP(user.Name, p, s))
	query, args := s.Query()
	assert.Contains(t, query, "EXISTS")
	assert.Contains(t, query, "`post_tag`")
	assert.Equal(t, []any{int64(3)}, args)
}

func TestCompileNil(t *testing.T) {
	t.Parallel()
	p, excluded := querylanguage.Compile(nil, &graph.Entity{})
	assert.Nil(t, p)
	assert.Empty(t, excluded)
}
