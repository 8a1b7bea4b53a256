package graph_test

import (
	"errors"
	"testing"

	"entgo.io/ent/dialect/sql/sqlgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/magicbox"
	"github.com/syssam/magicbox/graph"
	"github.com/syssam/magicbox/internal/testutil"
	"github.com/syssam/magicbox/privacy"
	"github.com/syssam/magicbox/schema/edge"
	"github.com/syssam/magicbox/schema/field"
)

func TestRegistryDefaults(t *testing.T) {
	t.Parallel()
	reg := testutil.Registry(t)

	assert.Equal(t, "users", reg.Table("User"))
	assert.Equal(t, "profiles", reg.Table("Profile"))
	assert.Equal(t, "id", reg.PrimaryKey("Post"))
	assert.Empty(t, reg.Table("Nope"))
	assert.Equal(t, []string{"id", "label"}, reg.Fields("Tag"))
	assert.NotContains(t, reg.Fields("User"), "password")
	assert.Equal(t, []string{"id", "user_id", "title"}, reg.Fields("Post"))

	tests := []struct {
		entity, relation string
		kind             edge.Kind
		fk               string
		through          edge.Through
	}{
		{entity: "User", relation: "posts", kind: edge.KindHasMany, fk: "user_id"},
		{entity: "User", relation: "profile", kind: edge.KindHasOne, fk: "user_id"},
		{entity: "User", relation: "mentor", kind: edge.KindBelongsTo, fk: "mentor_id"},
		{entity: "Post", relation: "user", kind: edge.KindBelongsTo, fk: "user_id"},
		{entity: "Post", relation: "tags", kind: edge.KindBelongsToMany, through: edge.Through{Table: "post_tag", Parent: "post_id", Target: "tag_id"}},
		{entity: "Tag", relation: "posts", kind: edge.KindBelongsToMany, through: edge.Through{Table: "post_tag", Parent: "tag_id", Target: "post_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.entity+"."+tt.relation, func(t *testing.T) {
			rel, ok := reg.Relation(tt.entity, tt.relation)
			require.True(t, ok)
			assert.Equal(t, tt.kind, rel.Kind)
			assert.Equal(t, tt.fk, rel.Field)
			assert.Equal(t, tt.through, rel.Through)
		})
	}
}

func TestRelationAlias(t *testing.T) {
	t.Parallel()
	reg := testutil.Registry(t)
	tests := []struct {
		entity, name, want string
		ok                 bool
	}{
		{entity: "User", name: "posts", want: "posts", ok: true},
		{entity: "User", name: "post", want: "posts", ok: true},
		{entity: "User", name: "profiles", want: "profile", ok: true},
		{entity: "Profile", name: "users", want: "user", ok: true},
		{entity: "Tag", name: "post", want: "posts", ok: true},
		{entity: "User", name: "nothing"},
		{entity: "Nope", name: "posts"},
	}
	for _, tt := range tests {
		rel, ok := reg.RelationAlias(tt.entity, tt.name)
		require.Equal(t, tt.ok, ok, "%s.%s", tt.entity, tt.name)
		if ok {
			assert.Equal(t, tt.want, rel.Name)
		}
	}
	_, ok := reg.Relation("User", "post")
	assert.False(t, ok, "exact lookup must not use aliases")
}

func TestEntity(t *testing.T) {
	t.Parallel()
	reg := testutil.Registry(t)
	user, ok := reg.Entity("User")
	require.True(t, ok)
	assert.True(t, user.AutoKey())
	assert.True(t, user.HasColumn("username"))
	assert.False(t, user.HasColumn("password"))
	fd, ok := user.Field("password")
	require.True(t, ok)
	assert.True(t, fd.Virtual)

	note, _ := reg.Entity("Note")
	assert.False(t, note.AutoKey())
	assert.Equal(t, field.TypeUUID, note.KeyField().Type)

	rel, _ := user.Relation("posts")
	assert.Equal(t, "User.posts(HasMany Post)", rel.String())
	assert.Len(t, reg.Entities(), 5)
}

func TestSchemaLowering(t *testing.T) {
	t.Parallel()
	reg := testutil.Registry(t)
	g := reg.Schema()
	require.Len(t, g.Nodes, 5)
	user := g.Nodes[0]
	assert.Equal(t, "User", user.Type)
	assert.Equal(t, "users", user.Table)
	assert.Contains(t, user.Fields, "username")
	assert.NotContains(t, user.Fields, "password")
	require.Contains(t, user.Edges, "posts")
	assert.Equal(t, sqlgraph.O2M, user.Edges["posts"].Spec.Rel)
	assert.Equal(t, sqlgraph.O2O, user.Edges["profile"].Spec.Rel)
	assert.Equal(t, sqlgraph.M2O, user.Edges["mentor"].Spec.Rel)
	post := g.Nodes[2]
	assert.Equal(t, sqlgraph.M2M, post.Edges["tags"].Spec.Rel)
	assert.Equal(t, []string{"post_id", "tag_id"}, post.Edges["tags"].Spec.Columns)
}

type schema struct {
	magicbox.Schema
	cfg    magicbox.Config
	fields []magicbox.Field
	edges  []magicbox.Edge
	access *privacy.Defaults
}

func (s schema) Config() magicbox.Config { return s.cfg }
func (s schema) Fields() []magicbox.Field { return s.fields }
func (s schema) Edges() []magicbox.Edge { return s.edges }
func (s schema) Access() *privacy.Defaults { return s.access }

func TestRegistryErrors(t *testing.T) {
	t.Parallel()
	allow := &privacy.Defaults{Fillable: privacy.AllowAll()}
	tests := []struct {
		name    string
		schemas []magicbox.Interface
		want    string
	}{
		{
			name:    "nil schema",
			schemas: []magicbox.Interface{nil},
			want:    "nil schema",
		},
		{
			name:    "missing name",
			schemas: []magicbox.Interface{schema{access: allow}},
			want:    "has no name",
		},
		{
			name: "missing access",
			schemas: []magicbox.Interface{
				schema{cfg: magicbox.Config{Name: "A"}},
			},
			want: "missing access lists",
		},
		{
			name: "duplicate entity",
			schemas: []magicbox.Interface{
				schema{cfg: magicbox.Config{Name: "A"}, access: allow},
				schema{cfg: magicbox.Config{Name: "A"}, access: allow},
			},
			want: "declared more than once",
		},
		{
			name: "duplicate field",
			schemas: []magicbox.Interface{
				schema{cfg: magicbox.Config{Name: "A"}, access: allow, fields: []magicbox.Field{field.String("x"), field.Int("x")}},
			},
			want: `field "x" declared more than once`,
		},
		{
			name: "unknown field type",
			schemas: []magicbox.Interface{
				schema{cfg: magicbox.Config{Name: "A"}, access: allow, fields: []magicbox.Field{field.FromName("x", "money")}},
			},
			want: "unknown type",
		},
		{
			name: "virtual key",
			schemas: []magicbox.Interface{
				schema{cfg: magicbox.Config{Name: "A", Key: "code"}, access: allow, fields: []magicbox.Field{field.Virtual("code", nil)}},
			},
			want: "cannot be virtual",
		},
		{
			name: "unknown target",
			schemas: []magicbox.Interface{
				schema{cfg: magicbox.Config{Name: "A"}, access: allow, edges: []magicbox.Edge{edge.HasMany("bs", "B")}},
			},
			want: `targets unknown entity "B"`,
		},
		{
			name: "missing foreign key",
			schemas: []magicbox.Interface{
				schema{cfg: magicbox.Config{Name: "A"}, access: allow, edges: []magicbox.Edge{edge.BelongsTo("b", "B")}},
				schema{cfg: magicbox.Config{Name: "B"}, access: allow},
			},
			want: `foreign key "b_id" is not a field`,
		},
		{
			name: "duplicate relation",
			schemas: []magicbox.Interface{
				schema{cfg: magicbox.Config{Name: "A"}, access: allow, edges: []magicbox.Edge{
					edge.BelongsToMany("as", "A"), edge.BelongsToMany("as", "A"),
				}},
			},
			want: `relation "as" declared more than once`,
		},
		{
			name: "self pivot",
			schemas: []magicbox.Interface{
				schema{cfg: magicbox.Config{Name: "A"}, access: allow, edges: []magicbox.Edge{edge.BelongsToMany("friends", "A")}},
			},
			want: "pivot columns must differ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := graph.New(tt.schemas...)
			require.Error(t, err)
			assert.True(t, magicbox.IsConfigError(err), "%v", err)
			assert.True(t, errors.Is(err, magicbox.ErrConfig))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRegistryCollectsAllErrors(t *testing.T) {
	t.Parallel()
	_, err := graph.New(
		schema{cfg: magicbox.Config{Name: "A"}},
		schema{cfg: magicbox.Config{Name: "B"}, access: &privacy.Defaults{}, edges: []magicbox.Edge{edge.HasOne("c", "C")}},
	)
	var agg *magicbox.AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Len(t, agg.Errors, 2)
}

func TestMustNewPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { graph.MustNew(nil) })
	assert.NotPanics(t, func() { graph.MustNew(testutil.Schemas()...) })
}

func TestSelfPivotWithThrough(t *testing.T) {
	t.Parallel()
	reg, err := graph.New(schema{
		cfg:    magicbox.Config{Name: "Person"},
		access: &privacy.Defaults{},
		edges:  []magicbox.Edge{edge.BelongsToMany("friends", "Person").Through("friendships", "person_id", "friend_id")},
	})
	require.NoError(t, err)
	rel, ok := reg.Relation("Person", "friends")
	require.True(t, ok)
	assert.Equal(t, "friendships", rel.Through.Table)
	assert.Equal(t, "people", reg.Table("Person"))
}
