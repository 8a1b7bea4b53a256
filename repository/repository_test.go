package repository_test

import (
	"context"
	"testing"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/magicbox"
	"github.com/syssam/magicbox/graph"
	"github.com/syssam/magicbox/internal/testutil"
	"github.com/syssam/magicbox/privacy"
	"github.com/syssam/magicbox/repository"
	"github.com/syssam/magicbox/resolver"
	"github.com/syssam/magicbox/schema/field"
)

func seeded(t *testing.T) (*graph.Registry, *entsql.Driver) {
	t.Helper()
	reg := testutil.Registry(t)
	drv := testutil.OpenSQLite(t)
	testutil.Seed(t, drv)
	return reg, drv
}

func bind(t *testing.T, reg *graph.Registry, drv *entsql.Driver, entity string, opts ...repository.Option) *repository.Repository {
	t.Helper()
	repo, err := repository.New(reg, entity, drv, opts...)
	require.NoError(t, err)
	return repo
}

func usernames(records []*magicbox.Record) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i], _ = rec.Fields["username"].(string)
	}
	return out
}

func TestNew(t *testing.T) {
	t.Parallel()
	reg := testutil.Registry(t)
	drv := testutil.OpenSQLite(t)

	_, err := repository.New(reg, "Nope", drv)
	assert.True(t, magicbox.IsConfigError(err))
	_, err = repository.New(nil, "User", drv)
	assert.True(t, magicbox.IsConfigError(err))
	_, err = repository.New(reg, "User", nil)
	assert.True(t, magicbox.IsConfigError(err))

	repo := bind(t, reg, drv, "User")
	assert.Equal(t, "id", repo.KeyName())
	assert.Equal(t, "User", repo.Entity().Name)
	assert.Equal(t, privacy.DefaultDepthLimit, repo.Policy().DepthLimit())
	assert.Equal(t, "Repository(User)", repo.String())

	repo = bind(t, reg, drv, "User", repository.WithDepthLimit(3))
	assert.Equal(t, 3, repo.Policy().DepthLimit())
}

func TestPolicyIsPerRepository(t *testing.T) {
	t.Parallel()
	reg := testutil.Registry(t)
	drv := testutil.OpenSQLite(t)
	a := bind(t, reg, drv, "User")
	b := bind(t, reg, drv, "User")
	a.Policy().AddFillable("not_fillable")
	assert.True(t, a.Policy().IsFillable("not_fillable"))
	assert.False(t, b.Policy().IsFillable("not_fillable"))

	user, _ := reg.Entity("User")
	assert.False(t, user.Access.Fillable.Has("not_fillable"))

	c := a.Clone()
	c.Policy().RemoveFillable("not_fillable")
	assert.True(t, a.Policy().IsFillable("not_fillable"))
}

func TestIsManyOperation(t *testing.T) {
	t.Parallel()
	reg := testutil.Registry(t)
	repo := bind(t, reg, testutil.OpenSQLite(t), "User")
	tests := []struct {
		name  string
		input any
		want  bool
	}{
		{name: "nil", input: nil},
		{name: "record", input: map[string]any{"username": "bob"}},
		{name: "empty record", input: map[string]any{}},
		{name: "list", input: []any{map[string]any{"username": "bob"}}, want: true},
		{name: "typed list", input: []map[string]any{{"username": "bob"}}, want: true},
		{name: "empty list", input: []any{}},
		{name: "dense keys", input: map[string]any{"0": map[string]any{}, "1": map[string]any{}}, want: true},
		{name: "sparse keys", input: map[string]any{"0": map[string]any{}, "2": map[string]any{}}},
		{name: "padded keys", input: map[string]any{"00": map[string]any{}}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, repo.SetInput(tt.input).IsManyOperation(), tt.name)
	}
}

func TestSetters(t *testing.T) {
	t.Parallel()
	reg := testutil.Registry(t)
	repo := bind(t, reg, testutil.OpenSQLite(t), "User")

	repo.SetFilters(map[string]any{"username": "=luke"}).
		AddFilters(map[string]string{"hands": ">1"}).
		AddFilter("name", "NOT_NULL")
	assert.Equal(t, map[string]any{"username": "=luke", "hands": ">1", "name": "NOT_NULL"}, repo.Filters())

	repo.SetSortOrder(map[string]string{"username": "asc", "id": "desc"}).AddSort("name", "asc")
	assert.Equal(t, []resolver.Sort{
		{Path: "id", Direction: "desc"},
		{Path: "username", Direction: "asc"},
		{Path: "name", Direction: "asc"},
	}, repo.SortOrder())

	repo.SetEagerLoads("posts", "profile").AddEagerLoad("mentor", nil)
	assert.Equal(t, []string{"posts", "profile", "mentor"}, repo.EagerLoads())

	repo.SetGroupBy("hands, name", " ", "id")
	assert.Equal(t, []string{"hands", "name", "id"}, repo.GroupBy())

	repo.SetAggregate(map[string]string{"count": "id"})
	assert.Equal(t, map[string]string{"count": "id"}, repo.Aggregate())

	repo.SetModifiers(func(*entsql.Selector) {}).AddModifier(func(*entsql.Selector) {})
	assert.Len(t, repo.Modifiers(), 2)

	repo.SetInput(map[string]any{"id": 3})
	assert.Equal(t, 3, repo.InputID())
}

func TestVerify(t *testing.T) {
	t.Parallel()
	reg, drv := seeded(t)
	for _, name := range []string{"User", "Profile", "Post", "Tag", "Note"} {
		require.NoError(t, bind(t, reg, drv, name).Verify(context.Background()), name)
	}

	broken, err := graph.New(widget{})
	require.NoError(t, err)
	repo := bind(t, broken, drv, "Widget")
	err = repo.Verify(context.Background())
	require.Error(t, err)
	assert.True(t, magicbox.IsConfigError(err))
	assert.Contains(t, err.Error(), "color")

	mistyped, err := graph.New(gadget{})
	require.NoError(t, err)
	err = bind(t, mistyped, drv, "Gadget").Verify(context.Background())
	require.Error(t, err)
	assert.True(t, magicbox.IsConfigError(err))
	assert.Contains(t, err.Error(), "mistyped")
	assert.Contains(t, err.Error(), "username")
}

type gadget struct{ magicbox.Schema }

func (gadget) Config() magicbox.Config {
	return magicbox.Config{Name: "Gadget", Table: "users"}
}

func (gadget) Fields() []magicbox.Field {
	return []magicbox.Field{field.Bool("username"), field.Int("hands")}
}

func (gadget) Access() *privacy.Defaults {
	return &privacy.Defaults{}
}

type widget struct{ magicbox.Schema }

func (widget) Config() magicbox.Config {
	return magicbox.Config{Name: "Widget", Table: "users"}
}

func (widget) Fields() []magicbox.Field {
	return []magicbox.Field{field.String("username"), field.String("color")}
}

func (widget) Access() *privacy.Defaults {
	return &privacy.Defaults{}
}
