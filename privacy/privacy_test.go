package privacy_test

import (
	"testing"

	"github.com/syssam/magicbox/privacy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	t.Parallel()

	t.Run("AllowAll", func(t *testing.T) {
		l := privacy.AllowAll()
		assert.True(t, l.IsAll())
		assert.True(t, l.Has("anything"))
		assert.Nil(t, l.Keys())
		assert.Equal(t, "[*]", l.String())
	})

	t.Run("Allow", func(t *testing.T) {
		l := privacy.Allow("name", "age")
		assert.False(t, l.IsAll())
		assert.True(t, l.Has("name"))
		assert.False(t, l.Has("secret"))
		assert.Equal(t, []string{"age", "name"}, l.Keys())
		assert.Equal(t, 2, l.Len())
	})

	t.Run("ZeroValue", func(t *testing.T) {
		var l privacy.List
		assert.False(t, l.IsAll())
		assert.False(t, l.Has("name"))
		assert.Empty(t, l.Keys())
	})

	t.Run("Parse", func(t *testing.T) {
		assert.True(t, privacy.Parse([]string{"*"}).IsAll())
		assert.False(t, privacy.Parse([]string{"*", "name"}).IsAll())
		assert.True(t, privacy.Parse([]string{"*", "name"}).Has("*"))
		assert.Equal(t, []string{"a"}, privacy.Parse([]string{"a"}).Keys())
	})
}

func TestPolicyLists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind   privacy.Kind
		set    func(*privacy.Policy, privacy.List)
		add    func(*privacy.Policy, ...string)
		remove func(*privacy.Policy, ...string)
		is     func(*privacy.Policy, string) bool
	}{
		{
			kind:   privacy.Fillable,
			set:    (*privacy.Policy).SetFillable,
			add:    (*privacy.Policy).AddFillable,
			remove: (*privacy.Policy).RemoveFillable,
			is:     (*privacy.Policy).IsFillable,
		},
		{
			kind:   privacy.Includable,
			set:    (*privacy.Policy).SetIncludable,
			add:    (*privacy.Policy).AddIncludable,
			remove: (*privacy.Policy).RemoveIncludable,
			is:     (*privacy.Policy).IsIncludable,
		},
		{
			kind:   privacy.Filterable,
			set:    (*privacy.Policy).SetFilterable,
			add:    (*privacy.Policy).AddFilterable,
			remove: (*privacy.Policy).RemoveFilterable,
			is:     (*privacy.Policy).IsFilterable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			t.Parallel()
			p := privacy.New(nil, 1)
			assert.False(t, tt.is(p, "x"))

			tt.add(p, "x")
			assert.True(t, tt.is(p, "x"))
			assert.False(t, tt.is(p, "y"))

			tt.add(p, "y", "z")
			assert.Equal(t, []string{"x", "y", "z"}, p.Keys(tt.kind))
			assert.Equal(t, map[string]bool{"x": true, "y": true, "z": true}, p.Map(tt.kind))

			tt.remove(p, "x", "y")
			assert.False(t, tt.is(p, "x"))
			assert.True(t, tt.is(p, "z"))

			tt.set(p, privacy.AllowAll())
			for _, key := range []string{"x", "y", "anything"} {
				assert.True(t, tt.is(p, key))
			}
			assert.True(t, p.IsAll(tt.kind))
			assert.Nil(t, p.Map(tt.kind))

			// Removing from the wildcard keeps it.
			tt.remove(p, "x")
			assert.True(t, tt.is(p, "x"))

			// Adding to the wildcard drops it.
			tt.add(p, "only")
			assert.False(t, p.IsAll(tt.kind))
			assert.True(t, tt.is(p, "only"))
			assert.False(t, tt.is(p, "x"))

			tt.set(p, privacy.Allow("a"))
			assert.Equal(t, []string{"a"}, p.Keys(tt.kind))
		})
	}
}

func TestPolicySeededByCopy(t *testing.T) {
	t.Parallel()

	defaults := &privacy.Defaults{
		Fillable:   privacy.Allow("username"),
		Includable: privacy.AllowAll(),
		Filterable: privacy.Allow("username", "posts"),
	}
	p1 := privacy.New(defaults, 1)
	p2 := privacy.New(defaults, 1)

	p1.AddFillable("secret")
	p1.RemoveFilterable("posts")

	assert.True(t, p1.IsFillable("secret"))
	assert.False(t, p2.IsFillable("secret"))
	assert.True(t, p2.IsFilterable("posts"))
	assert.False(t, defaults.Fillable.Has("secret"))
	assert.True(t, defaults.Filterable.Has("posts"))

	c := p2.Clone()
	c.AddFillable("other")
	assert.False(t, p2.IsFillable("other"))
}

func TestDepthLimit(t *testing.T) {
	t.Parallel()

	p := privacy.New(nil, -3)
	assert.Equal(t, 0, p.DepthLimit())

	p.SetDepthLimit(2)
	assert.Equal(t, 2, p.DepthLimit())

	p.SetDepthLimit(-1)
	assert.Equal(t, 0, p.DepthLimit())
}

func TestApplyDepthRestriction(t *testing.T) {
	t.Parallel()

	segments := []string{"posts", "tags", "label"}
	tests := []struct {
		depth  int
		offset int
		want   []string
	}{
		{depth: 0, offset: 0, want: []string{}},
		{depth: 1, offset: 0, want: []string{"posts"}},
		{depth: 2, offset: 0, want: []string{"posts", "tags"}},
		{depth: 1, offset: 1, want: []string{"posts", "tags"}},
		{depth: 5, offset: 0, want: []string{"posts", "tags", "label"}},
		{depth: 0, offset: -1, want: []string{}},
	}
	for _, tt := range tests {
		p := privacy.New(nil, tt.depth)
		got := p.ApplyDepthRestriction(segments, tt.offset)
		require.Len(t, got, len(tt.want))
		assert.Equal(t, tt.want, got)
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fillable", privacy.Fillable.String())
	assert.Equal(t, "includable", privacy.Includable.String())
	assert.Equal(t, "filterable", privacy.Filterable.String())
	assert.Equal(t, "Kind(9)", privacy.Kind(9).String())
}
