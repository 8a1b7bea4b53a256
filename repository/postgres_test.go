package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/magicbox/internal/testutil"
	"github.com/syssam/magicbox/repository"
)

func TestPostgres(t *testing.T) {
	drv := testutil.OpenPostgres(t)
	testutil.Seed(t, drv)
	reg := testutil.Registry(t)
	ctx := context.Background()

	for _, name := range []string{"User", "Profile", "Post", "Tag", "Note"} {
		require.NoError(t, bind(t, reg, drv, name).Verify(ctx), name)
	}

	records, err := bind(t, reg, drv, "User", repository.WithDepthLimit(2)).
		SetFilters(map[string]any{"posts.tags.label": "=#mysonistheworst"}).
		AddSort("profile.favorite_cheese", "asc").
		SetEagerLoads("posts", "profile").
		All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{testutil.Han, testutil.Leia}, usernames(records))
	assert.Equal(t, true, records[0].One("profile").Fields["is_human"])

	rec, err := bind(t, reg, drv, "User").
		SetInput(map[string]any{
			"username": "rey",
			"profile":  map[string]any{"favorite_cheese": "Ricotta"},
			"posts":    []any{map[string]any{"title": "Nobody", "tags": []any{map[string]any{"id": 1}}}},
		}).
		Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), rec.ID())
	assert.Equal(t, int64(1), testutil.QueryInt(t, drv, "SELECT COUNT(*) FROM profiles WHERE user_id = 5"))
	assert.Equal(t, int64(1), testutil.QueryInt(t, drv, "SELECT COUNT(*) FROM post_tag WHERE tag_id = 1 AND post_id = 5"))

	page, err := bind(t, reg, drv, "User").AddSort("id", "asc").Paginate(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.LastPage)
	assert.Equal(t, []string{testutil.Han, testutil.Chewbacca}, usernames(page.Items))

	aggregate, err := bind(t, reg, drv, "User").SetAggregate(map[string]string{"sum": "hands"}).All(ctx)
	require.NoError(t, err)
	require.Len(t, aggregate, 1)
	assert.EqualValues(t, 5, aggregate[0].Fields[repository.AggregateColumn])

	require.NoError(t, bind(t, reg, drv, "User").Delete(ctx, 5))
	n, err := bind(t, reg, drv, "User").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
