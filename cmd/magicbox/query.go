package main

import (
	"github.com/spf13/cobra"
)

type queryOptions struct {
	filters   []string
	includes  []string
	sorts     []string
	groupBy   []string
	aggregate []string
	page      int
	perPage   int
	id        string
	count     bool
}

func newQueryCmd(a *app) *cobra.Command {
	o := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query <entity>",
		Short: "Read records of an entity",
		Long: `Read records of an entity as JSON.

Filters use the value grammar of the engine: "=v" for equality, "~v" for
contains, "^v" and "$v" for prefix and suffix, ">v" or "<=v" for ranges,
"[a,b]" for lists, NULL and NOT_NULL. A leading "!" negates. Paths may
cross relations ("posts.title").`,
		Example: `  # Users with more than one hand, with their posts
  magicbox query User --filter "hands=>1" --include posts

  # Users sorted by the title of their posts
  magicbox query User --sort posts.title=desc --depth 2

  # Count users per number of hands
  magicbox query User --group-by hands --aggregate count=id`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuery(cmd, args[0], o)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&o.filters, "filter", nil, "filter as path=value (repeatable)")
	f.StringArrayVar(&o.includes, "include", nil, "relation path to eager load (repeatable)")
	f.StringArrayVar(&o.sorts, "sort", nil, "sort as path=asc|desc (repeatable)")
	f.StringSliceVar(&o.groupBy, "group-by", nil, "group-by columns")
	f.StringArrayVar(&o.aggregate, "aggregate", nil, "aggregate as function=column")
	f.IntVar(&o.page, "page", 0, "page number, enables pagination")
	f.IntVar(&o.perPage, "per-page", 0, "page size")
	f.StringVar(&o.id, "id", "", "read one record by key")
	f.BoolVar(&o.count, "count", false, "print the number of matching records")
	cmd.MarkFlagsMutuallyExclusive("id", "count", "page")
	return cmd
}

func (a *app) runQuery(cmd *cobra.Command, entity string, o *queryOptions) error {
	repo, err := a.repository(entity)
	if err != nil {
		return err
	}
	for _, s := range o.filters {
		k, v, err := splitPair(s)
		if err != nil {
			return commandError("parsing --filter", err)
		}
		repo.AddFilter(k, v)
	}
	for _, s := range o.sorts {
		k, v, err := splitPair(s)
		if err != nil {
			return commandError("parsing --sort", err)
		}
		repo.AddSort(k, v)
	}
	if len(o.aggregate) > 0 {
		agg := make(map[string]string, len(o.aggregate))
		for _, s := range o.aggregate {
			k, v, err := splitPair(s)
			if err != nil {
				return commandError("parsing --aggregate", err)
			}
			agg[k] = v
		}
		repo.SetAggregate(agg)
	}
	repo.SetEagerLoads(o.includes...).SetGroupBy(o.groupBy...)

	ctx := cmd.Context()
	switch {
	case o.id != "":
		rec, err := repo.FindOrFail(ctx, o.id)
		if err != nil {
			return commandError("reading "+entity, err)
		}
		return a.print(rec)
	case o.count:
		n, err := repo.Count(ctx)
		if err != nil {
			return commandError("counting "+entity, err)
		}
		return a.print(map[string]int{"count": n})
	case o.page > 0:
		page, err := repo.Paginate(ctx, o.page, o.perPage)
		if err != nil {
			return commandError("paginating "+entity, err)
		}
		return a.print(page)
	}
	records, err := repo.All(ctx)
	if err != nil {
		return commandError("querying "+entity, err)
	}
	return a.print(records)
}
