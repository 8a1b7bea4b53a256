package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"

	"github.com/syssam/magicbox"
)

// DefaultPerPage is the page size of Paginate when none is given.
const DefaultPerPage = 15

// Page is one page of records.
type Page struct {
	Items    []*magicbox.Record `json:"data"`
	Total    int                `json:"total"`
	Page     int                `json:"current_page"`
	PerPage  int                `json:"per_page"`
	LastPage int                `json:"last_page"`
}

// All returns every record matching the repository query.
func (r *Repository) All(ctx context.Context) ([]*magicbox.Record, error) {
	q, err := r.query(ctx, true)
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx, q)
}

// Find returns the record with the given key. It returns nil and no error
// when no record matches.
func (r *Repository) Find(ctx context.Context, id any) (*magicbox.Record, error) {
	return r.find(ctx, id, true)
}

// FindOrFail is like Find but returns a *magicbox.NotFoundError when no
// record matches.
func (r *Repository) FindOrFail(ctx context.Context, id any) (*magicbox.Record, error) {
	rec, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, magicbox.NewNotFoundErrorWithID(r.entity.Name, id)
	}
	return rec, nil
}

func (r *Repository) find(ctx context.Context, id any, filtered bool) (*magicbox.Record, error) {
	if id == nil {
		return nil, nil
	}
	q, err := r.query(ctx, filtered)
	if err != nil {
		return nil, err
	}
	key, err := arg(r.entity.KeyField(), id)
	if err != nil {
		return nil, err
	}
	q.Where(sql.EQ(q.C(r.entity.Key), key)).Limit(1)
	records, err := r.fetch(ctx, q)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// Count returns the number of rows of the repository query.
func (r *Repository) Count(ctx context.Context) (int, error) {
	q, err := r.query(ctx, true)
	if err != nil {
		return 0, err
	}
	return r.count(ctx, q.Selector)
}

func (r *Repository) count(ctx context.Context, sel *sql.Selector) (int, error) {
	b := sql.Dialect(r.driver.Dialect())
	outer := b.Select().Count().From(sel.As("counted"))
	values, err := r.values(ctx, outer)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	switch n := keyOf(values[0]).(type) {
	case int64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("repository: unexpected count value %T", values[0])
	}
}

// HasAny reports whether the repository query matches any row.
func (r *Repository) HasAny(ctx context.Context) (bool, error) {
	n, err := r.Count(ctx)
	return n > 0, err
}

// Paginate returns one page of the repository query. Pages start at 1; a
// non-positive perPage uses DefaultPerPage.
func (r *Repository) Paginate(ctx context.Context, page, perPage int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	q, err := r.query(ctx, true)
	if err != nil {
		return nil, err
	}
	total, err := r.count(ctx, q.Clone())
	if err != nil {
		return nil, err
	}
	q.Limit(perPage).Offset((page - 1) * perPage)
	items, err := r.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Page{
		Items:    items,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
		LastPage: max(1, (total+perPage-1)/perPage),
	}, nil
}

// Random returns one random record of the repository query.
func (r *Repository) Random(ctx context.Context) (*magicbox.Record, error) {
	q, err := r.query(ctx, true)
	if err != nil {
		return nil, err
	}
	q.OrderExpr(random(r.driver.Dialect())).Limit(1)
	records, err := r.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, magicbox.NewNotFoundError(r.entity.Name)
	}
	return records[0], nil
}

// Read returns the record with the given key, or the record keyed by the
// input when id is nil.
func (r *Repository) Read(ctx context.Context, id any) (*magicbox.Record, error) {
	if id == nil {
		id = r.InputID()
	}
	return r.FindOrFail(ctx, id)
}

// fetch runs q and loads its eager relations.
func (r *Repository) fetch(ctx context.Context, q *query) ([]*magicbox.Record, error) {
	records, err := r.records(ctx, r.entity, q.Selector)
	if err != nil {
		return nil, err
	}
	if err := r.eagerLoad(ctx, records, q.loads); err != nil {
		return nil, err
	}
	return records, nil
}
