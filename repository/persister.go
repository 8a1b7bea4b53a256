package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/syssam/magicbox"
	"github.com/syssam/magicbox/graph"
	"github.com/syssam/magicbox/schema/edge"
	"github.com/syssam/magicbox/schema/field"
)

// pivotKey is the input key holding the pivot columns of a many-to-many
// child.
const pivotKey = "pivot"

// Create inserts the input record with its relations and returns it as
// read back from the database.
func (r *Repository) Create(ctx context.Context) (*magicbox.Record, error) {
	id, err := r.fill(ctx, r.single(), nil)
	if err != nil {
		return nil, err
	}
	return r.reread(ctx, id)
}

// Update writes the input to the record with the given key, or the record
// keyed by the input when id is nil. The record must match the repository
// query.
func (r *Repository) Update(ctx context.Context, id any) (*magicbox.Record, error) {
	current, err := r.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.fill(ctx, r.single(), current.ID()); err != nil {
		return nil, err
	}
	return r.reread(ctx, current.ID())
}

// Save updates when a key is given or present in the input, and creates
// otherwise.
func (r *Repository) Save(ctx context.Context, id any) (*magicbox.Record, error) {
	if id == nil {
		id = r.InputID()
	}
	if id != nil {
		return r.Update(ctx, id)
	}
	return r.Create(ctx)
}

// Delete deletes the record with the given key, or the record keyed by the
// input when id is nil. The record must match the repository query.
func (r *Repository) Delete(ctx context.Context, id any) error {
	current, err := r.Read(ctx, id)
	if err != nil {
		return err
	}
	b := sql.Dialect(r.driver.Dialect())
	_, err = r.exec(ctx, b.Delete(r.entity.Table).Where(sql.EQ(r.entity.Key, current.ID())))
	return err
}

// CreateMany creates every record of a many-input, in order.
func (r *Repository) CreateMany(ctx context.Context) ([]*magicbox.Record, error) {
	var out []*magicbox.Record
	for _, item := range r.many() {
		rec, err := r.Clone().SetInput(item).Create(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// UpdateMany updates every record of a many-input by its own key, in
// order.
func (r *Repository) UpdateMany(ctx context.Context) ([]*magicbox.Record, error) {
	var out []*magicbox.Record
	for _, item := range r.many() {
		c := r.Clone().SetInput(item)
		rec, err := c.Update(ctx, c.InputID())
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// reread returns the freshly written record through the repository query,
// without its filters.
func (r *Repository) reread(ctx context.Context, id any) (*magicbox.Record, error) {
	rec, err := r.find(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, magicbox.NewNotFoundErrorWithID(r.entity.Name, id)
	}
	return rec, nil
}

// cascade is a relation input waiting for its side of the save.
type cascade struct {
	rel   *graph.Relation
	value any
}

// fill writes input to the record keyed id, or inserts a new record when
// id is nil, and returns its key. Belongs-to relations are saved first
// and associated through the foreign key; the other relations are saved
// after the record, with its key.
func (r *Repository) fill(ctx context.Context, input map[string]any, id any) (any, error) {
	var (
		values        = make(map[string]any)
		before, after []cascade
	)
	for _, key := range slices.Sorted(maps.Keys(input)) {
		v := input[key]
		if key == r.entity.Key && (id != nil || r.entity.AutoKey()) {
			continue
		}
		if !r.policy.IsFillable(key) {
			r.logExcluded(ctx, "fill", []magicbox.Exclusion{{Path: key, Reason: "not fillable"}})
			continue
		}
		if rel, ok := r.entity.Relation(key); ok {
			if rel.Kind.BeforeSave() {
				before = append(before, cascade{rel: rel, value: v})
			} else {
				after = append(after, cascade{rel: rel, value: v})
			}
			continue
		}
		fd, ok := r.entity.Field(key)
		if !ok {
			continue
		}
		if err := r.assign(values, fd, v); err != nil {
			return nil, err
		}
	}
	for _, c := range before {
		if err := r.associate(ctx, c, values); err != nil {
			return nil, err
		}
	}
	var err error
	if id == nil {
		id, err = r.insert(ctx, values)
	} else {
		err = r.update(ctx, id, values)
	}
	if err != nil {
		return nil, err
	}
	for _, c := range after {
		if err := r.cascade(ctx, c, id); err != nil {
			return nil, err
		}
	}
	return id, nil
}

// assign sets the column values of one input field, through its setter
// when it has one.
func (r *Repository) assign(values map[string]any, fd *field.Descriptor, v any) error {
	if fd.Setter == nil {
		a, err := arg(fd, v)
		if err != nil {
			return fmt.Errorf("repository: %s.%s: %w", r.entity.Name, fd.Name, err)
		}
		values[fd.Name] = a
		return nil
	}
	set, err := fd.Setter(v)
	if err != nil {
		return err
	}
	for column, v := range set {
		cd, ok := r.entity.Field(column)
		if !ok || cd.Virtual {
			return magicbox.NewConfigError(r.entity.Name, "setter of %q writes unknown column %q", fd.Name, column)
		}
		a, err := arg(cd, v)
		if err != nil {
			return err
		}
		values[column] = a
	}
	return nil
}

func (r *Repository) insert(ctx context.Context, values map[string]any) (any, error) {
	for _, fd := range r.entity.Fields {
		if fd.Virtual {
			continue
		}
		if _, ok := values[fd.Name]; ok {
			continue
		}
		if v, ok := fd.DefaultValue(); ok {
			values[fd.Name] = v
		}
	}
	key := r.entity.KeyField()
	if !r.entity.AutoKey() && values[key.Name] == nil && key.Type == field.TypeUUID {
		values[key.Name] = uuid.New().String()
	}
	b := sql.Dialect(r.driver.Dialect())
	ins := b.Insert(r.entity.Table)
	columns := slices.Sorted(maps.Keys(values))
	if len(columns) == 0 {
		ins.Default()
	}
	for _, c := range columns {
		ins.Set(c, values[c])
	}
	if !r.entity.AutoKey() {
		_, err := r.exec(ctx, ins)
		return values[key.Name], err
	}
	if r.driver.Dialect() == dialect.Postgres {
		ids, err := r.values(ctx, ins.Returning(key.Name))
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("repository: insert into %s returned no key", r.entity.Table)
		}
		return keyOf(ids[0]), nil
	}
	res, err := r.exec(ctx, ins)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return id, nil
}

func (r *Repository) update(ctx context.Context, id any, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	b := sql.Dialect(r.driver.Dialect())
	upd := b.Update(r.entity.Table)
	for _, c := range slices.Sorted(maps.Keys(values)) {
		upd.Set(c, values[c])
	}
	_, err := r.exec(ctx, upd.Where(sql.EQ(r.entity.Key, id)))
	return err
}

// child binds the repository of a relation target.
func (r *Repository) child(rel *graph.Relation) (*Repository, error) {
	c, err := r.factory(rel.Target.Name)
	if err != nil {
		return nil, err
	}
	if c.entity != rel.Target {
		return nil, magicbox.NewConfigError(r.entity.Name, "factory bound %s for relation %q", c.entity.Name, rel.Name)
	}
	return c, nil
}

// associate saves a belongs-to input and sets the foreign key to its key.
func (r *Repository) associate(ctx context.Context, c cascade, values map[string]any) error {
	input, ok := c.value.(map[string]any)
	if !ok {
		return nil
	}
	repo, err := r.child(c.rel)
	if err != nil {
		return err
	}
	r.logger.DebugContext(ctx, "cascade", "entity", r.entity.Name, "relation", c.rel.Name, "kind", c.rel.Kind)
	related, err := repo.SetInput(input).Save(ctx, nil)
	if err != nil {
		return err
	}
	values[c.rel.Field] = related.ID()
	return nil
}

// cascade saves a has-one, has-many or many-to-many input of the record
// keyed id.
func (r *Repository) cascade(ctx context.Context, c cascade, id any) error {
	repo, err := r.child(c.rel)
	if err != nil {
		return err
	}
	r.logger.DebugContext(ctx, "cascade", "entity", r.entity.Name, "relation", c.rel.Name, "kind", c.rel.Kind)
	switch c.rel.Kind {
	case edge.KindHasOne:
		input, ok := c.value.(map[string]any)
		if !ok {
			return nil
		}
		return r.saveHasOne(ctx, repo, c.rel, input, id)
	case edge.KindHasMany:
		items, ok := list(c.value)
		if !ok {
			return nil
		}
		return r.saveHasMany(ctx, repo, c.rel, items, id)
	case edge.KindBelongsToMany:
		items, ok := list(c.value)
		if !ok {
			return nil
		}
		return r.sync(ctx, repo, c.rel, items, id)
	}
	return nil
}

// list returns the maps of a plural relation input.
func list(v any) ([]map[string]any, bool) {
	switch v := v.(type) {
	case []map[string]any:
		return v, true
	case []any:
		return mapsOf(v), true
	default:
		return nil, false
	}
}

// saveHasOne replaces the current child when the input names another row
// or none, then saves the input with the foreign key set.
func (r *Repository) saveHasOne(ctx context.Context, repo *Repository, rel *graph.Relation, input map[string]any, id any) error {
	target := rel.Target
	b := sql.Dialect(r.driver.Dialect())
	current, err := r.values(ctx, b.Select(target.Key).From(b.Table(target.Table)).Where(sql.EQ(rel.Field, id)))
	if err != nil {
		return err
	}
	if len(current) > 0 {
		next := keyOf(input[target.Key])
		if next == nil || next != keyOf(current[0]) {
			if _, err := r.exec(ctx, b.Delete(target.Table).Where(sql.EQ(rel.Field, id))); err != nil {
				return err
			}
		}
	}
	input = maps.Clone(input)
	input[rel.Field] = id
	_, err = repo.SetInput(input).Save(ctx, nil)
	return err
}

// saveHasMany deletes the current children missing from items, then saves
// every item with the foreign key set.
func (r *Repository) saveHasMany(ctx context.Context, repo *Repository, rel *graph.Relation, items []map[string]any, id any) error {
	target := rel.Target
	b := sql.Dialect(r.driver.Dialect())
	current, err := r.values(ctx, b.Select(target.Key).From(b.Table(target.Table)).Where(sql.EQ(rel.Field, id)))
	if err != nil {
		return err
	}
	kept := make(map[any]bool, len(items))
	for _, item := range items {
		if k := keyOf(item[target.Key]); k != nil {
			kept[k] = true
		}
	}
	var removed []any
	for _, v := range current {
		if !kept[keyOf(v)] {
			removed = append(removed, v)
		}
	}
	if len(removed) > 0 {
		if _, err := r.exec(ctx, b.Delete(target.Table).Where(sql.In(target.Key, removed...))); err != nil {
			return err
		}
	}
	for _, item := range items {
		item = maps.Clone(item)
		item[rel.Field] = id
		if _, err := repo.Clone().SetInput(item).Save(ctx, nil); err != nil {
			return err
		}
	}
	return nil
}

// sync saves every item and makes the pivot rows of id match them:
// missing targets are detached, new ones attached and the pivot columns
// of kept ones rewritten when given.
func (r *Repository) sync(ctx context.Context, repo *Repository, rel *graph.Relation, items []map[string]any, id any) error {
	type attachment struct {
		id    any
		pivot map[string]any
	}
	var targets []attachment
	for _, item := range items {
		saved, err := repo.Clone().SetInput(item).Save(ctx, nil)
		if err != nil {
			return err
		}
		a := attachment{id: saved.ID()}
		if data, ok := item[pivotKey].(map[string]any); ok {
			a.pivot = make(map[string]any)
			for _, c := range rel.Pivot {
				if v, ok := data[c]; ok {
					a.pivot[c] = v
				}
			}
		}
		targets = append(targets, a)
	}
	var (
		b       = sql.Dialect(r.driver.Dialect())
		through = rel.Through
	)
	current, err := r.values(ctx, b.Select(through.Target).From(b.Table(through.Table)).Where(sql.EQ(through.Parent, id)))
	if err != nil {
		return err
	}
	attached := make(map[any]bool, len(current))
	for _, v := range current {
		attached[keyOf(v)] = true
	}
	wanted := make(map[any]bool, len(targets))
	for _, t := range targets {
		wanted[keyOf(t.id)] = true
	}
	var detach []any
	for _, v := range current {
		if !wanted[keyOf(v)] {
			detach = append(detach, v)
		}
	}
	if len(detach) > 0 {
		del := b.Delete(through.Table).Where(sql.And(sql.EQ(through.Parent, id), sql.In(through.Target, detach...)))
		if _, err := r.exec(ctx, del); err != nil {
			return err
		}
	}
	seen := make(map[any]bool, len(targets))
	for _, t := range targets {
		k := keyOf(t.id)
		switch {
		case seen[k]:
			continue
		case attached[k] && len(t.pivot) == 0:
		case attached[k]:
			upd := b.Update(through.Table)
			for _, c := range slices.Sorted(maps.Keys(t.pivot)) {
				upd.Set(c, t.pivot[c])
			}
			if _, err := r.exec(ctx, upd.Where(sql.And(sql.EQ(through.Parent, id), sql.EQ(through.Target, t.id)))); err != nil {
				return err
			}
		default:
			ins := b.Insert(through.Table).Set(through.Parent, id).Set(through.Target, t.id)
			for _, c := range slices.Sorted(maps.Keys(t.pivot)) {
				ins.Set(c, t.pivot[c])
			}
			if _, err := r.exec(ctx, ins); err != nil {
				return err
			}
		}
		seen[k] = true
	}
	return nil
}
