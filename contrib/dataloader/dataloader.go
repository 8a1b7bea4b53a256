// Package dataloader provides the batching helpers used to eager-load
// relations.
//
// A relation of N parent rows is loaded with one IN query per batch of
// distinct keys instead of N queries, and the result rows are grouped back
// onto their parents:
//
//	children, err := dataloader.Load(ctx, keys, 500, func(ctx context.Context, batch []any) ([]*Row, error) {
//	    return queryByParent(ctx, batch)
//	})
//	groups := dataloader.GroupByKey(children, func(r *Row) any { return r.ParentID })
//	ordered := dataloader.OrderGroupsByKeys(keys, groups)
package dataloader

import (
	"context"
)

// DefaultBatchSize bounds the number of keys bound in one query. It stays
// well below the host parameter limits of the supported databases.
const DefaultBatchSize = 500

// KeyFunc extracts a key from a value.
type KeyFunc[K comparable, V any] func(V) K

// BatchFunc loads the values of one batch of keys.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, error)

// Load calls fn once per batch of at most size distinct keys and
// concatenates the results in batch order. It stops at the first error.
// A size of zero or less uses DefaultBatchSize.
func Load[K comparable, V any](ctx context.Context, keys []K, size int, fn BatchFunc[K, V]) ([]V, error) {
	var out []V
	for _, batch := range Chunk(Unique(keys), size) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values, err := fn(ctx, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, values...)
	}
	return out, nil
}

// Unique returns keys without duplicates, keeping the first occurrence.
func Unique[K comparable](keys []K) []K {
	seen := make(map[K]struct{}, len(keys))
	out := make([]K, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Chunk splits keys into consecutive batches of at most size keys.
func Chunk[K any](keys []K, size int) [][]K {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]K
	for len(keys) > size {
		out = append(out, keys[:size:size])
		keys = keys[size:]
	}
	if len(keys) > 0 {
		out = append(out, keys)
	}
	return out
}

// GroupByKey groups values by a key function, keeping their order within
// each group. Useful for one-to-many relations where many rows share the
// same foreign key.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys reorders grouped values to match the order of the
// requested keys. result[i] holds the values of keys[i], nil when none.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}
