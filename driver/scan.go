package driver

import (
	entsql "entgo.io/ent/dialect/sql"
)

// ScanMaps reads all rows into column-keyed maps and closes rows.
// Values are returned as the driver produced them.
func ScanMaps(rows *entsql.Rows) ([]map[string]any, error) {
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(columns))
		for i, c := range columns {
			m[c] = values[i]
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ScanValues reads the first column of every row and closes rows.
func ScanValues(rows *entsql.Rows) ([]any, error) {
	defer rows.Close()
	var out []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
