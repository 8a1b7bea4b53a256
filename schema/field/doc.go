// Package field provides fluent builders for defining entity fields.
//
// Field names are the column names used in input payloads, filters, sorts
// and result records:
//
//	field.Int("id")               // auto-keyed when used as the key
//	field.String("username")
//	field.Int("hands").Optional()
//	field.Bool("is_human").Default(true)
//	field.UUID("id").              // generated on create when omitted
//	field.Time("created_at").DefaultFunc(func() any { return time.Now() })
//
// # Write Mutators
//
// A field may carry a Setter that turns the input value into column
// assignments. A field that only exists as a mutator is Virtual: it is
// fillable but never selected or filtered on:
//
//	field.String("password_hash"),
//	field.Password("password", "password_hash"),
package field
