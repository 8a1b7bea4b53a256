package driver

import (
	"errors"
	"strings"
)

// Violation is the kind of constraint a database error reports.
type Violation int

// Constraint violations.
const (
	NoViolation Violation = iota
	UniqueViolation
	ForeignKeyViolation
	CheckViolation
)

// String implements fmt.Stringer.
func (v Violation) String() string {
	switch v {
	case UniqueViolation:
		return "unique"
	case ForeignKeyViolation:
		return "foreign key"
	case CheckViolation:
		return "check"
	default:
		return "none"
	}
}

// signature is how each database reports one violation: a SQLSTATE
// (Postgres through pq and pgx), MySQL error numbers, and message
// fragments for drivers without typed errors (SQLite).
type signature struct {
	violation Violation
	state     string
	numbers   []uint16
	texts     []string
}

var signatures = []signature{
	{
		violation: UniqueViolation,
		state:     "23505",
		numbers:   []uint16{1062},
		texts:     []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed"},
	},
	{
		violation: ForeignKeyViolation,
		state:     "23503",
		numbers:   []uint16{1451, 1452},
		texts:     []string{"Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"},
	},
	{
		violation: CheckViolation,
		state:     "23514",
		numbers:   []uint16{3819},
		texts:     []string{"Error 3819", "violates check constraint", "CHECK constraint failed"},
	},
}

// Implemented by pgconn.PgError.
type sqlStateError interface {
	SQLState() string
}

// Implemented by pq.Error (as a string-like code) and some SQLite drivers.
type errorCoder interface {
	Code() string
}

// Implemented by mysql.MySQLError.
type errorNumberer interface {
	Number() uint16
}

// Classify returns the constraint violation err reports, looking through
// wrapped errors.
func Classify(err error) Violation {
	if err == nil {
		return NoViolation
	}
	var (
		state, hasState   = find[sqlStateError](err)
		coder, hasCode    = find[errorCoder](err)
		number, hasNumber = find[errorNumberer](err)
		msg               = err.Error()
	)
	for _, s := range signatures {
		switch {
		case hasState && state.SQLState() == s.state,
			hasCode && coder.Code() == s.state,
			hasNumber && containsNumber(s.numbers, number.Number()):
			return s.violation
		}
	}
	for _, s := range signatures {
		for _, text := range s.texts {
			if strings.Contains(msg, text) {
				return s.violation
			}
		}
	}
	return NoViolation
}

// IsConstraintError reports whether err is a constraint violation.
func IsConstraintError(err error) bool {
	return Classify(err) != NoViolation
}

// IsUniqueConstraintError reports whether err is a uniqueness violation.
func IsUniqueConstraintError(err error) bool {
	return Classify(err) == UniqueViolation
}

// IsForeignKeyConstraintError reports whether err is a foreign-key violation.
func IsForeignKeyConstraintError(err error) bool {
	return Classify(err) == ForeignKeyViolation
}

// IsCheckConstraintError reports whether err is a check constraint violation.
func IsCheckConstraintError(err error) bool {
	return Classify(err) == CheckViolation
}

// find returns the first error in the chain implementing T.
func find[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsNumber(numbers []uint16, n uint16) bool {
	for _, m := range numbers {
		if m == n {
			return true
		}
	}
	return false
}
