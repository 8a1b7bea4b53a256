package magicbox

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("magicbox: record not found")

	// ErrConfig is matched by every ConfigError.
	ErrConfig = errors.New("magicbox: invalid configuration")
)

// NotFoundError represents an error when a record is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("magicbox: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("magicbox: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ConfigError reports an entity that does not satisfy the schema contract.
// It is returned when a registry is built or a repository is bound.
type ConfigError struct {
	Entity string // Entity type, empty for registry-wide problems
	Msg    string
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	if e.Entity == "" {
		return "magicbox: config: " + e.Msg
	}
	return fmt.Sprintf("magicbox: config %s: %s", e.Entity, e.Msg)
}

// Is reports whether the target error is ErrConfig.
func (e *ConfigError) Is(err error) bool {
	return err == ErrConfig
}

// NewConfigError returns a new ConfigError with a formatted message.
func NewConfigError(entity, format string, args ...any) *ConfigError {
	return &ConfigError{Entity: entity, Msg: fmt.Sprintf(format, args...)}
}

// IsConfigError returns true if the error is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "magicbox: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("magicbox: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors, so errors.Is and errors.As
// inspect each of them.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}

// QueryError wraps a failure to build a query with additional context.
// Driver errors are never wrapped in it.
type QueryError struct {
	Entity string // Entity type being queried
	Op     string // Operation (e.g., "filter", "sort")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("magicbox: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("magicbox: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// Exclusion reports a piece of caller input that was dropped instead of
// applied: a disallowed key, an unresolvable path or a malformed token.
// Exclusions are never errors.
type Exclusion struct {
	Path   string
	Reason string
}

// String implements fmt.Stringer.
func (e Exclusion) String() string {
	return e.Path + ": " + e.Reason
}
