package bizobj

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("bizobj: validation failed")

	// ErrNotFound is returned when a fetch matches no row.
	ErrNotFound = errors.New("bizobj: record not found")

	// ErrConflict is returned when a write violates a unique key.
	ErrConflict = errors.New("bizobj: value already in use, choose another value")

	// ErrInternal is returned for any other persistence failure. The cause is
	// logged, never returned.
	ErrInternal = errors.New("bizobj: internal error")

	// ErrAlreadyPersisted is returned by Insert on an entity that already has an id.
	ErrAlreadyPersisted = errors.New("bizobj: entity already inserted")
)

// ValidationError reports a value rejected by a property's type or rules.
// It is safe to show to the client that supplied the value.
type ValidationError struct {
	Property string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %q: %s", e.Property, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// LoadError aggregates every failure of a database-load hydration.
type LoadError struct {
	Table string
	Errs  []error
}

func (e *LoadError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("load %s: %d propert%s failed: %s",
		e.Table, len(e.Errs), plural(len(e.Errs), "y", "ies"), strings.Join(msgs, "; "))
}

func (e *LoadError) Unwrap() []error {
	return e.Errs
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func invalid(p *Property, format string, args ...any) *ValidationError {
	return &ValidationError{Property: p.Name, Reason: fmt.Sprintf(format, args...)}
}
