package common

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the targeted entity or path does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPartialDataUnavailable marks an optional enrichment that could not be computed.
	ErrPartialDataUnavailable = errors.New("partial data unavailable")
	// ErrMalformedInput marks a record missing required fields.
	ErrMalformedInput = errors.New("malformed input")
	// ErrStoreUnavailable means the graph store could not be reached or a query failed.
	ErrStoreUnavailable = errors.New("graph store unavailable")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// StoreError wraps a backend failure so that errors.Is(err, ErrStoreUnavailable)
// holds while keeping the driver error in the chain.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// Partial carries the result of a best-effort enrichment. A failed enrichment
// keeps the primary response intact and renders as null.
type Partial[T any] struct {
	Value T
	Err   error
}

// Available returns a Partial holding v.
func Available[T any](v T) Partial[T] {
	return Partial[T]{Value: v}
}

// Unavailable returns a Partial recording why the enrichment is missing.
func Unavailable[T any](err error) Partial[T] {
	return Partial[T]{Err: fmt.Errorf("%w: %w", ErrPartialDataUnavailable, err)}
}

func (p Partial[T]) Ok() bool {
	return p.Err == nil
}

func (p Partial[T]) MarshalJSON() ([]byte, error) {
	if p.Err != nil {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}
