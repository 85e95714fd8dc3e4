package repositories

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a StoreError.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindConflict
	KindUnavailable
	KindCorrupt
)

// StoreError is the RepositoryError produced by the backends that do not have their own
// error translation (file, redis, sql, object storage).
type StoreError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

var _ RepositoryError = (*StoreError)(nil)

// NewStoreError wraps err for op with the given classification.
func NewStoreError(op string, kind ErrorKind, err error) *StoreError {
	return &StoreError{Op: op, Kind: kind, Err: err}
}

// NotFound is shorthand for a KindNotFound StoreError.
func NotFound(op string, format string, args ...any) *StoreError {
	return &StoreError{Op: op, Kind: KindNotFound, Err: fmt.Errorf(format, args...)}
}

func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) IsNotFound() bool { return e != nil && e.Kind == KindNotFound }

func (e *StoreError) IsConflict() bool { return e != nil && e.Kind == KindConflict }

// IsUnavailable treats corrupt payloads as unavailable: callers cannot use the data either way.
func (e *StoreError) IsUnavailable() bool {
	return e != nil && (e.Kind == KindUnavailable || e.Kind == KindCorrupt)
}

// IsCorrupt reports whether err is a StoreError for a payload that could not be decoded.
func IsCorrupt(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Kind == KindCorrupt
}

// IsNotFound reports whether err carries a not-found classification.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
