// Package repository defines the catalog store and the error type it
// reports. Every database failure surfaces as a *StorageError so higher
// layers such as handlers can treat all store failures alike without
// inspecting driver-specific codes.
package repository

import (
	"errors"
	"fmt"
)

// ErrStorage matches any *StorageError via errors.Is.
var ErrStorage = errors.New("storage error")

// StorageError wraps a failure of a single store operation.
type StorageError struct {
	Op  string // Op names the store operation, e.g. "list products"
	Err error  // Err is the underlying driver error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("repository: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports true for ErrStorage so callers need not know the concrete type.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
