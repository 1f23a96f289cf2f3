package server

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores and caches when a key is absent.
var ErrNotFound = errors.New("not found")

// ValidationError indicates missing or malformed caller input. It is
// returned before any storage call is made.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// NotFoundError indicates the referenced workshop does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("workshop not found: %s", e.ID)
}

// StorageError indicates a record-store or object-store call failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// UnsupportedMediaError indicates an uploaded file is not an accepted
// image format.
type UnsupportedMediaError struct {
	ContentType string
}

func (e *UnsupportedMediaError) Error() string {
	return fmt.Sprintf("unsupported media type: %s", e.ContentType)
}
