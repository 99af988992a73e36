package types

import (
	"errors"
	"fmt"
)

// Error kinds. Structured errors below match their kind with errors.Is.
var (
	ErrValidation         = errors.New("invalid book")
	ErrNotFound           = errors.New("book not found")
	ErrCorruptStore       = errors.New("corrupt store")
	ErrUnsupportedBackend = errors.New("unsupported backend")
	ErrMigration          = errors.New("migration failed")
)

// Lifecycle and catalog errors.
var (
	ErrStoreClosed         = errors.New("store is not open")
	ErrAlreadyOpen         = errors.New("store is already open")
	ErrDestinationNotEmpty = errors.New("destination store is not empty")
	ErrDuplicate           = errors.New("duplicate book")
	ErrQuoteIndex          = errors.New("quote index out of range")
)

// ValidationError reports a required field that is missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports an operation on an id the store does not hold.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: id %d", ErrNotFound, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CorruptStoreError reports on-disk content that cannot be read as a catalog.
type CorruptStoreError struct {
	Path string
	Err  error
}

func (e *CorruptStoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrCorruptStore, e.Path)
	}
	return fmt.Sprintf("%s: %s: %v", ErrCorruptStore, e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCorruptStore}
	}
	return []error{ErrCorruptStore, e.Err}
}

// UnsupportedBackendError reports a database path whose extension maps to
// no backend.
type UnsupportedBackendError struct {
	Path string
	Ext  string
}

func (e *UnsupportedBackendError) Error() string {
	ext := e.Ext
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("%s: %s has extension %s (want .json, .db, .sqlite or .sqlite3)", ErrUnsupportedBackend, e.Path, ext)
}

func (e *UnsupportedBackendError) Unwrap() error { return ErrUnsupportedBackend }

// MigrationError reports a migration that stopped part way. Migrated records
// were committed to the destination before the failure.
type MigrationError struct {
	Migrated int
	Total    int
	Failed   int64 // source id of the record that failed
	Err      error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("%s after %d of %d records (source id %d): %v", ErrMigration, e.Migrated, e.Total, e.Failed, e.Err)
}

func (e *MigrationError) Unwrap() []error {
	return []error{ErrMigration, e.Err}
}

// DuplicateError reports that a book matching the candidate already exists.
type DuplicateError struct {
	Existing Book
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: %q by %s already stored as id %d", ErrDuplicate, e.Existing.Title, e.Existing.Author, e.Existing.ID)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }
