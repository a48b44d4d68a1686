package library

import (
	"errors"
	"fmt"
)

// Error is the single error type returned by catalog and loan operations.
//
// Kinds:
//   - VALIDATION: caller data violates a field constraint, nothing was written
//   - NOT_FOUND: the referenced book does not exist
//   - ALREADY_BORROWED: borrow requested for a book with an active loan
//   - NO_ACTIVE_LOAN: return requested for a book with no active loan
//   - STORAGE: the database failed; Err holds the driver error
//   - SCHEMA: the relations could not be established at startup (fatal)
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Message is a human-readable description.
	Message string

	// BookID identifies the affected book, when there is one.
	BookID BookID

	// Field names the offending input field for validation errors.
	Field string

	// Err is the underlying cause for storage and schema errors.
	Err error
}

// ErrorKind categorizes catalog errors.
type ErrorKind string

const (
	KindValidation      ErrorKind = "VALIDATION"
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindAlreadyBorrowed ErrorKind = "ALREADY_BORROWED"
	KindNoActiveLoan    ErrorKind = "NO_ACTIVE_LOAN"
	KindStorage         ErrorKind = "STORAGE"
	KindSchema          ErrorKind = "SCHEMA"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field=%s)", msg, e.Field)
	}
	if e.BookID != 0 {
		msg = fmt.Sprintf("%s (book=%d)", msg, e.BookID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a catalog error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound returns true if err reports a missing book.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsAlreadyBorrowed returns true if err reports a book that is already on loan.
func IsAlreadyBorrowed(err error) bool { return KindOf(err) == KindAlreadyBorrowed }

// IsNoActiveLoan returns true if err reports a return without an active loan.
func IsNoActiveLoan(err error) bool { return KindOf(err) == KindNoActiveLoan }

// IsStorage returns true if err is a storage failure.
func IsStorage(err error) bool { return KindOf(err) == KindStorage }

// IsSchema returns true if err is a schema setup failure.
func IsSchema(err error) bool { return KindOf(err) == KindSchema }

// NewValidationError creates an Error for an invalid input field.
func NewValidationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// NewNotFoundError creates an Error for a book that does not exist.
func NewNotFoundError(id BookID) *Error {
	return &Error{Kind: KindNotFound, Message: "book not found", BookID: id}
}

// NewAlreadyBorrowedError creates an Error for a book that already has an active loan.
func NewAlreadyBorrowedError(id BookID, borrower string) *Error {
	msg := "book is already borrowed"
	if borrower != "" {
		msg = fmt.Sprintf("book is already borrowed by %s", borrower)
	}
	return &Error{Kind: KindAlreadyBorrowed, Message: msg, BookID: id}
}

// NewNoActiveLoanError creates an Error for a return with nothing to close.
func NewNoActiveLoanError(id BookID) *Error {
	return &Error{Kind: KindNoActiveLoan, Message: "book has no active loan", BookID: id}
}

// NewStorageError wraps a persistence failure. The op names the failing step,
// e.g. "borrow: insert loan".
func NewStorageError(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: op, Err: err}
}

// NewSchemaError wraps a failure to establish the relations.
func NewSchemaError(op string, err error) *Error {
	return &Error{Kind: KindSchema, Message: op, Err: err}
}

// AsStorage returns err unchanged if it is already a catalog error, and wraps
// it as a storage error otherwise.
func AsStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	return NewStorageError(op, err)
}
