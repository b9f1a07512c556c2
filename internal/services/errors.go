package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind classifies a service failure so the HTTP layer can pick a status.
type Kind int

const (
	KindStorage Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	}
	return "storage"
}

// Error is a service failure tagged with the Kind handlers map to a status.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflictError(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func forbiddenError(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// storageError wraps a database failure. Typed service errors pass through
// untouched so that errors returned from inside a transaction keep their kind.
func storageError(message string, err error) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

// IsKind reports whether err is a service error of the given kind. Errors
// that are not service errors count as KindStorage.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// KindOf reports the Kind of err; untyped errors count as storage failures.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindStorage
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
