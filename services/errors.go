package services

import (
	"errors"
	"fmt"

	"github.com/cppla/blogthread/store"
)

// Error kinds. Every error returned by the services wraps exactly one of these.
var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrValidationFailed     = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrRelationshipMismatch = errors.New("relationship mismatch")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrDeletedConcurrently  = errors.New("deleted concurrently")
)

// Error carries a kind, a caller-facing message and the underlying cause, if any.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Message returns the caller-facing message of err, falling back to err.Error().
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func postNotFound(postID string) *Error {
	return newError(ErrNotFound, "Specified post not found at: %s.", postID)
}

func commentNotFound(commentID string) *Error {
	return newError(ErrNotFound, "Specified comment not found at: %s.", commentID)
}

func relationshipMismatch(commentID, postID string) *Error {
	return newError(ErrRelationshipMismatch,
		"Comment exists at: %s, but it is not in reply to the specified post at: %s.", commentID, postID)
}

func unauthorized() *Error {
	return newError(ErrUnauthorized, "Unauthorised user.")
}

// storeFailure maps a store error that is not a plain miss to StoreUnavailable.
func storeFailure(op string, err error) *Error {
	return &Error{Kind: ErrStoreUnavailable, Message: "Unable to " + op, Err: err}
}

// lookupErr maps a store read error onto the service taxonomy.
func lookupErr(err error, notFound func() *Error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound()
	}
	return storeFailure(op, err)
}
