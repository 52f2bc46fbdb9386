package library

import "errors"

// Error kinds. Every error returned by the ledger, catalog and accounts for a
// rule violation matches exactly one of these with errors.Is.
var (
	// ErrValidation marks a precondition failure. The concrete reason is one
	// of the sentinels below and is reachable through errors.Is as well.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an absent record, book, user or session.
	ErrNotFound = errors.New("not found")
)

// Validation reasons.
var (
	ErrBookNotFound       = errors.New("book not found")
	ErrNoCopiesAvailable  = errors.New("no copies available")
	ErrQuotaReached       = errors.New("quota reached")
	ErrAlreadyBorrowed    = errors.New("already borrowed")
	ErrAlreadyReturned    = errors.New("already returned")
	ErrInvalidDuration    = errors.New("borrow duration must be positive")
	ErrNotBorrowed        = errors.New("book is not borrowed by this user")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrInvalidCredentials = errors.New("wrong username or password")
	ErrEmptyUsername      = errors.New("username cannot be empty")
)

// ValidationError wraps a reason sentinel so callers can match either the
// kind (ErrValidation) or the specific reason.
type ValidationError struct {
	Reason error
}

func (e *ValidationError) Error() string { return e.Reason.Error() }

func (e *ValidationError) Unwrap() error { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(reason error) error {
	return &ValidationError{Reason: reason}
}
