package domain

import "errors"

var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for empty or malformed user input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorage is returned when the conversation store fails.
	ErrStorage = errors.New("storage error")
)

// StorageError wraps a store failure so that both ErrStorage and the
// underlying driver error match with errors.Is.
func StorageError(op string, err error) error {
	return &storageError{op: op, err: err}
}

type storageError struct {
	op  string
	err error
}

func (e *storageError) Error() string {
	return e.op + ": " + e.err.Error()
}

func (e *storageError) Unwrap() []error {
	return []error{ErrStorage, e.err}
}
