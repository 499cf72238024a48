package services

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// ValidationError is a missing or malformed input. Nothing has been written
// when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// CodedError carries the client-facing error code for a not-found or conflict
// outcome. Kind is ErrNotFound or ErrConflict.
type CodedError struct {
	Code    string
	Message string
	Kind    error
}

func (e *CodedError) Error() string { return e.Message }
func (e *CodedError) Unwrap() error { return e.Kind }

func notFound(code, msg string) error {
	return &CodedError{Code: code, Message: msg, Kind: ErrNotFound}
}

func conflict(code, msg string) error {
	return &CodedError{Code: code, Message: msg, Kind: ErrConflict}
}
