package core

// errors.go defines the error taxonomy of the ingestion engine.
//
// Callers branch on the error type with errors.As; the HTTP layer turns the
// type into a status code with StatusCode and into user-facing text with
// MapError. Technical details stay in the wrapped error for logging.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports bad caller input: a missing name or file, a
// duplicate project, an identifier that fails the allow-list, or a row that
// does not fit its table. Code selects the catalogue entry in MapError.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(code, format string, args ...any) error {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a project or sheet id that does not exist.
type NotFoundError struct {
	Code    string
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func notFoundf(code, format string, args ...any) error {
	return &NotFoundError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ParseError reports a workbook that could not be decoded. Sheet is empty
// when the container itself is unreadable.
type ParseError struct {
	Sheet string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("invalid workbook: %v", e.Err)
	}
	return fmt.Sprintf("invalid workbook: sheet %q: %v", e.Sheet, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError reports a failed DDL or DML statement.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// StatusCode maps an error to the HTTP status class it should surface as.
func StatusCode(err error) int {
	var (
		ve *ValidationError
		nf *NotFoundError
		pe *ParseError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve), errors.As(err, &pe):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.Is(err, ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
