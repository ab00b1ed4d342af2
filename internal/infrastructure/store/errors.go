package store

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds of a backing store call. Match them with errors.Is.
var (
	ErrNotFound     = errors.New("record not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrServer       = errors.New("backing store error")
	ErrNetwork      = errors.New("backing store unreachable")
)

// Error describes a failed backing store call in a single human-readable message.
type Error struct {
	Kind   error
	Method string
	Path   string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("store: %s %s failed with status %d", e.Method, e.Path, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("store: %s %s failed: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("store: %s %s failed: %v", e.Method, e.Path, e.Kind)
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Retryable reports whether the call may succeed when repeated.
func (e *Error) Retryable() bool {
	return e.Kind == ErrNetwork || (e.Kind == ErrServer && e.Status >= http.StatusInternalServerError)
}

func statusError(method, path string, status int) *Error {
	kind := ErrServer
	switch status {
	case http.StatusNotFound:
		kind = ErrNotFound
	case http.StatusUnauthorized:
		kind = ErrUnauthorized
	}
	return &Error{Kind: kind, Method: method, Path: path, Status: status}
}

func networkError(method, path string, err error) *Error {
	return &Error{Kind: ErrNetwork, Method: method, Path: path, Err: err}
}

// outcome is the metrics label of err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNetwork):
		return "network_error"
	default:
		return "server_error"
	}
}
