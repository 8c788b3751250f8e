// Package apierr defines the error taxonomy shared by the backend transport,
// the domain request schemas and the resource store.
package apierr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-faster/errors"
)

var (
	// ErrUnauthorized is returned when the backend rejects the session (HTTP 401).
	// The store treats it as "session invalid" and drops the stored token.
	ErrUnauthorized = errors.New("session is no longer valid")
	// ErrForbidden is returned when the authenticated user lacks the role for an operation.
	ErrForbidden = errors.New("permission denied")
	// ErrNotFound is returned for id-scoped operations on a missing entity.
	ErrNotFound = errors.New("not found")
)

// ValidationError describes a rejected payload, either by local schema
// validation or by the backend (HTTP 400).
type ValidationError struct {
	// Fields maps a payload field to its messages. The key "non_field_errors"
	// holds messages that are not bound to a single field.
	Fields map[string][]string
	// Summary is used when the rejection carries no per-field detail.
	Summary string
}

// NewValidationError returns an empty ValidationError ready for Add calls.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a message for field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty reports whether no message was recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0 && e.Summary == ""
}

// OrNil returns e when it carries messages and nil otherwise, so schema
// validators can end with `return verr.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Summary == "" {
			return "validation failed"
		}
		return e.Summary
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
	}
	return strings.Join(parts, "; ")
}

// TransportError wraps network failures and unexpected backend responses.
// Status is zero when no HTTP response was received.
type TransportError struct {
	Status int
	Op     string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: backend returned status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Message renders err as the short string shown to a user next to a form or
// list. Transport failures collapse into a generic message.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrUnauthorized):
		return "Your session has expired. Please log in again."
	case errors.Is(err, ErrForbidden):
		return "You do not have permission to perform this action."
	case errors.Is(err, ErrNotFound):
		return "The requested item was not found."
	}

	var terr *TransportError
	if errors.As(err, &terr) {
		return "Something went wrong while contacting the server. Please try again."
	}
	return err.Error()
}
