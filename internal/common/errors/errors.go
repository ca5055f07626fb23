// Package errors provides the error taxonomy shared by the matching engine and its transports.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Kind groups error codes into the categories callers branch on.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindDependency     Kind = "dependency"
	KindInternal       Kind = "internal"
)

// ErrorCode is the stable, machine readable identifier surfaced to clients and workflow engines.
type ErrorCode string

const (
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeUnauthenticated   ErrorCode = "UNAUTHENTICATED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeResourceNotFound  ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeDependencyFailed  ErrorCode = "DEPENDENCY_FAILED"
	ErrCodeDependencyTimeout ErrorCode = "DEPENDENCY_TIMEOUT"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// StandardError is the structured error every layer returns for expected failures.
type StandardError struct {
	Code      ErrorCode    `json:"code"`
	Kind      Kind         `json:"kind"`
	Message   string       `json:"message"`
	Details   string       `json:"details,omitempty"`
	Fields    []FieldError `json:"fields,omitempty"`
	Retryable bool         `json:"retryable"`
	Timestamp time.Time    `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// NewValidationError reports constraint-violating input. It is never retryable.
func NewValidationError(fields ...FieldError) *StandardError {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
	}
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Kind:      KindValidation,
		Message:   "Input validation failed",
		Details:   strings.Join(names, ", "),
		Fields:    fields,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthorizationError reports that the caller does not own the resource. The message is
// identical whether or not the resource exists.
func NewAuthorizationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeForbidden,
		Kind:      KindAuthorization,
		Message:   "Not permitted to access this resource",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthenticationError reports a missing, expired or revoked bearer token.
func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthenticated,
		Kind:      KindAuthentication,
		Message:   "Authentication required",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotFoundError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResourceNotFound,
		Kind:      KindNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewConflictError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConflict,
		Kind:      KindConflict,
		Message:   fmt.Sprintf("%s conflicts with existing state", resource),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDependencyError wraps a failure of the persistence or directory collaborator.
func NewDependencyError(service string, err error) *StandardError {
	code := ErrCodeDependencyFailed
	if stderrors.Is(err, context.DeadlineExceeded) {
		code = ErrCodeDependencyTimeout
	}
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      code,
		Kind:      KindDependency,
		Message:   fmt.Sprintf("Dependency '%s' unavailable", service),
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// As extracts the StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsKind reports whether err carries a StandardError of the given kind.
func IsKind(err error, kind Kind) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Kind == kind
}

func IsValidation(err error) bool     { return IsKind(err, KindValidation) }
func IsAuthentication(err error) bool { return IsKind(err, KindAuthentication) }
func IsAuthorization(err error) bool  { return IsKind(err, KindAuthorization) }
func IsNotFound(err error) bool       { return IsKind(err, KindNotFound) }
func IsConflict(err error) bool       { return IsKind(err, KindConflict) }
func IsDependency(err error) bool     { return IsKind(err, KindDependency) }

// HTTPStatus maps an error to the response status used by the HTTP surface.
func HTTPStatus(err error) int {
	stdErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch stdErr.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to show to end users. Dependency and internal failures
// collapse to a generic retry hint.
func PublicMessage(err error) string {
	stdErr, ok := As(err)
	if !ok {
		return "Something went wrong, please try again"
	}
	switch stdErr.Kind {
	case KindDependency:
		return "Service temporarily unavailable, please try again"
	case KindInternal:
		return "Something went wrong, please try again"
	default:
		return stdErr.Message
	}
}

// GetRetryCount returns how many times a caller may retry an idempotent operation.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDependencyFailed:
		return 3
	case ErrCodeDependencyTimeout:
		return 2
	default:
		return 0
	}
}
