// Package apperrors defines the error kinds shared by the store, the pipeline and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation         Kind = "VALIDATION"
	KindNotFound           Kind = "NOT_FOUND"
	KindTransientInference Kind = "TRANSIENT_INFERENCE"
	KindMalformedOutput    Kind = "MALFORMED_OUTPUT"
	KindStorage            Kind = "STORAGE"
)

// Error carries a Kind so callers can branch without inspecting messages.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the inference gateway should try again.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransientInference || e.Kind == KindMalformedOutput
}

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Storage(op string, err error) error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

func Transient(op string, err error) error {
	return &Error{Kind: KindTransientInference, Op: op, Err: err}
}

func Malformed(format string, args ...interface{}) error {
	return &Error{Kind: KindMalformedOutput, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first *Error in the chain, or "" if there is none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}

func IsRetryable(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Retryable()
	}
	return false
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindTransientInference, KindMalformedOutput:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
