// Package errors defines the storefront's application error type and the
// mapping from error kinds to HTTP statuses and API error codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// API error codes.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeConflict          = "CONFLICT"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeUnsupportedMedia  = "UNSUPPORTED_MEDIA_TYPE"
	CodeRateLimited       = "RATE_LIMITED"
	CodeUnavailable       = "SERVICE_UNAVAILABLE"
	CodeInternal          = "INTERNAL_ERROR"
)

// Sentinel errors. Repositories and clients may return these bare or wrapped;
// Classify turns them into an AppError.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInternal         = errors.New("internal error")
	ErrConflict         = errors.New("conflict")
	ErrServiceUnavail   = errors.New("service unavailable")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrRateLimited      = errors.New("rate limited")
)

type kind struct {
	sentinel error
	status   int
	code     string
	message  string // shown when the sentinel reaches a client unwrapped
}

var kinds = []kind{
	{ErrNotFound, http.StatusNotFound, CodeNotFound, "resource not found"},
	{ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput, "invalid input"},
	{ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized, "authentication required"},
	{ErrConflict, http.StatusConflict, CodeConflict, "resource state conflict"},
	{ErrUnsupportedMedia, http.StatusUnsupportedMediaType, CodeUnsupportedMedia, "unsupported media type"},
	{ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited, "too many requests"},
	{ErrServiceUnavail, http.StatusServiceUnavailable, CodeUnavailable, "a dependency is temporarily unavailable"},
	{ErrInternal, http.StatusInternalServerError, CodeInternal, "an internal error occurred"},
}

func kindOf(err error) kind {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k
		}
	}
	return kinds[len(kinds)-1]
}

// AppError is an error with a client-facing code and message. Err, when set,
// is the cause and stays out of responses.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(sentinel error, message string) *AppError {
	k := kindOf(sentinel)
	return &AppError{Code: k.code, Message: message, Status: k.status, Err: sentinel}
}

// NotFound creates a 404 for the resource with the given id.
func NotFound(resource, id string) *AppError {
	return newError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

// InvalidInput creates a 400.
func InvalidInput(message string) *AppError {
	return newError(ErrInvalidInput, message)
}

// Unauthorized creates a 401.
func Unauthorized(message string) *AppError {
	return newError(ErrUnauthorized, message)
}

// Conflict creates a 409.
func Conflict(message string) *AppError {
	return newError(ErrConflict, message)
}

// InsufficientStock creates a 409 for an order line that exceeds the live
// stock of a product.
func InsufficientStock(productID string) *AppError {
	e := newError(ErrConflict, fmt.Sprintf("product %s does not have enough stock", productID))
	e.Code = CodeInsufficientStock
	return e
}

// UnsupportedMediaType creates a 415.
func UnsupportedMediaType(message string) *AppError {
	return newError(ErrUnsupportedMedia, message)
}

// RateLimited creates a 429.
func RateLimited() *AppError {
	return newError(ErrRateLimited, kindOf(ErrRateLimited).message)
}

// ServiceUnavailable creates a 503.
func ServiceUnavailable(message string) *AppError {
	return newError(ErrServiceUnavail, message)
}

// Internal creates a 500 hiding cause from clients.
func Internal(cause error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: kindOf(ErrInternal).message,
		Status:  http.StatusInternalServerError,
		Err:     cause,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// Classify returns err as an AppError. An AppError anywhere in the chain is
// returned as is. A bare or wrapped sentinel gets its kind's generic
// message, except invalid input whose text is meant for the client. Anything
// else becomes Internal.
func Classify(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	k := kindOf(err)
	if k.sentinel == ErrInternal {
		return Internal(err)
	}
	msg := k.message
	if k.sentinel == ErrInvalidInput {
		msg = err.Error()
	}
	return &AppError{Code: k.code, Message: msg, Status: k.status, Err: err}
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	return Classify(err).Status
}
