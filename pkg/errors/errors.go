// Package errors holds the sentinel errors shared across pubsearch and maps
// them onto HTTP responses. Wrap a sentinel with %w, or attach a status and
// a client-safe message with New/Newf.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrPublicationNotFound = errors.New("publication not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrCorruptData         = errors.New("corrupt data")
	ErrUpstream            = errors.New("upstream request failed")
	ErrUnavailable         = errors.New("service unavailable")
)

// codes are the stable identifiers returned in API error bodies.
var codes = []struct {
	sentinel error
	code     string
	status   int
}{
	{ErrPublicationNotFound, "publication_not_found", http.StatusNotFound},
	{ErrInvalidInput, "invalid_input", http.StatusBadRequest},
	{ErrUnavailable, "unavailable", http.StatusServiceUnavailable},
	{ErrUpstream, "upstream", http.StatusBadGateway},
	{context.DeadlineExceeded, "timeout", http.StatusGatewayTimeout},
	{ErrCorruptData, "corrupt_data", http.StatusInternalServerError},
}

// AppError carries a status code and a message that is safe to show to
// API clients. Err stays available to errors.Is.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// Invalid is shorthand for a 400 on a malformed request parameter.
func Invalid(format string, args ...any) *AppError {
	return Newf(ErrInvalidInput, http.StatusBadRequest, format, args...)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	for _, c := range codes {
		if errors.Is(err, c.sentinel) {
			return c.status
		}
	}
	return http.StatusInternalServerError
}

// Code returns the API error code for err, "internal" when none applies.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.sentinel) {
			return c.code
		}
	}
	return "internal"
}

// Body is the JSON error document the API writes.
type Body struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Response turns err into a status and body. Messages of 5xx errors are
// replaced by fallback so that file paths and driver errors stay in the
// logs.
func Response(err error, fallback string) (int, Body) {
	status := HTTPStatusCode(err)
	body := Body{Error: fallback, Code: Code(err)}
	var appErr *AppError
	if status < http.StatusInternalServerError && errors.As(err, &appErr) && appErr.Message != "" {
		body.Error = appErr.Message
	}
	return status, body
}
