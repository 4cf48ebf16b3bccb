// Package demis provides an HTTP client for the DEMIS reporting backend:
// file registration, the presigned multipart upload protocol, validation,
// and sequence notification submission.
package demis

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, demis.ErrUnauthorized) to check.
var (
	ErrBadRequest          = errors.New("demis: bad request")
	ErrUnauthorized        = errors.New("demis: unauthorized")
	ErrForbidden           = errors.New("demis: forbidden")
	ErrNotFound            = errors.New("demis: not found")
	ErrUnprocessableEntity = errors.New("demis: unprocessable entity")
	ErrServerError         = errors.New("demis: server error")
)

// ErrUnsupportedFormat is returned when a file name has no recognized
// sequence data suffix.
var ErrUnsupportedFormat = errors.New("demis: unsupported file format")

// APIError wraps a sentinel error with the HTTP status code and the error
// response body (JSON or raw text) for operator-facing reports.
type APIError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("demis: HTTP %d: %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("demis: HTTP %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnprocessableEntity:
		return ErrUnprocessableEntity
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
