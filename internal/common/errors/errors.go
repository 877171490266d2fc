// Package errors provides the standardized error taxonomy for the catalog
// search pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// User input malformed. Reported to the user, never retried.
	ErrCodeInvalidLink ErrorCode = "INVALID_LINK"

	// Transient upstream failure. Retried internally with backoff; on
	// exhaustion the fetch degrades to partial results.
	ErrCodeUpstreamFetchFailed ErrorCode = "UPSTREAM_FETCH_FAILED"

	// Upstream payload no longer matches the expected page structure.
	// Signals an API contract change and is fatal for the fetch.
	ErrCodeUpstreamSchemaChanged ErrorCode = "UPSTREAM_SCHEMA_CHANGED"

	// One raw record could not be normalized. Fully recovered locally and
	// surfaced only as a skip count.
	ErrCodeRecordSkipped ErrorCode = "RECORD_SKIPPED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// NewInvalidLinkError creates a non-retryable bad-input error.
func NewInvalidLinkError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidLink,
		Message:   "Link is not a recognized marketplace category",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamFetchError creates a retryable upstream transport error for
// one catalog page.
func NewUpstreamFetchError(page int, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamFetchFailed,
		Message:   "Upstream catalog page fetch failed",
		Details:   fmt.Sprintf("page: %d, error: %s", page, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewUpstreamSchemaError creates a non-retryable contract-change error.
func NewUpstreamSchemaError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamSchemaChanged,
		Message:   "Upstream payload does not match expected page structure",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordSkippedError creates a per-record normalization error.
func NewRecordSkippedError(reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordSkipped,
		Message:   "Record skipped during normalization",
		Details:   reason,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// CodeOf extracts the ErrorCode from err, or "" when err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsInvalidLink reports whether err is an INVALID_LINK error.
func IsInvalidLink(err error) bool {
	return CodeOf(err) == ErrCodeInvalidLink
}

// IsUpstreamFetch reports whether err is an UPSTREAM_FETCH_FAILED error.
func IsUpstreamFetch(err error) bool {
	return CodeOf(err) == ErrCodeUpstreamFetchFailed
}

// IsUpstreamSchema reports whether err is an UPSTREAM_SCHEMA_CHANGED error.
func IsUpstreamSchema(err error) bool {
	return CodeOf(err) == ErrCodeUpstreamSchemaChanged
}

// IsRecordSkipped reports whether err is a RECORD_SKIPPED error.
func IsRecordSkipped(err error) bool {
	return CodeOf(err) == ErrCodeRecordSkipped
}

// GetRetryCount returns the internal retry budget for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUpstreamFetchFailed:
		return 3
	default:
		return 0 // bad input, schema breaks and skips: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}
