package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses.
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FetchReason classifies why a page could not be fetched.
type FetchReason string

const (
	ReasonInvalidURL FetchReason = "invalid_url"
	ReasonTimeout    FetchReason = "timeout"
	ReasonNetwork    FetchReason = "network"
	ReasonTLS        FetchReason = "tls"
	ReasonStatus     FetchReason = "status"
	ReasonBody       FetchReason = "body"
)

// FetchError is the failure variant of a fetch. Extraction code never lets it
// past the façade; it exists so logs and tests can tell failures apart.
type FetchError struct {
	Reason     FetchReason
	URL        string
	StatusCode int   // set when Reason is ReasonStatus
	Err        error // wrapped original error
}

func (e *FetchError) Error() string {
	switch {
	case e.Reason == ReasonStatus:
		return fmt.Sprintf("fetch %s: %s: HTTP %d", e.URL, e.Reason, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(reason FetchReason, url string, err error) *FetchError {
	return &FetchError{Reason: reason, URL: url, Err: err}
}

// FetchReasonOf returns the reason carried by err, or "" when err is not a
// FetchError.
func FetchReasonOf(err error) FetchReason {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return ""
}
