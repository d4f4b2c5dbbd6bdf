// Package handlers defines the HTTP-layer error codes used across all API
// endpoints.
//
// Codes are lowercase snake_case. Generic codes mirror common HTTP status
// semantics; domain-specific codes classify pipeline failures that a 500
// alone cannot convey (which stage of the run broke). Clients branch on the
// code, humans read the message.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeAuthFailed       = "auth_failed"
	ErrCodeLocationNotFound = "location_not_found"
	ErrCodeFetchFailed      = "fetch_failed"
	ErrCodeUpstreamInvalid  = "upstream_invalid"
)
