// Package services holds the review-reply orchestration logic. This file
// centralizes the service-level error values so callers can classify
// predictable failures with errors.Is; translation into HTTP status codes
// happens at the handler layer.
package services

import "errors"

var (
	// ErrMissingLocation is returned when the account or location
	// identifier is absent.
	ErrMissingLocation = errors.New("account and location are required")
)
