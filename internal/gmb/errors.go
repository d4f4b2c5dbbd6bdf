// Package gmb implements the client for the review platform's v4-style REST
// API: access-token sourcing, pagination-aware review fetching, and reply
// publication.
//
// This file centralizes the sentinel errors of the platform boundary so the
// orchestration service and HTTP handlers can classify failures with
// errors.Is. Mapping to HTTP status codes happens at the handler layer.
package gmb

import "errors"

var (
	// ErrAuth indicates the access token could not be obtained or refreshed.
	// Fatal to the run; nothing downstream can be attempted without a token.
	ErrAuth = errors.New("access token unavailable")

	// ErrLocationNotFound indicates the platform returned 404 for the
	// requested location. Fatal to the fetch; never retried.
	ErrLocationNotFound = errors.New("location not found")

	// ErrFetch covers any other network or HTTP failure while listing
	// reviews. Fatal to the fetch; never retried within a run.
	ErrFetch = errors.New("review fetch failed")

	// ErrParse indicates the platform returned a payload we refuse to
	// interpret, e.g. a review timestamp that does not match the fixed
	// UTC layout. Strict by design: one bad record fails the whole fetch.
	ErrParse = errors.New("malformed platform response")

	// ErrInvalidWindow is returned when the lookback window is not a
	// positive number of days.
	ErrInvalidWindow = errors.New("days must be a positive integer")

	// ErrPublish covers a failed reply post. Scoped to a single review;
	// the orchestrator absorbs it and continues with the remaining reviews.
	ErrPublish = errors.New("reply publish failed")
)
