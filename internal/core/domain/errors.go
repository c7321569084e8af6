package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates the process configuration is unusable.
	// It is fatal for the process and raised before any repository runs.
	ErrInvalidConfig = errors.New("invalid configuration")

	// Authentication Errors.

	// ErrAuthRequired indicates no usable credentials are configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the authentication credentials are invalid.
	ErrAuthInvalid = errors.New("authentication invalid")

	// Source Errors.

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrMalformedResponse indicates the source answered with a payload
	// that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")

	// Sink Errors.

	// ErrIndexUnavailable indicates the document index could not be reached.
	ErrIndexUnavailable = errors.New("document index unavailable")
)

// RepoError is a failure that aborted one repository's run. It carries
// enough identity to locate the failure from logs alone.
type RepoError struct {
	Owner string
	Repo  string

	// Page is the page being processed when the run aborted, 0 if the
	// failure happened before the first page.
	Page int

	Err error
}

func (e *RepoError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("%s/%s page %d: %v", e.Owner, e.Repo, e.Page, e.Err)
	}
	return fmt.Sprintf("%s/%s: %v", e.Owner, e.Repo, e.Err)
}

func (e *RepoError) Unwrap() error {
	return e.Err
}
