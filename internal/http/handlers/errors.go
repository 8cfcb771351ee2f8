// Package handlers defines HTTP-layer error codes used across all API
// endpoints. These constants give clients a stable, machine-readable error
// taxonomy alongside the human-readable messages.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes mirror common HTTP status semantics.
//   - Domain-specific codes cover pipeline outcomes a status alone cannot
//     convey (disconnected account, missing automation config, held lease).
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeDisconnected     = "disconnected"
	ErrCodeConfigMissing    = "config_missing"
	ErrCodeRunInProgress    = "run_in_progress"
	ErrCodeRunFailed        = "run_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
