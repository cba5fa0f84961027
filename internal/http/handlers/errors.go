// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package). These codes give
// clients a stable, machine-readable error taxonomy alongside human-readable
// messages.
//
// Conventions:
//   - Codes are lowercase, snake_case.
//   - Generic codes (bad_request, not_found, conflict) mirror common HTTP
//     status semantics.
//   - cooldown_active is domain-specific: it shares the 429 status with
//     rate_limited but tells the caller the device cooldown window is the
//     reason, not edge throttling.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeCooldownActive   = "cooldown_active"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
