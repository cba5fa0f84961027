// Package services defines the business logic for discount resolution and
// redemption admission. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the
// handler layer.
package services

import "errors"

var (
	// ErrInvalidRequest is returned when a required admission field
	// (access key or idempotency key) is missing or blank.
	ErrInvalidRequest = errors.New("access key and idempotency key are required")

	// ErrDiscountNotFound indicates that no active discount matches the
	// requested access key. Inactive discounts are indistinguishable from
	// missing ones.
	ErrDiscountNotFound = errors.New("discount not found")

	// ErrAlreadyRedeemed is returned when the discount enforces one
	// redemption per email and the email has already redeemed it.
	ErrAlreadyRedeemed = errors.New("discount already redeemed for this email")

	// ErrCooldownActive is returned when the same device redeemed the
	// discount within the configured cooldown window.
	ErrCooldownActive = errors.New("device cooldown active for this discount")
)
