// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Redemption
// ledger: the append-only log the admission path consults for idempotency
// and abuse enforcement.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-discount-backend/internal/domain"
)

// ErrDuplicate indicates that a redemption already exists for the given
// idempotency key. Callers treat this as a concurrent idempotent replay,
// not a failure (re-read by key and return the existing row).
var ErrDuplicate = errors.New("duplicate")

// GetRedemptionByIdempotencyKey returns the redemption recorded under key,
// or ErrNotFound.
func GetRedemptionByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*domain.Redemption, error) {
	var r domain.Redemption
	err := db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// HasRedemptionForEmail reports whether any redemption exists for the
// (discountID, email) pair. Used for per-email-once enforcement.
func HasRedemptionForEmail(ctx context.Context, db *gorm.DB, discountID, email string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Redemption{}).
		Where("discount_id = ? AND email = ?", discountID, email).
		Count(&n).Error
	return n > 0, err
}

// HasRedemptionForDeviceSince reports whether any redemption exists for the
// (discountID, deviceID) pair created strictly after since. Used for
// per-device cooldown enforcement.
func HasRedemptionForDeviceSince(ctx context.Context, db *gorm.DB, discountID, deviceID string, since time.Time) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Redemption{}).
		Where("discount_id = ? AND device_id = ? AND created_at > ?", discountID, deviceID, since).
		Count(&n).Error
	return n > 0, err
}

// CreateRedemption inserts a redemption row and returns ErrDuplicate on a
// unique violation of the idempotency key.
func CreateRedemption(ctx context.Context, db *gorm.DB, r *domain.Redemption) error {
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") ||
			strings.Contains(low, "duplicate key") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}
