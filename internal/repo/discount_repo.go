// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Discount
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a discount is not found (or is inactive), functions return
//     gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-discount-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetActiveDiscountByAccessKey fetches the active discount matching accessKey.
// Inactive discounts are treated as missing: the query filters on active so a
// deactivated discount yields ErrNotFound, not a visible row.
func GetActiveDiscountByAccessKey(ctx context.Context, db *gorm.DB, accessKey string) (*domain.Discount, error) {
	var d domain.Discount
	err := db.WithContext(ctx).
		Where("access_key = ? AND active = ?", accessKey, true).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDiscount inserts a new discount definition. The discount lifecycle is
// owned by an external catalog process; this helper exists for seeding and
// tests, and is not exposed over HTTP.
func CreateDiscount(ctx context.Context, db *gorm.DB, d *domain.Discount) (*domain.Discount, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}
