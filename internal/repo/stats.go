// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries over the outbox
// used by the dispatcher to report backlog depth and age.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-discount-backend/internal/domain"
)

// OutboxStats returns aggregate metadata for pending outbox entries: the total
// number of pending rows and the CreatedAt of the oldest one.
//
// When the backlog is empty, the returned count is 0 and oldest is nil.
//
// Return values:
//   - count:  total pending entries
//   - oldest: pointer to the smallest CreatedAt among pending rows, or nil
//   - err:    database error, if any
func OutboxStats(ctx context.Context, db *gorm.DB) (count int64, oldest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.OutboxEntry{}).Where("status = ?", domain.OutboxStatusPending)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get oldest created_at (avoid MIN() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at ASC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
