// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the outbox store: an append-only queue
// of domain events pending publication, with claim-next-pending semantics.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-discount-backend/internal/domain"
)

// maxPendingLimit is the hard cap on rows returned by ListPendingOutbox,
// regardless of the requested limit.
const maxPendingLimit = 100

// EnqueueOutboxEntry inserts a pending entry of the given type carrying the
// JSON payload. Entries are claimed later by the dispatcher.
func EnqueueOutboxEntry(ctx context.Context, db *gorm.DB, entryType, payload string) (*domain.OutboxEntry, error) {
	e := &domain.OutboxEntry{
		ID:        uuid.NewString(),
		Type:      entryType,
		Payload:   payload,
		Status:    domain.OutboxStatusPending,
		Attempts:  0,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// ClaimNextPending atomically claims the oldest pending entry: it flips the
// status to sent, increments attempts, and returns the updated entry. When no
// pending entry exists it returns (nil, nil).
//
// The claim is a conditional UPDATE guarded on status, so exactly one caller
// wins a given entry under concurrency. A caller that loses the race moves on
// to the next candidate instead of failing.
func ClaimNextPending(ctx context.Context, db *gorm.DB) (*domain.OutboxEntry, error) {
	for {
		var e domain.OutboxEntry
		err := db.WithContext(ctx).
			Where("status = ?", domain.OutboxStatusPending).
			Order("created_at asc, id asc").
			First(&e).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		res := db.WithContext(ctx).
			Model(&domain.OutboxEntry{}).
			Where("id = ? AND status = ?", e.ID, domain.OutboxStatusPending).
			Updates(map[string]any{
				"status":   domain.OutboxStatusSent,
				"attempts": gorm.Expr("attempts + 1"),
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race to a concurrent claimer; try the next candidate.
			continue
		}

		e.Status = domain.OutboxStatusSent
		e.Attempts++
		return &e, nil
	}
}

// ListPendingOutbox returns pending entries oldest-first for observability.
// The limit is clamped to [1, maxPendingLimit].
func ListPendingOutbox(ctx context.Context, db *gorm.DB, limit int) ([]domain.OutboxEntry, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > maxPendingLimit {
		limit = maxPendingLimit
	}
	var out []domain.OutboxEntry
	err := db.WithContext(ctx).
		Where("status = ?", domain.OutboxStatusPending).
		Order("created_at asc, id asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
