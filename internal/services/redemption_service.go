// Package services – RedemptionService
//
// This file implements the RedemptionService, the admission controller for
// discount redemptions. It orchestrates catalog lookup, the idempotency
// check, abuse-rule enforcement (per-email-once, per-device cooldown), the
// ledger write, and the outbox enqueue as one logical operation.
//
// Service-level errors (ErrInvalidRequest, ErrDiscountNotFound,
// ErrAlreadyRedeemed, ErrCooldownActive) are returned for predictable cases
// so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-discount-backend/internal/domain"
	"github.com/tbourn/go-discount-backend/internal/repo"
)

// AdmissionInput carries the fields of one redemption attempt. AccessKey and
// IdempotencyKey are required; Email and DeviceID are optional correlation
// identifiers supplied by the caller. ClientIP is taken from the transport.
type AdmissionInput struct {
	AccessKey      string
	IdempotencyKey string
	Email          string
	DeviceID       string
	ClientIP       string
}

// AdmissionResult reports the outcome of a successful admission. Replay is
// true when the idempotency key matched an existing redemption and no new
// rows were written.
type AdmissionResult struct {
	RedemptionID string
	Replay       bool
}

// RedemptionService implements the redemption admission flow. It is safe for
// concurrent use; the only shared mutable state is the database.
type RedemptionService struct {
	// DB is the GORM handle used for all ledger and outbox writes.
	DB *gorm.DB

	// Now returns the current time; overridable in tests. Defaults to
	// time.Now when nil.
	Now func() time.Time
}

// NewRedemptionService constructs a RedemptionService bound to db.
func NewRedemptionService(db *gorm.DB) *RedemptionService {
	return &RedemptionService{DB: db}
}

func (s *RedemptionService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Admit processes one redemption attempt. Steps, in order, short-circuiting:
//
//  1. Resolve the active discount; unknown or inactive keys fail with
//     ErrDiscountNotFound.
//  2. Idempotency check: an existing redemption under the same key is a
//     no-op replay, returned as success with the original redemption ID.
//  3. Per-email-once check (when the rule is on and an email was supplied).
//  4. Per-device cooldown check (when the rule is on and a device was
//     supplied): any redemption inside the window fails with ErrCooldownActive.
//  5. Insert the redemption row. A unique violation on the idempotency key
//     means a concurrent request with the same key won the insert between
//     steps 2 and 5; the row is re-read and returned as a replay.
//  6. Enqueue one pending DiscountClaimed outbox entry.
//
// The sequence is deliberately not wrapped in a transaction: steps 3–4 are
// check-then-act and remain best-effort under concurrent requests that use
// different idempotency keys for the same email or device. The unique index
// behind step 5 is the only strict guarantee.
func (s *RedemptionService) Admit(ctx context.Context, in AdmissionInput) (*AdmissionResult, error) {
	if strings.TrimSpace(in.AccessKey) == "" || strings.TrimSpace(in.IdempotencyKey) == "" {
		return nil, ErrInvalidRequest
	}

	// 1) Catalog lookup.
	discount, err := repo.GetActiveDiscountByAccessKey(ctx, s.DB, in.AccessKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDiscountNotFound
		}
		return nil, err
	}

	// 2) Idempotent replay.
	if existing, err := repo.GetRedemptionByIdempotencyKey(ctx, s.DB, in.IdempotencyKey); err == nil {
		return &AdmissionResult{RedemptionID: existing.ID, Replay: true}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 3) Email-once rule.
	if discount.PerEmailOnce && in.Email != "" {
		used, err := repo.HasRedemptionForEmail(ctx, s.DB, discount.ID, in.Email)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, ErrAlreadyRedeemed
		}
	}

	// 4) Device cooldown rule.
	now := s.now()
	if discount.PerDeviceCooldownMinutes > 0 && in.DeviceID != "" {
		since := now.Add(-time.Duration(discount.PerDeviceCooldownMinutes) * time.Minute)
		blocked, err := repo.HasRedemptionForDeviceSince(ctx, s.DB, discount.ID, in.DeviceID, since)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, ErrCooldownActive
		}
	}

	// 5) Ledger write.
	redemption := &domain.Redemption{
		ID:             uuid.NewString(),
		DiscountID:     discount.ID,
		AccessKey:      discount.AccessKey,
		BusinessID:     discount.BusinessID,
		IdempotencyKey: in.IdempotencyKey,
		Email:          in.Email,
		DeviceID:       in.DeviceID,
		IP:             in.ClientIP,
		CreatedAt:      now,
	}
	if err := repo.CreateRedemption(ctx, s.DB, redemption); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// A concurrent request with the same key completed between the
			// idempotency check and the insert. Re-read and treat as replay.
			winner, err := repo.GetRedemptionByIdempotencyKey(ctx, s.DB, in.IdempotencyKey)
			if err != nil {
				return nil, err
			}
			return &AdmissionResult{RedemptionID: winner.ID, Replay: true}, nil
		}
		return nil, err
	}

	// 6) Stage the domain event.
	payload, err := json.Marshal(domain.DiscountClaimedPayload{
		RedemptionID: redemption.ID,
		DiscountID:   discount.ID,
		BusinessID:   discount.BusinessID,
		Email:        in.Email,
		DeviceID:     in.DeviceID,
		ClaimedAt:    now,
	})
	if err != nil {
		return nil, err
	}
	if _, err := repo.EnqueueOutboxEntry(ctx, s.DB, domain.EventDiscountClaimed, string(payload)); err != nil {
		return nil, err
	}

	return &AdmissionResult{RedemptionID: redemption.ID}, nil
}
