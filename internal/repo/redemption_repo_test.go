package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-discount-backend/internal/domain"
)

func newRedemption(discountID, key, email, deviceID string, createdAt time.Time) *domain.Redemption {
	return &domain.Redemption{
		ID:             uuid.NewString(),
		DiscountID:     discountID,
		AccessKey:      "KEY",
		BusinessID:     "biz-1",
		IdempotencyKey: key,
		Email:          email,
		DeviceID:       deviceID,
		IP:             "203.0.113.7",
		CreatedAt:      createdAt,
	}
}

func TestCreateRedemption_AndGetByIdempotencyKey(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	r := newRedemption("d1", "idem-1", "a@x.com", "D1", time.Now().UTC())
	if err := CreateRedemption(ctx, db, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := GetRedemptionByIdempotencyKey(ctx, db, "idem-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != r.ID || got.Email != "a@x.com" || got.DeviceID != "D1" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestGetRedemptionByIdempotencyKey_NotFound(t *testing.T) {
	db := newRepoDB(t)

	_, err := GetRedemptionByIdempotencyKey(context.Background(), db, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateRedemption_DuplicateKey(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	if err := CreateRedemption(ctx, db, newRedemption("d1", "dup", "", "", time.Now().UTC())); err != nil {
		t.Fatalf("first create: %v", err)
	}

	err := CreateRedemption(ctx, db, newRedemption("d1", "dup", "", "", time.Now().UTC()))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestHasRedemptionForEmail(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	if err := CreateRedemption(ctx, db, newRedemption("d1", "k1", "a@x.com", "", time.Now().UTC())); err != nil {
		t.Fatalf("seed: %v", err)
	}

	used, err := HasRedemptionForEmail(ctx, db, "d1", "a@x.com")
	if err != nil || !used {
		t.Fatalf("expected used=true, got used=%v err=%v", used, err)
	}

	// Different email and different discount must both be clear.
	if used, _ := HasRedemptionForEmail(ctx, db, "d1", "b@x.com"); used {
		t.Fatalf("unexpected match for different email")
	}
	if used, _ := HasRedemptionForEmail(ctx, db, "d2", "a@x.com"); used {
		t.Fatalf("unexpected match for different discount")
	}
}

func TestHasRedemptionForDeviceSince_WindowBoundaries(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := CreateRedemption(ctx, db, newRedemption("d1", "k1", "", "D1", at)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Inside the window (redemption is newer than since).
	blocked, err := HasRedemptionForDeviceSince(ctx, db, "d1", "D1", at.Add(-30*time.Minute))
	if err != nil || !blocked {
		t.Fatalf("expected blocked=true, got blocked=%v err=%v", blocked, err)
	}

	// Outside the window (redemption is older than since).
	blocked, err = HasRedemptionForDeviceSince(ctx, db, "d1", "D1", at.Add(time.Minute))
	if err != nil || blocked {
		t.Fatalf("expected blocked=false, got blocked=%v err=%v", blocked, err)
	}

	// Different device is never blocked.
	if blocked, _ := HasRedemptionForDeviceSince(ctx, db, "d1", "D2", at.Add(-time.Hour)); blocked {
		t.Fatalf("unexpected match for different device")
	}
}
