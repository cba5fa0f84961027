package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-discount-backend/internal/domain"
)

// newUnmigratedDB opens a fresh in-memory database without tables.
func newUnmigratedDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:repo_test_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestGetActiveDiscountByAccessKey_NotFound(t *testing.T) {
	db := newRepoDB(t)

	_, err := GetActiveDiscountByAccessKey(context.Background(), db, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetActiveDiscountByAccessKey_IgnoresInactive(t *testing.T) {
	db := newRepoDB(t)

	if _, err := CreateDiscount(context.Background(), db, &domain.Discount{
		AccessKey:  "SUMMER",
		BusinessID: "biz-1",
		Active:     false,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := GetActiveDiscountByAccessKey(context.Background(), db, "SUMMER")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("inactive discount must be invisible, got %v", err)
	}
}

func TestGetActiveDiscountByAccessKey_Success(t *testing.T) {
	db := newRepoDB(t)

	seeded, err := CreateDiscount(context.Background(), db, &domain.Discount{
		AccessKey:                "WINTER10",
		BusinessID:               "biz-1",
		PerDeviceCooldownMinutes: 60,
		PerEmailOnce:             true,
		Active:                   true,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if seeded.ID == "" {
		t.Fatalf("CreateDiscount must assign an ID")
	}

	got, err := GetActiveDiscountByAccessKey(context.Background(), db, "WINTER10")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != seeded.ID || got.BusinessID != "biz-1" || !got.PerEmailOnce || got.PerDeviceCooldownMinutes != 60 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestCreateDiscount_Error_NoTable(t *testing.T) {
	db := newUnmigratedDB(t)
	if _, err := CreateDiscount(context.Background(), db, &domain.Discount{AccessKey: "x", BusinessID: "b"}); err == nil {
		t.Fatalf("expected error creating without table")
	}
}
