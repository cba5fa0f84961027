package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-discount-backend/internal/domain"
	"github.com/tbourn/go-discount-backend/internal/repo"
	"github.com/tbourn/go-discount-backend/internal/services"
)

// ---------- test DB ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:discount_handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// ---------- stubs satisfying handlers.New() dependencies ----------

type stubDiscountSvc struct {
	resolve func(ctx context.Context, accessKey string) (*domain.Discount, error)
}

func (s stubDiscountSvc) Resolve(ctx context.Context, accessKey string) (*domain.Discount, error) {
	if s.resolve != nil {
		return s.resolve(ctx, accessKey)
	}
	return nil, services.ErrDiscountNotFound
}

type stubRedemptionSvc struct {
	admit func(ctx context.Context, in services.AdmissionInput) (*services.AdmissionResult, error)
}

func (s stubRedemptionSvc) Admit(ctx context.Context, in services.AdmissionInput) (*services.AdmissionResult, error) {
	if s.admit != nil {
		return s.admit(ctx, in)
	}
	return &services.AdmissionResult{RedemptionID: "r1"}, nil
}

type stubDrainer struct {
	drain func(ctx context.Context, limit int) ([]string, error)
}

func (s stubDrainer) DrainBatch(ctx context.Context, limit int) ([]string, error) {
	if s.drain != nil {
		return s.drain(ctx, limit)
	}
	return nil, nil
}

func newTestHandlers(db *gorm.DB, d DiscountService, r RedemptionService, o OutboxDrainer) *Handlers {
	return New("discount-api-test", db, d, r, o)
}

// ---------- GetDiscount ----------

func TestGetDiscount_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := stubDiscountSvc{resolve: func(ctx context.Context, key string) (*domain.Discount, error) {
		if key != "WINTER10" {
			t.Fatalf("unexpected key %q", key)
		}
		return &domain.Discount{
			ID:                       "d1",
			AccessKey:                "WINTER10",
			BusinessID:               "biz-1",
			PerDeviceCooldownMinutes: 60,
			PerEmailOnce:             true,
			Active:                   true,
			CreatedAt:                created,
		}, nil
	}}
	h := newTestHandlers(nil, svc, stubRedemptionSvc{}, stubDrainer{})
	r := gin.New()
	r.GET("/discounts/:accessKey", h.GetDiscount)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/discounts/WINTER10", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get -> %d body=%s", w.Code, w.Body.String())
	}

	var out DiscountResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.ID != "d1" || out.AccessKey != "WINTER10" || !out.Rules.PerEmailOnce || out.Rules.PerDeviceCooldownMinutes != 60 {
		t.Fatalf("unexpected body: %+v", out)
	}
}

func TestGetDiscount_NotFoundAndInternal(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Unknown key -> 404 with the error envelope
	{
		h := newTestHandlers(nil, stubDiscountSvc{}, stubRedemptionSvc{}, stubDrainer{})
		r := gin.New()
		r.GET("/discounts/:accessKey", h.GetDiscount)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/discounts/NOPE", nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("not found -> %d", w.Code)
		}
		var er ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
			t.Fatalf("json: %v", err)
		}
		if er.Code != ErrCodeNotFound {
			t.Fatalf("unexpected code %q", er.Code)
		}
	}

	// Store failure -> 500
	{
		svc := stubDiscountSvc{resolve: func(context.Context, string) (*domain.Discount, error) {
			return nil, errors.New("db down")
		}}
		h := newTestHandlers(nil, svc, stubRedemptionSvc{}, stubDrainer{})
		r := gin.New()
		r.GET("/discounts/:accessKey", h.GetDiscount)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/discounts/WINTER10", nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("internal -> %d", w.Code)
		}
	}
}

// GetDiscount against the real service + repo, end to end through the store.
func TestGetDiscount_EndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)

	d := domain.Discount{ID: uuid.NewString(), AccessKey: "SPRING5", BusinessID: "biz-9", Active: true}
	if err := db.Create(&d).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := services.NewDiscountService(db, realDiscountRepo{})
	h := newTestHandlers(db, svc, stubRedemptionSvc{}, stubDrainer{})
	r := gin.New()
	r.GET("/discounts/:accessKey", h.GetDiscount)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/discounts/SPRING5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get -> %d body=%s", w.Code, w.Body.String())
	}
}

// Minimal shim implementing services.DiscountRepo using the repo package
// (mirrors the wiring in router.go).
type realDiscountRepo struct{}

func (realDiscountRepo) GetActiveDiscountByAccessKey(ctx context.Context, db *gorm.DB, accessKey string) (*domain.Discount, error) {
	return repo.GetActiveDiscountByAccessKey(ctx, db, accessKey)
}
