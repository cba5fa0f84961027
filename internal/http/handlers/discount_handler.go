// Discount HTTP handlers.
//
// This file exposes the read-only catalog endpoint:
//   - GET /discounts/{accessKey}  (resolve an active discount)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-discount-backend/internal/domain"
	"github.com/tbourn/go-discount-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// DiscountService defines the catalog lookup consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type DiscountService interface {
	// Resolve returns the active discount for accessKey or
	// services.ErrDiscountNotFound.
	Resolve(ctx context.Context, accessKey string) (*domain.Discount, error)
}

// RedemptionService defines the admission operation consumed by HTTP handlers.
type RedemptionService interface {
	// Admit runs the full admission flow for one redemption attempt.
	Admit(ctx context.Context, in services.AdmissionInput) (*services.AdmissionResult, error)
}

// OutboxDrainer defines the manual catch-up operation over the outbox.
type OutboxDrainer interface {
	// DrainBatch claims and publishes up to limit pending entries and
	// returns the processed entry IDs.
	DrainBatch(ctx context.Context, limit int) ([]string, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for discounts, redemptions, the outbox,
// and health. It depends on abstract service interfaces to keep transport
// concerns separate from business logic; the DB handle is used only for
// readiness checks and the read-only pending listing.
type Handlers struct {
	serviceName string
	db          *gorm.DB
	discounts   DiscountService
	redemptions RedemptionService
	drainer     OutboxDrainer
}

// New constructs a Handlers instance bound to the given dependencies.
func New(serviceName string, db *gorm.DB, d DiscountService, r RedemptionService, o OutboxDrainer) *Handlers {
	return &Handlers{serviceName: serviceName, db: db, discounts: d, redemptions: r, drainer: o}
}

// DiscountRules is the rules sub-document of DiscountResponse.
type DiscountRules struct {
	PerDeviceCooldownMinutes int  `json:"perDeviceCooldownMinutes"`
	PerEmailOnce             bool `json:"perEmailOnce"`
}

// DiscountResponse is the public representation of a discount definition.
type DiscountResponse struct {
	ID         string        `json:"id"`
	AccessKey  string        `json:"accessKey"`
	BusinessID string        `json:"businessId"`
	Rules      DiscountRules `json:"rules"`
	Active     bool          `json:"active"`
	CreatedAt  time.Time     `json:"createdAt"`
}

func toDiscountResponse(d *domain.Discount) DiscountResponse {
	return DiscountResponse{
		ID:         d.ID,
		AccessKey:  d.AccessKey,
		BusinessID: d.BusinessID,
		Rules: DiscountRules{
			PerDeviceCooldownMinutes: d.PerDeviceCooldownMinutes,
			PerEmailOnce:             d.PerEmailOnce,
		},
		Active:    d.Active,
		CreatedAt: d.CreatedAt,
	}
}

// GetDiscount resolves an active discount by its public access key.
//
// Responses:
//
//	200 discount document
//	404 unknown access key, or the discount is inactive
//	500 store failure
func (h *Handlers) GetDiscount(c *gin.Context) {
	accessKey := c.Param("accessKey")

	d, err := h.discounts.Resolve(c.Request.Context(), accessKey)
	if err != nil {
		switch err {
		case services.ErrDiscountNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "discount not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not resolve discount")
		}
		return
	}

	ok(c, http.StatusOK, toDiscountResponse(d))
}
