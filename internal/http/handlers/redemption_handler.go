// Redemption HTTP handlers.
//
// This file exposes the admission endpoint:
//   - POST /discounts/mark-used  (admit a redemption)
//
// The handler validates the payload, delegates to the admission service, and
// translates service errors into status codes: 400 missing fields,
// 404 unknown discount, 409 already redeemed, 429 cooldown active, 500
// internal error. An idempotent replay answers 200 instead of 201 with the
// original redemption identifier.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-discount-backend/internal/services"
)

// MarkUsedRequest is the JSON payload for admitting a redemption.
//
// AccessKey and IdempotencyKey are required; Email and DeviceID are optional
// correlation identifiers the anti-abuse rules key on. The client IP is taken
// from the connection, never from the payload.
type MarkUsedRequest struct {
	AccessKey      string `json:"accessKey" binding:"required"`
	IdempotencyKey string `json:"idempotencyKey" binding:"required"`
	Email          string `json:"email"`
	DeviceID       string `json:"deviceId"`
}

// MarkUsedResponse is the success body for an admitted (or replayed)
// redemption.
type MarkUsedResponse struct {
	Status       string `json:"status"`
	RedemptionID string `json:"redemptionId"`
}

// MarkUsed admits one redemption attempt.
//
// Responses:
//
//	201 {status:"ok", redemptionId} redemption recorded, event staged
//	200 same body                   idempotent replay, no new writes
//	400 accessKey or idempotencyKey missing
//	404 unknown or inactive discount
//	409 per-email-once rule violated
//	429 device cooldown window still open
//	500 store failure
func (h *Handlers) MarkUsed(c *gin.Context) {
	var req MarkUsedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "accessKey and idempotencyKey are required")
		return
	}

	res, err := h.redemptions.Admit(c.Request.Context(), services.AdmissionInput{
		AccessKey:      req.AccessKey,
		IdempotencyKey: req.IdempotencyKey,
		Email:          req.Email,
		DeviceID:       req.DeviceID,
		ClientIP:       c.ClientIP(),
	})
	if err != nil {
		switch err {
		case services.ErrInvalidRequest:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "accessKey and idempotencyKey are required")
		case services.ErrDiscountNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "discount not found")
		case services.ErrAlreadyRedeemed:
			fail(c, http.StatusConflict, ErrCodeConflict, "discount already redeemed for this email")
		case services.ErrCooldownActive:
			fail(c, http.StatusTooManyRequests, ErrCodeCooldownActive, "device cooldown active for this discount")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not record redemption")
		}
		return
	}

	status := http.StatusCreated
	if res.Replay {
		status = http.StatusOK
	}
	ok(c, status, MarkUsedResponse{Status: "ok", RedemptionID: res.RedemptionID})
}
