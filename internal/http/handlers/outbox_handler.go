// Outbox HTTP handlers.
//
// This file exposes the outbox observability and administration endpoints:
//   - GET  /outbox/pending           (debug listing, oldest first)
//   - POST /internal/consume-outbox  (manual drain, synchronous)
//
// The pending listing reads straight through the repository since it is a
// pure debug view; draining goes through the dispatcher so manual catch-up
// and timer ticks share one claim/publish path.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-discount-backend/internal/domain"
	"github.com/tbourn/go-discount-backend/internal/repo"
	"github.com/tbourn/go-discount-backend/internal/utils"
)

const (
	// defaultPendingLimit applies when ?limit is absent on the listing.
	defaultPendingLimit = 50
	// defaultDrainLimit applies when the drain body omits limit.
	defaultDrainLimit = 25
	// maxBatchLimit caps both operations regardless of the requested value.
	maxBatchLimit = 100
)

// PendingOutboxResponse wraps the debug listing of pending entries.
type PendingOutboxResponse struct {
	Items []domain.OutboxEntry `json:"items"`
}

// ListPendingOutbox returns pending outbox entries, oldest first.
//
// The optional ?limit query parameter defaults to 50 and is capped at 100.
func (h *Handlers) ListPendingOutbox(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), defaultPendingLimit)
	if limit < 1 {
		limit = defaultPendingLimit
	}
	if limit > maxBatchLimit {
		limit = maxBatchLimit
	}

	items, err := repo.ListPendingOutbox(c.Request.Context(), h.db, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list pending outbox entries")
		return
	}
	if items == nil {
		items = []domain.OutboxEntry{}
	}

	ok(c, http.StatusOK, PendingOutboxResponse{Items: items})
}

// ConsumeOutboxRequest is the optional JSON payload for the manual drain.
type ConsumeOutboxRequest struct {
	Limit int `json:"limit"`
}

// ConsumeOutboxResponse reports the synchronously drained entries.
type ConsumeOutboxResponse struct {
	ProcessedCount int      `json:"processedCount"`
	Processed      []string `json:"processed"`
}

// ConsumeOutbox drains up to limit pending entries synchronously and reports
// which entry IDs were processed. The body is optional; limit defaults to 25
// and is capped at 100.
func (h *Handlers) ConsumeOutbox(c *gin.Context) {
	req := ConsumeOutboxRequest{Limit: defaultDrainLimit}
	// The body is optional; ignore absent or malformed bodies and keep the default.
	_ = c.ShouldBindJSON(&req)
	if req.Limit < 1 {
		req.Limit = defaultDrainLimit
	}
	if req.Limit > maxBatchLimit {
		req.Limit = maxBatchLimit
	}

	processed, err := h.drainer.DrainBatch(c.Request.Context(), req.Limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "outbox drain failed")
		return
	}
	if processed == nil {
		processed = []string{}
	}

	ok(c, http.StatusOK, ConsumeOutboxResponse{
		ProcessedCount: len(processed),
		Processed:      processed,
	})
}
