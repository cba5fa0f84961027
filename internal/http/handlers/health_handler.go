// Health HTTP handlers.
//
// This file exposes liveness and readiness probes:
//   - GET /health  (process is up)
//   - GET /ready   (store connectivity)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-discount-backend/internal/repo"
)

// Health reports process liveness. It never touches the store.
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"status": "ok", "service": h.serviceName})
}

// Ready reports readiness: 200 when the store answers a ping, 503 otherwise.
func (h *Handlers) Ready(c *gin.Context) {
	if err := repo.Ping(h.db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
		return
	}
	ok(c, http.StatusOK, gin.H{"ready": true})
}
