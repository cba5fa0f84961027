// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-discount-backend/internal/config"
	"github.com/tbourn/go-discount-backend/internal/domain"
	"github.com/tbourn/go-discount-backend/internal/http/handlers"
	"github.com/tbourn/go-discount-backend/internal/http/middleware"
	"github.com/tbourn/go-discount-backend/internal/repo"
	"github.com/tbourn/go-discount-backend/internal/services"
)

// discountRepoShim adapts the repository free functions to the
// services.DiscountRepo interface expected by the DiscountService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type discountRepoShim struct{}

// GetActiveDiscountByAccessKey proxies repo.GetActiveDiscountByAccessKey.
func (discountRepoShim) GetActiveDiscountByAccessKey(ctx context.Context, db *gorm.DB, accessKey string) (*domain.Discount, error) {
	return repo.GetActiveDiscountByAccessKey(ctx, db, accessKey)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine: observability (tracing, metrics), rate limiting, CORS and security
// headers, health and metrics endpoints, and the public API.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing (redemption emails)
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Response compression
//  8. Rate limiter (per IP)
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, drainer handlers.OutboxDrainer, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (redemption payloads carry emails)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (64 KiB; redemption payloads are tiny)
	r.Use(limitBody(64 << 10))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 8) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	corsHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Dependency injection: services ← repo/db
	discountSvc := services.NewDiscountService(db, discountRepoShim{})
	redemptionSvc := services.NewRedemptionService(db)
	h := handlers.New(cfg.ServiceName, db, discountSvc, redemptionSvc, drainer)

	// Probes
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)

	// Public API
	r.GET("/discounts/:accessKey", h.GetDiscount)
	r.POST("/discounts/mark-used", h.MarkUsed)
	r.GET("/outbox/pending", h.ListPendingOutbox)
	r.POST("/internal/consume-outbox", h.ConsumeOutbox)
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
