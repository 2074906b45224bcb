package api

import (
	"context"
	"net/http"

	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/engine/metrics"
	"github.com/gin-gonic/gin"
)

// -----
// Handler adapters
// -----

// rangeHandler serves an extractor taking only the date range
func rangeHandler[T any](fn func(context.Context, core.DateRange) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		rng, err := dateRange(c)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, func(ctx context.Context) (T, error) { return fn(ctx, rng) })
	}
}

// bucketedHandler serves an extractor taking a date range and group_by
func bucketedHandler[T any](fn func(context.Context, core.DateRange, metrics.Granularity) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		rng, err := dateRange(c)
		if err != nil {
			respondError(c, err)
			return
		}
		g, err := granularity(c)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, func(ctx context.Context) (T, error) { return fn(ctx, rng, g) })
	}
}

func respond[T any](c *gin.Context, fn func(context.Context) (T, error)) {
	result, err := fn(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// -----
// Analytics
// -----

func (s *Server) handleCart(c *gin.Context) {
	days, err := positiveInt(c, "days", metrics.MaxLookbackDays)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, func(ctx context.Context) (*metrics.CartSummary, error) {
		return s.metrics.CartSummary(ctx, days)
	})
}

func (s *Server) handleSalesChart(c *gin.Context) {
	rng, err := requiredDateRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	g, err := granularity(c)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, func(ctx context.Context) ([]metrics.PeriodBucket, error) {
		return s.metrics.SalesChart(ctx, rng, g)
	})
}

func (s *Server) handleProducts(c *gin.Context) {
	rng, err := dateRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	limit, err := positiveInt(c, "limit", MaxLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, func(ctx context.Context) (*metrics.ProductsSummary, error) {
		return s.metrics.ProductsSummary(ctx, rng, limit)
	})
}

func (s *Server) handleSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Settings())
}

// -----
// Health
// -----

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Assistant bool   `json:"assistant"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   s.version,
		Assistant: s.assistant != nil,
	})
}
