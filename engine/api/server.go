package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/compozy/storepulse/engine/metrics"
	"github.com/compozy/storepulse/pkg/config"
	"github.com/compozy/storepulse/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the admin HTTP API
type Server struct {
	config    config.ServerConfig
	metrics   metrics.Service
	assistant ChatAssistant
	version   string
	engine    *gin.Engine
	logger    *log.Logger
}

// Option customizes a Server
type Option func(*Server)

// WithAssistant enables POST /admin/assistant/chat
func WithAssistant(a ChatAssistant) Option {
	return func(s *Server) { s.assistant = a }
}

// WithVersion reports version on /health
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// NewServer builds the router for svc
func NewServer(cfg config.ServerConfig, svc metrics.Service, opts ...Option) *Server {
	s := &Server{
		config:  cfg,
		metrics: svc,
		logger:  logger.With("component", "api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(requestID(), recovery(), requestLogger(), prometheusMetrics())
	s.engine = engine
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := s.engine.Group("/admin", bearerAuth(s.config.AuthToken))

	analytics := admin.Group("/analytics")
	analytics.GET("/cart", s.handleCart)
	analytics.GET("/orders/by-status", rangeHandler(s.metrics.OrdersByStatus))
	analytics.GET("/orders/over-time", bucketedHandler(s.metrics.OrdersOverTime))
	analytics.GET("/sales", rangeHandler(s.metrics.SalesSummary))
	analytics.GET("/sales/chart", s.handleSalesChart)
	analytics.GET("/refunds", rangeHandler(s.metrics.RefundsSummary))
	analytics.GET("/customers", bucketedHandler(s.metrics.CustomersSummary))
	analytics.GET("/regions", rangeHandler(s.metrics.RegionPopularity))
	analytics.GET("/sales-channels", rangeHandler(s.metrics.SalesChannelPopularity))
	analytics.GET("/payment-providers", rangeHandler(s.metrics.PaymentProviderPopularity))
	analytics.GET("/marketing", rangeHandler(s.metrics.MarketingSummary))
	analytics.GET("/products", s.handleProducts)
	analytics.GET("/customer-origin", rangeHandler(s.metrics.CustomerOrigin))
	analytics.GET("/aov", rangeHandler(s.metrics.AverageOrderValue))
	analytics.GET("/settings", s.handleSettings)

	if s.assistant != nil {
		admin.POST("/assistant/chat", s.handleChat)
	}
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is canceled, then drains in-flight requests for
// at most the configured shutdown timeout
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", srv.Addr, "assistant", s.assistant != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("Shutting down HTTP server", "timeout", timeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
