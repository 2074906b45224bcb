package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/compozy/storepulse/engine/api"
	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/engine/llm"
	"github.com/compozy/storepulse/engine/metrics"
	"github.com/compozy/storepulse/pkg/config"
	"github.com/compozy/storepulse/pkg/logger"
	"github.com/compozy/storepulse/pkg/testhelpers"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Disable()
	m.Run()
}

func newSource() *testhelpers.MemorySource {
	source := testhelpers.NewMemorySource()
	source.OrderList = []commerce.Order{
		testhelpers.NewOrder("order_1", 100, "2024-01-01"),
		testhelpers.NewOrder("order_2", 200, "2024-01-01"),
		testhelpers.NewOrder("order_3", 50, "2024-01-02"),
	}
	return source
}

func newServer(source commerce.Source, cfg config.ServerConfig, opts ...api.Option) http.Handler {
	svc := metrics.NewService(source, &metrics.ServiceConfig{
		Now: func() time.Time { return testhelpers.Time("2024-01-31T12:00:00Z") },
	})
	return api.NewServer(cfg, svc, opts...).Handler()
}

func get(h http.Handler, path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestServer_Health(t *testing.T) {
	t.Run("Should report liveness with a generated request id", func(t *testing.T) {
		h := newServer(newSource(), config.ServerConfig{})

		rec := get(h, "/health")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","assistant":false}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get(api.RequestIDHeader))
	})

	t.Run("Should echo the caller request id", func(t *testing.T) {
		h := newServer(newSource(), config.ServerConfig{})

		rec := get(h, "/health", api.RequestIDHeader, "req-42")

		assert.Equal(t, "req-42", rec.Header().Get(api.RequestIDHeader))
	})

	t.Run("Should expose Prometheus metrics", func(t *testing.T) {
		h := newServer(newSource(), config.ServerConfig{})
		get(h, "/health")

		rec := get(h, "/metrics")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "storepulse_http_requests_total")
	})
}

func TestServer_Analytics(t *testing.T) {
	t.Run("Should serve the sales chart by day", func(t *testing.T) {
		h := newServer(newSource(), config.ServerConfig{})

		rec := get(h, "/admin/analytics/sales/chart?start_date=2024-01-01&end_date=2024-01-02&group_by=day")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t,
			`[{"period":"2024-01-01","orders":2,"total":300},{"period":"2024-01-02","orders":1,"total":50}]`,
			rec.Body.String())
	})

	t.Run("Should require both dates for the sales chart", func(t *testing.T) {
		h := newServer(newSource(), config.ServerConfig{})

		rec := get(h, "/admin/analytics/sales/chart?start_date=2024-01-01")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "start_date and end_date are required", decodeError(t, rec).Message)
	})

	t.Run("Should return zeroed figures when the range is inverted", func(t *testing.T) {
		source := newSource()
		h := newServer(source, config.ServerConfig{})

		rec := get(h, "/admin/analytics/aov?start_date=2024-02-01&end_date=2024-01-01")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"total_revenue":0,"order_count":0,"average_order_value":0}`, rec.Body.String())
		assert.Zero(t, source.Calls("Orders"))
	})

	t.Run("Should reject malformed parameters with 400", func(t *testing.T) {
		h := newServer(newSource(), config.ServerConfig{})
		paths := []string{
			"/admin/analytics/sales?start_date=01/02/2024",
			"/admin/analytics/orders/over-time?group_by=year",
			"/admin/analytics/cart?days=0",
			"/admin/analytics/cart?days=ten",
			"/admin/analytics/cart?days=3651",
			"/admin/analytics/products?limit=101",
			"/admin/analytics/products?limit=-1",
		}
		for _, path := range paths {
			rec := get(h, path)
			assert.Equal(t, http.StatusBadRequest, rec.Code, path)
			body := decodeError(t, rec)
			assert.NotEmpty(t, body.Message, path)
			assert.Equal(t, string(core.ErrorCodeInvalidInput), body.Code, path)
		}
	})

	t.Run("Should map source failures to 500 with the error message", func(t *testing.T) {
		source := newSource()
		source.Err = testhelpers.QueryFailed("connection reset by peer")
		h := newServer(source, config.ServerConfig{})

		rec := get(h, "/admin/analytics/regions")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "connection reset by peer", decodeError(t, rec).Message)
	})

	t.Run("Should expose the effective settings", func(t *testing.T) {
		h := newServer(newSource(), config.ServerConfig{})

		rec := get(h, "/admin/analytics/settings")

		require.Equal(t, http.StatusOK, rec.Code)
		var settings metrics.Settings
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
		assert.Equal(t, "USD", settings.DefaultCurrency)
		assert.Equal(t, 30, settings.CartLookbackDays)
	})
}

func TestServer_Auth(t *testing.T) {
	h := newServer(newSource(), config.ServerConfig{AuthToken: "s3cret"})

	t.Run("Should reject admin requests without the token", func(t *testing.T) {
		rec := get(h, "/admin/analytics/sales")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = get(h, "/admin/analytics/sales", "Authorization", "Bearer nope")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Should accept admin requests with the token", func(t *testing.T) {
		rec := get(h, "/admin/analytics/sales", "Authorization", "Bearer s3cret")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Should leave health checks open", func(t *testing.T) {
		rec := get(h, "/health")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

// stubAssistant replays fixed events
type stubAssistant struct {
	healthErr error
	events    []llm.Event
	history   []llm.Message
}

func (s *stubAssistant) HealthCheck(context.Context) error { return s.healthErr }

func (s *stubAssistant) Relay(_ context.Context, history []llm.Message, sink llm.Sink) error {
	s.history = history
	for _, e := range s.events {
		if err := sink(e); err != nil {
			return err
		}
	}
	return nil
}

func postChat(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/assistant/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_AssistantChat(t *testing.T) {
	t.Run("Should stream relay events", func(t *testing.T) {
		assistant := &stubAssistant{events: []llm.Event{
			{Type: llm.EventToolCall, Tool: "calculate_aov", CallID: "call_1"},
			{Type: llm.EventToken, Content: "AOV is 116.67"},
			{Type: llm.EventDone},
		}}
		h := newServer(newSource(), config.ServerConfig{}, api.WithAssistant(assistant))

		rec := postChat(h, `{"messages":[{"role":"user","content":"What is my AOV?"}]}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
		body := rec.Body.String()
		assert.Contains(t, body, "event:tool_call")
		assert.Contains(t, body, `"tool":"calculate_aov"`)
		assert.Contains(t, body, "event:token")
		assert.Contains(t, body, `"content":"AOV is 116.67"`)
		assert.Contains(t, body, "event:done")
		require.Len(t, assistant.history, 1)
		assert.Equal(t, "What is my AOV?", assistant.history[0].Content)
	})

	t.Run("Should answer 503 when the model endpoint is down", func(t *testing.T) {
		assistant := &stubAssistant{healthErr: core.NewError(
			errors.New("assistant endpoint is unavailable: connection refused"),
			core.ErrorCodeUpstreamUnavailable,
			nil,
		)}
		h := newServer(newSource(), config.ServerConfig{}, api.WithAssistant(assistant))

		rec := postChat(h, `{"messages":[{"role":"user","content":"hi"}]}`)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, string(core.ErrorCodeUpstreamUnavailable), decodeError(t, rec).Code)
	})

	t.Run("Should reject malformed conversations", func(t *testing.T) {
		h := newServer(newSource(), config.ServerConfig{}, api.WithAssistant(&stubAssistant{}))

		assert.Equal(t, http.StatusBadRequest, postChat(h, `{"messages":`).Code)
		assert.Equal(t, http.StatusBadRequest, postChat(h, `{"messages":[]}`).Code)
		assert.Equal(t, http.StatusBadRequest, postChat(h, `{"messages":[{"role":"system","content":"x"}]}`).Code)
	})

	t.Run("Should not expose the route when the assistant is disabled", func(t *testing.T) {
		h := newServer(newSource(), config.ServerConfig{})

		rec := postChat(h, `{"messages":[{"role":"user","content":"hi"}]}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStatusOf(t *testing.T) {
	t.Run("Should map error codes to HTTP statuses", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, api.StatusOf(core.InvalidInput("bad")))
		assert.Equal(t, http.StatusNotFound, api.StatusOf(core.NewError(errors.New("gone"), core.ErrorCodeNotFound, nil)))
		assert.Equal(t, http.StatusInternalServerError, api.StatusOf(errors.New("boom")))
	})
}
