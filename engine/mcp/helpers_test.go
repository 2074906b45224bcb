package mcp

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/compozy/storepulse/engine/core"
	mcpconfig "github.com/compozy/storepulse/pkg/mcp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToolResultFromResponse(t *testing.T) {
	t.Run("Should handle nil response", func(t *testing.T) {
		result, err := newToolResultFromResponse(nil)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Len(t, result.Content, 1)
		textContent, ok := result.Content[0].(mcp.TextContent)
		require.True(t, ok)
		assert.Equal(t, "No content available", textContent.Text)
	})
	t.Run("Should keep strings as text", func(t *testing.T) {
		result, err := newToolResultFromResponse(&ToolResponse{Content: []any{"plain string"}})
		require.NoError(t, err)
		textContent, ok := result.Content[0].(mcp.TextContent)
		require.True(t, ok)
		assert.Equal(t, "text", textContent.Type)
		assert.Equal(t, "plain string", textContent.Text)
	})
	t.Run("Should render structs as JSON text", func(t *testing.T) {
		type summary struct {
			OrderCount int    `json:"order_count"`
			Currency   string `json:"currency"`
		}
		result, err := newToolResultFromResponse(&ToolResponse{
			Content: []any{&summary{OrderCount: 3, Currency: "USD"}},
		})
		require.NoError(t, err)
		textContent, ok := result.Content[0].(mcp.TextContent)
		require.True(t, ok)
		assert.JSONEq(t, `{"order_count":3,"currency":"USD"}`, textContent.Text)
	})
	t.Run("Should render nil values as null", func(t *testing.T) {
		result, err := newToolResultFromResponse(&ToolResponse{Content: []any{nil}})
		require.NoError(t, err)
		textContent, ok := result.Content[0].(mcp.TextContent)
		require.True(t, ok)
		assert.Equal(t, "null", textContent.Text)
	})
	t.Run("Should fail on values that cannot be encoded", func(t *testing.T) {
		_, err := newToolResultFromResponse(&ToolResponse{Content: []any{map[string]any{"ch": make(chan int)}}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to marshal content")
	})
}

func TestNewToolResultFromError(t *testing.T) {
	t.Run("Should surface the error message as an isError result", func(t *testing.T) {
		err := core.NewError(errors.New("order order_1 not found"), core.ErrorCodeNotFound, nil)

		result := newToolResultFromError(err)

		assert.True(t, result.IsError)
		textContent, ok := result.Content[0].(mcp.TextContent)
		require.True(t, ok)
		assert.Equal(t, "order order_1 not found", textContent.Text)
	})
}

func TestServer_Authorize(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("Should pass requests through when auth is disabled", func(t *testing.T) {
		s := &Server{config: mcpconfig.DefaultConfig()}
		rec := httptest.NewRecorder()

		s.authorize(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sse", http.NoBody))

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("Should require the bearer token when auth is enabled", func(t *testing.T) {
		cfg := mcpconfig.DefaultConfig()
		cfg.Auth = mcpconfig.AuthConfig{Enabled: true, Token: "s3cret"}
		s := &Server{config: cfg}
		handler := s.authorize(ok)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sse", http.NoBody))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		req := httptest.NewRequest(http.MethodGet, "/sse", http.NoBody)
		req.Header.Set("Authorization", "Bearer wrong")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/sse", http.NoBody)
		req.Header.Set("Authorization", "Bearer s3cret")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
