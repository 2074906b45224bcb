package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/engine/mcp"
	"github.com/compozy/storepulse/engine/tools"
	"github.com/compozy/storepulse/pkg/logger"
	mcpconfig "github.com/compozy/storepulse/pkg/mcp"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Disable()
	m.Run()
}

type rpcResponse struct {
	Result struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Contents []struct {
			URI      string `json:"uri"`
			MIMEType string `json:"mimeType"`
			Text     string `json:"text"`
		} `json:"contents"`
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func setupServer(t *testing.T) *mcp.Server {
	t.Helper()
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(
		mcpgo.NewTool("get_order",
			mcpgo.WithDescription("Get a single order"),
			mcpgo.WithString("id", mcpgo.Required()),
		),
		func(_ context.Context, args tools.Arguments) (any, error) {
			id := args.String("id", "")
			if id != "order_1" {
				return nil, core.NewError(fmt.Errorf("order %s not found", id), core.ErrorCodeNotFound, nil)
			}
			return map[string]any{"id": id, "total": 100}, nil
		},
	))
	require.NoError(t, registry.Register(
		mcpgo.NewTool("get_sales_summary", mcpgo.WithDescription("Sales summary")),
		func(context.Context, tools.Arguments) (any, error) {
			return nil, core.NewError(errors.New("connection refused"), core.ErrorCodeQueryFailed, nil)
		},
	))
	return mcp.NewServer(mcpconfig.DefaultConfig(), registry, "test")
}

func send(t *testing.T, s *mcp.Server, method string, params map[string]any) rpcResponse {
	t.Helper()
	message, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	raw := s.MCPServer().HandleMessage(context.Background(), message)
	data, err := json.Marshal(raw)
	require.NoError(t, err)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestServer_Tools(t *testing.T) {
	t.Run("Should list every catalog tool", func(t *testing.T) {
		s := setupServer(t)

		resp := send(t, s, "tools/list", map[string]any{})

		require.Nil(t, resp.Error)
		names := make([]string, 0, len(resp.Result.Tools))
		for _, tool := range resp.Result.Tools {
			names = append(names, tool.Name)
		}
		assert.ElementsMatch(t, []string{"get_order", "get_sales_summary"}, names)
	})

	t.Run("Should return the handler result as JSON text", func(t *testing.T) {
		s := setupServer(t)

		resp := send(t, s, "tools/call", map[string]any{
			"name":      "get_order",
			"arguments": map[string]any{"id": "order_1"},
		})

		require.Nil(t, resp.Error)
		assert.False(t, resp.Result.IsError)
		require.Len(t, resp.Result.Content, 1)
		assert.JSONEq(t, `{"id":"order_1","total":100}`, resp.Result.Content[0].Text)
	})

	t.Run("Should turn handler failures into isError results", func(t *testing.T) {
		s := setupServer(t)

		resp := send(t, s, "tools/call", map[string]any{
			"name":      "get_order",
			"arguments": map[string]any{"id": "order_9"},
		})

		require.Nil(t, resp.Error)
		assert.True(t, resp.Result.IsError)
		require.Len(t, resp.Result.Content, 1)
		assert.Equal(t, "order order_9 not found", resp.Result.Content[0].Text)
	})

	t.Run("Should turn schema violations into isError results", func(t *testing.T) {
		s := setupServer(t)

		resp := send(t, s, "tools/call", map[string]any{
			"name":      "get_order",
			"arguments": map[string]any{},
		})

		require.Nil(t, resp.Error)
		assert.True(t, resp.Result.IsError)
		assert.Contains(t, resp.Result.Content[0].Text, "invalid arguments for get_order")
	})

	t.Run("Should report source failures without crashing", func(t *testing.T) {
		s := setupServer(t)

		resp := send(t, s, "tools/call", map[string]any{"name": "get_sales_summary"})

		require.Nil(t, resp.Error)
		assert.True(t, resp.Result.IsError)
		assert.Equal(t, "connection refused", resp.Result.Content[0].Text)
	})
}

func TestServer_Resources(t *testing.T) {
	t.Run("Should serve the tool catalog", func(t *testing.T) {
		s := setupServer(t)

		resp := send(t, s, "resources/read", map[string]any{"uri": mcp.CatalogURI})

		require.Nil(t, resp.Error)
		require.Len(t, resp.Result.Contents, 1)
		content := resp.Result.Contents[0]
		assert.Equal(t, mcp.CatalogURI, content.URI)
		assert.Equal(t, "application/json", content.MIMEType)

		var catalog struct {
			Tools []tools.Descriptor `json:"tools"`
		}
		require.NoError(t, json.Unmarshal([]byte(content.Text), &catalog))
		require.Len(t, catalog.Tools, 2)
		assert.Equal(t, "get_order", catalog.Tools[0].Name)
		assert.Equal(t, []any{"id"}, catalog.Tools[0].InputSchema["required"])
	})
}

func TestServer_Shutdown(t *testing.T) {
	t.Run("Should be a no-op before the SSE transport starts", func(t *testing.T) {
		s := setupServer(t)
		assert.NoError(t, s.Shutdown(context.Background()))
	})
}
