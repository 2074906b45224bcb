package mcp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/compozy/storepulse/pkg/logger"
	mcpconfig "github.com/compozy/storepulse/pkg/mcp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName = "storepulse"

	// CatalogURI is the resource listing every tool descriptor
	CatalogURI = "catalog://tools"
)

// Server represents the MCP server
type Server struct {
	config    *mcpconfig.Config
	catalog   Catalog
	mcpServer *server.MCPServer
	logger    *log.Logger

	mu         sync.Mutex
	sseServer  *server.SSEServer
	httpServer *http.Server
}

// NewServer creates a new MCP server instance serving every tool of catalog
func NewServer(config *mcpconfig.Config, catalog Catalog, version string) *Server {
	if config == nil {
		config = mcpconfig.DefaultConfig()
	}
	s := &Server{
		config:  config,
		catalog: catalog,
		logger:  logger.With("component", "mcp"),
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false), // Static tool set
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	s.registerTools()
	s.registerResources()

	return s
}

// MCPServer exposes the underlying mcp-go server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Start serves MCP on the configured transport until ctx is canceled or
// the transport fails
func (s *Server) Start(ctx context.Context) error {
	switch s.config.Server.Transport {
	case mcpconfig.TransportSSE:
		return s.serveSSE(ctx)
	default:
		s.logger.Info("Starting MCP server on stdio", "tools", len(s.catalog.Tools()))
		return server.ServeStdio(s.mcpServer)
	}
}

// Shutdown stops the SSE transport. It is a no-op on stdio.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	sse, srv := s.sseServer, s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := sse.Shutdown(ctx); err != nil {
		s.logger.Warn("Failed to close MCP sessions", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		// Streams stay open until their clients leave
		return srv.Close()
	}
	return nil
}

func (s *Server) serveSSE(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, strconv.Itoa(s.config.Server.Port))
	baseURL := s.config.Server.BaseURL
	if baseURL == "" {
		baseURL = "http://" + addr
	}

	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.authorize(sse),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.sseServer, s.httpServer = sse, srv
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to stop MCP server", "error", err)
		}
	}()

	s.logger.Info("Starting MCP server over SSE", "addr", addr, "base_url", baseURL, "tools", len(s.catalog.Tools()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mcp server failed: %w", err)
	}
	return nil
}

// authorize guards the SSE transport with the configured bearer token
func (s *Server) authorize(next http.Handler) http.Handler {
	if !s.config.Auth.Enabled {
		return next
	}
	expected := []byte(s.config.Auth.Token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -----
// Tools
// -----

func (s *Server) registerTools() {
	for _, tool := range s.catalog.Tools() {
		s.mcpServer.AddTool(tool.Definition, s.handleTool(tool.Definition.Name))
	}
}

// handleTool routes a call through the catalog. Failures become isError
// results so the client sees them as tool output.
func (s *Server) handleTool(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if timeout := s.config.Performance.RequestTimeout; timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		result, err := s.catalog.Call(ctx, name, req.GetArguments())
		if err != nil {
			return newToolResultFromError(err), nil
		}
		toolResult, err := newToolResultFromResponse(&ToolResponse{Content: []any{result}})
		if err != nil {
			s.logger.Error("Failed to encode tool result", "tool", name, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolResult, nil
	}
}

// -----
// Resources
// -----

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(
		CatalogURI,
		"tool_catalog",
		mcp.WithResourceDescription("Name, description and input schema of every analytics tool"),
		mcp.WithMIMEType(mimeJSON),
	), s.handleCatalogResource)
}

func (s *Server) handleCatalogResource(
	_ context.Context,
	req mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	if uri == "" {
		uri = CatalogURI
	}
	return jsonResource(uri, map[string]any{"tools": s.catalog.Definitions()})
}
