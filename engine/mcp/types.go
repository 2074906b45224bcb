package mcp

import (
	"context"

	"github.com/compozy/storepulse/engine/tools"
)

// Catalog is the tool table exposed over MCP
type Catalog interface {
	Definitions() []tools.Descriptor
	Tools() []*tools.Tool
	Call(ctx context.Context, name string, args map[string]any) (any, error)
}

var _ Catalog = (*tools.Registry)(nil)

// ToolResponse represents a response from a tool
type ToolResponse struct {
	Content []any `json:"content"`
}
