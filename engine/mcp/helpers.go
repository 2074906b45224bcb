package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/compozy/storepulse/engine/core"
	"github.com/mark3labs/mcp-go/mcp"
)

const mimeJSON = "application/json"

// newToolResultFromResponse converts every content item into MCP content.
// Plain strings stay text, structured values are rendered as JSON text.
func newToolResultFromResponse(response *ToolResponse) (*mcp.CallToolResult, error) {
	if response == nil || len(response.Content) == 0 {
		return mcp.NewToolResultText("No content available"), nil
	}

	mcpContent := make([]mcp.Content, 0, len(response.Content))
	for _, content := range response.Content {
		item, err := convertToMCPContent(content)
		if err != nil {
			return nil, err
		}
		mcpContent = append(mcpContent, item)
	}
	return &mcp.CallToolResult{Content: mcpContent}, nil
}

// newToolResultFromError renders a failed call as an isError result
func newToolResultFromError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(core.MessageOf(err))
}

// convertToMCPContent converts a single content item to MCP Content
func convertToMCPContent(content any) (mcp.Content, error) {
	switch v := content.(type) {
	case nil:
		return mcp.NewTextContent("null"), nil
	case string:
		return mcp.NewTextContent(v), nil
	case mcp.Content:
		return v, nil
	default:
		return convertObjectToText(v)
	}
}

// convertObjectToText converts any object to JSON text content
func convertObjectToText(v any) (mcp.Content, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content: %w", err)
	}
	return mcp.NewTextContent(string(jsonData)), nil
}

// jsonResource renders v as the single JSON text content of a resource
func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(data),
		},
	}, nil
}
