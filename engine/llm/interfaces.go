package llm

import (
	"context"
	"encoding/json"

	"github.com/compozy/storepulse/engine/tools"
)

// ToolRunner executes the tools offered to the model
type ToolRunner interface {
	Definitions() []tools.Descriptor
	Call(ctx context.Context, name string, args map[string]any) (any, error)
}

var _ ToolRunner = (*tools.Registry)(nil)

// Roles accepted in a conversation
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of the conversation sent by the client
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// EventType names a relay event
type EventType string

const (
	EventToken      EventType = "token"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Event is streamed to the client while the assistant answers
type Event struct {
	Type      EventType       `json:"type"`
	Content   string          `json:"content,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Code      string          `json:"code,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Sink receives relay events in order. Returning an error stops the relay.
type Sink func(Event) error
