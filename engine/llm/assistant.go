package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/pkg/logger"
	"github.com/compozy/storepulse/pkg/telemetry"
	"github.com/sashabaranov/go-openai"
)

// DefaultSystemPrompt frames the model as a store analyst
const DefaultSystemPrompt = `You are a commerce analytics assistant for an online store.
Answer questions about sales, orders, customers, carts, products and promotions.
Use the provided tools to fetch figures instead of guessing, and quote amounts with their currency.
Dates are calendar days in YYYY-MM-DD format. When the user does not give a range, ask or use the full history.
Keep answers short and include the numbers you relied on.`

// Config configures the OpenAI-compatible endpoint
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
}

// Assistant relays a conversation to the model, running the tools it asks for
type Assistant struct {
	client       *openai.Client
	runner       ToolRunner
	model        string
	systemPrompt string
	timeout      time.Duration
	tracker      telemetry.Tracker
	logger       *log.Logger
}

// Option customizes an Assistant
type Option func(*Assistant)

// WithTracker reports every conversation to tracker
func WithTracker(tracker telemetry.Tracker) Option {
	return func(a *Assistant) {
		if tracker != nil {
			a.tracker = tracker
		}
	}
}

// NewAssistant creates an assistant for the given endpoint
func NewAssistant(cfg Config, runner ToolRunner, opts ...Option) *Assistant {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	prompt := cfg.SystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultSystemPrompt
	}
	a := &Assistant{
		client:       openai.NewClientWithConfig(clientConfig),
		runner:       runner,
		model:        cfg.Model,
		systemPrompt: prompt,
		timeout:      cfg.Timeout,
		tracker:      telemetry.Noop{},
		logger:       logger.With("component", "assistant"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HealthCheck lists the endpoint models. Any failure is UPSTREAM_UNAVAILABLE.
func (a *Assistant) HealthCheck(ctx context.Context) error {
	if _, err := a.client.ListModels(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return core.NewError(
			fmt.Errorf("assistant endpoint is unavailable: %w", err),
			core.ErrorCodeUpstreamUnavailable,
			map[string]any{"model": a.model},
		)
	}
	return nil
}

// Ask checks the endpoint and answers a single question
func (a *Assistant) Ask(ctx context.Context, question string, sink Sink) error {
	if err := a.HealthCheck(ctx); err != nil {
		return err
	}
	return a.Relay(ctx, []Message{{Role: RoleUser, Content: question}}, sink)
}

// Relay answers the conversation in two phases. The first phase streams with
// the tools offered. When the model asks for tools they run in order and the
// second phase streams the final answer without tools. Stream failures are
// reported to sink as an error event and returned.
func (a *Assistant) Relay(ctx context.Context, history []Message, sink Sink) (err error) {
	started := time.Now()
	toolCalls := 0
	defer func() {
		props := telemetry.ErrorProperties(err)
		props["model"] = a.model
		props["tool_calls"] = toolCalls
		props["duration_ms"] = time.Since(started).Milliseconds()
		a.tracker.Track(telemetry.EventAssistantChat, props)
	}()

	messages, err := a.buildMessages(history)
	if err != nil {
		return err
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	reply, err := a.stream(ctx, messages, a.toolDefinitions(), sink)
	if err != nil {
		return a.fail(sink, err)
	}
	if len(reply.ToolCalls) > 0 {
		toolCalls = len(reply.ToolCalls)
		messages = append(messages, reply)
		results, err := a.runTools(ctx, reply.ToolCalls, sink)
		if err != nil {
			return a.fail(sink, err)
		}
		messages = append(messages, results...)

		if _, err := a.stream(ctx, messages, nil, sink); err != nil {
			return a.fail(sink, err)
		}
	}
	return sink(Event{Type: EventDone})
}

// ValidateMessages checks a conversation before it is relayed
func ValidateMessages(history []Message) error {
	if len(history) == 0 {
		return core.InvalidInput("messages are required")
	}
	for i, m := range history {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != RoleUser && role != RoleAssistant {
			return core.InvalidInput("messages[%d]: role must be user or assistant", i)
		}
		if strings.TrimSpace(m.Content) == "" {
			return core.InvalidInput("messages[%d]: content is required", i)
		}
	}
	if !strings.EqualFold(strings.TrimSpace(history[len(history)-1].Role), RoleUser) {
		return core.InvalidInput("the last message must come from the user")
	}
	return nil
}

func (a *Assistant) buildMessages(history []Message) ([]openai.ChatCompletionMessage, error) {
	if err := ValidateMessages(history); err != nil {
		return nil, err
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: a.systemPrompt,
	})
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    strings.ToLower(strings.TrimSpace(m.Role)),
			Content: m.Content,
		})
	}
	return messages, nil
}

func (a *Assistant) toolDefinitions() []openai.Tool {
	defs := a.runner.Definitions()
	out := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.InputSchema,
			},
		})
	}
	return out
}

// stream runs one completion, forwarding tokens to sink, and returns the
// assembled assistant message
func (a *Assistant) stream(
	ctx context.Context,
	messages []openai.ChatCompletionMessage,
	toolDefs []openai.Tool,
	sink Sink,
) (openai.ChatCompletionMessage, error) {
	reply := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
	req := openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
		Stream:   true,
	}
	if len(toolDefs) > 0 {
		req.Tools = toolDefs
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return reply, a.upstreamError(err)
	}
	defer stream.Close()

	var content strings.Builder
	var calls toolCallBuffer
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return reply, a.upstreamError(err)
		}
		for _, choice := range resp.Choices {
			if choice.Delta.Content != "" {
				content.WriteString(choice.Delta.Content)
				if err := sink(Event{Type: EventToken, Content: choice.Delta.Content}); err != nil {
					return reply, err
				}
			}
			for _, tc := range choice.Delta.ToolCalls {
				calls.add(tc)
			}
		}
	}

	reply.Content = content.String()
	reply.ToolCalls = calls.list()
	return reply, nil
}

// runTools executes each requested call through the runner. Failures are
// returned to the model as {"error": ...} payloads.
func (a *Assistant) runTools(
	ctx context.Context,
	calls []openai.ToolCall,
	sink Sink,
) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(calls))
	for _, call := range calls {
		name := call.Function.Name
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs == "" {
			rawArgs = "{}"
		}
		callEvent := Event{Type: EventToolCall, CallID: call.ID, Tool: name}
		if json.Valid([]byte(rawArgs)) {
			callEvent.Arguments = json.RawMessage(rawArgs)
		}
		if err := sink(callEvent); err != nil {
			return nil, err
		}

		payload := a.execute(ctx, name, rawArgs)
		if err := sink(Event{Type: EventToolResult, CallID: call.ID, Tool: name, Result: payload}); err != nil {
			return nil, err
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    string(payload),
			Name:       name,
			ToolCallID: call.ID,
		})
	}
	return out, nil
}

func (a *Assistant) execute(ctx context.Context, name, rawArgs string) json.RawMessage {
	var args map[string]any
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return errorPayload(fmt.Sprintf("invalid arguments for %s: %v", name, err))
	}
	result, err := a.runner.Call(ctx, name, args)
	if err != nil {
		a.logger.Warn("Tool call failed", "tool", name, "error", err)
		return errorPayload(core.MessageOf(err))
	}
	data, err := json.Marshal(result)
	if err != nil {
		return errorPayload(fmt.Sprintf("failed to encode %s result: %v", name, err))
	}
	return data
}

func errorPayload(msg string) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return data
}

func (a *Assistant) upstreamError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return core.NewError(fmt.Errorf("assistant stream failed: %w", err), core.ErrorCodeUpstreamUnavailable, nil)
}

// fail reports err to sink unless the client is already gone
func (a *Assistant) fail(sink Sink, err error) error {
	if errors.Is(err, context.Canceled) {
		a.logger.Debug("Assistant relay canceled")
		return err
	}
	a.logger.Error("Assistant relay failed", "error", err)
	event := Event{Type: EventError, Error: core.MessageOf(err)}
	if code := core.CodeOf(err); code != "" {
		event.Code = string(code)
	}
	if sinkErr := sink(event); sinkErr != nil {
		a.logger.Debug("Failed to deliver error event", "error", sinkErr)
	}
	return err
}

// toolCallBuffer assembles tool calls streamed as fragments. Fragments
// without an index continue the last call unless they carry a new ID.
type toolCallBuffer struct {
	calls []openai.ToolCall
	index map[int]int
}

func (b *toolCallBuffer) add(delta openai.ToolCall) {
	call := &b.calls[b.position(delta)]
	if delta.ID != "" {
		call.ID = delta.ID
	}
	if delta.Type != "" {
		call.Type = delta.Type
	}
	call.Function.Name += delta.Function.Name
	call.Function.Arguments += delta.Function.Arguments
}

func (b *toolCallBuffer) position(delta openai.ToolCall) int {
	if delta.Index != nil {
		if b.index == nil {
			b.index = map[int]int{}
		}
		pos, ok := b.index[*delta.Index]
		if !ok {
			pos = b.start()
			b.index[*delta.Index] = pos
		}
		return pos
	}
	if delta.ID != "" {
		for i := range b.calls {
			if b.calls[i].ID == delta.ID {
				return i
			}
		}
		return b.start()
	}
	if len(b.calls) == 0 {
		return b.start()
	}
	return len(b.calls) - 1
}

func (b *toolCallBuffer) start() int {
	b.calls = append(b.calls, openai.ToolCall{Type: openai.ToolTypeFunction})
	return len(b.calls) - 1
}

func (b *toolCallBuffer) list() []openai.ToolCall {
	for i := range b.calls {
		if b.calls[i].ID == "" {
			b.calls[i].ID = fmt.Sprintf("call_%d", i)
		}
	}
	return b.calls
}
