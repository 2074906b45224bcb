package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/compozy/storepulse/engine/core"
	pkgerrors "github.com/compozy/storepulse/pkg/errors"
	"github.com/compozy/storepulse/pkg/logger"
	"github.com/compozy/storepulse/pkg/telemetry"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Handler runs a tool with arguments that already passed schema validation
type Handler func(ctx context.Context, args Arguments) (any, error)

// Tool pairs an MCP tool definition with its handler
type Tool struct {
	Definition mcp.Tool
	Handler    Handler
	descriptor Descriptor
	schema     *jsonschema.Schema
}

// Descriptor is the public description of a tool
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Registry is a name keyed lookup table of tools. It is built once at
// startup and read concurrently afterwards.
type Registry struct {
	tools   map[string]*Tool
	order   []string
	tracker telemetry.Tracker
	logger  *log.Logger
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithTracker reports every call to tracker
func WithTracker(tracker telemetry.Tracker) RegistryOption {
	return func(r *Registry) {
		if tracker != nil {
			r.tracker = tracker
		}
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:   make(map[string]*Tool),
		tracker: telemetry.Noop{},
		logger:  logger.With("component", "tools"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool and compiles its input schema
func (r *Registry) Register(def mcp.Tool, handler Handler) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %s is already registered", def.Name)
	}
	if handler == nil {
		return fmt.Errorf("tool %s has no handler", def.Name)
	}

	descriptor := describe(def)
	schema, err := compileSchema(def.Name, descriptor.InputSchema)
	if err != nil {
		return err
	}

	r.tools[def.Name] = &Tool{
		Definition: def,
		Handler:    handler,
		descriptor: descriptor,
		schema:     schema,
	}
	r.order = append(r.order, def.Name)
	return nil
}

// Definitions returns the tool descriptors in registration order
func (r *Registry) Definitions() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].descriptor)
	}
	return out
}

// Tools returns the registered tools in registration order
func (r *Registry) Tools() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Get looks up a tool by name
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	return len(r.order)
}

// Call validates args against the tool schema and runs its handler. Unknown
// names fail with UNKNOWN_TOOL and schema violations with INVALID_INPUT.
// Handler panics are recovered into PANIC_RECOVERED errors.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (result any, err error) {
	started := time.Now()
	defer func() {
		r.report(name, started, err)
	}()

	tool, ok := r.tools[name]
	if !ok {
		//nolint:staticcheck // the message is returned verbatim to chat clients
		return nil, core.NewError(errors.New("Unknown tool: "+name), core.ErrorCodeUnknownTool, nil)
	}

	normalized, err := normalizeArguments(args)
	if err != nil {
		return nil, core.InvalidInput("invalid arguments for %s: %v", name, err)
	}
	if err := tool.schema.Validate(map[string]any(normalized)); err != nil {
		return nil, core.InvalidInput("invalid arguments for %s: %s", name, validationMessage(err))
	}

	return pkgerrors.WithRecoverTyped("tool "+name, func() (any, error) {
		return tool.Handler(ctx, normalized)
	})
}

func (r *Registry) report(name string, started time.Time, err error) {
	duration := time.Since(started)
	props := telemetry.ErrorProperties(err)
	props["tool"] = name
	props["duration_ms"] = duration.Milliseconds()
	r.tracker.Track(telemetry.EventToolCalled, props)

	if err != nil {
		r.logger.Warn("tool call failed", "tool", name, "duration", duration, "error", err)
		return
	}
	r.logger.Debug("tool call finished", "tool", name, "duration", duration)
}

func describe(def mcp.Tool) Descriptor {
	properties := def.InputSchema.Properties
	if properties == nil {
		properties = map[string]any{}
	}
	required := def.InputSchema.Required
	if required == nil {
		required = []string{}
	}
	return Descriptor{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema for %s: %w", name, err)
	}

	url := "storepulse://tools/" + name + ".json"
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add schema for %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for %s: %w", name, err)
	}
	return compiled, nil
}

// normalizeArguments round-trips args through JSON so the validator and the
// handlers see plain JSON values with json.Number numbers.
func normalizeArguments(args map[string]any) (Arguments, error) {
	if len(args) == 0 {
		return Arguments{}, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func validationMessage(err error) string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	leaf := verr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	if leaf.InstanceLocation == "" {
		return leaf.Message
	}
	return leaf.InstanceLocation + ": " + leaf.Message
}
