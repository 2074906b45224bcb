package tools_test

import (
	"context"
	"sync"
	"testing"

	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/engine/tools"
	"github.com/compozy/storepulse/pkg/logger"
	"github.com/compozy/storepulse/pkg/telemetry"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Disable()
	m.Run()
}

type recordingTracker struct {
	mu     sync.Mutex
	events []map[string]any
}

func (r *recordingTracker) Track(event string, properties map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	props := map[string]any{"event": event}
	for k, v := range properties {
		props[k] = v
	}
	r.events = append(r.events, props)
}

func (r *recordingTracker) Close() error { return nil }

var _ telemetry.Tracker = (*recordingTracker)(nil)

func echoTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append([]mcp.ToolOption{mcp.WithDescription("echo")}, opts...)...)
}

func echoHandler(_ context.Context, args tools.Arguments) (any, error) {
	return map[string]any(args), nil
}

func TestRegistry_Register(t *testing.T) {
	t.Run("Should keep registration order in definitions", func(t *testing.T) {
		r := tools.NewRegistry()
		require.NoError(t, r.Register(echoTool("b"), echoHandler))
		require.NoError(t, r.Register(echoTool("a", mcp.WithString("id", mcp.Required())), echoHandler))

		defs := r.Definitions()
		require.Len(t, defs, 2)
		assert.Equal(t, "b", defs[0].Name)
		assert.Equal(t, "a", defs[1].Name)
		assert.Equal(t, "object", defs[1].InputSchema["type"])
		assert.Contains(t, defs[1].InputSchema["properties"], "id")
		assert.Equal(t, []string{"id"}, defs[1].InputSchema["required"])
		assert.Equal(t, []string{}, defs[0].InputSchema["required"])
	})

	t.Run("Should reject duplicate names", func(t *testing.T) {
		r := tools.NewRegistry()
		require.NoError(t, r.Register(echoTool("echo"), echoHandler))
		err := r.Register(echoTool("echo"), echoHandler)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("Should reject tools without a handler", func(t *testing.T) {
		r := tools.NewRegistry()
		require.Error(t, r.Register(echoTool("echo"), nil))
	})
}

func TestRegistry_Call(t *testing.T) {
	ctx := context.Background()

	t.Run("Should fail unknown tools with UNKNOWN_TOOL", func(t *testing.T) {
		r := tools.NewRegistry()

		_, err := r.Call(ctx, "drop_tables", nil)

		require.Error(t, err)
		assert.Equal(t, core.ErrorCodeUnknownTool, core.CodeOf(err))
		assert.Equal(t, "Unknown tool: drop_tables", core.MessageOf(err))
	})

	t.Run("Should validate arguments against the schema", func(t *testing.T) {
		r := tools.NewRegistry()
		require.NoError(t, r.Register(echoTool("lookup",
			mcp.WithString("id", mcp.Required()),
			mcp.WithNumber("limit", mcp.Min(1), mcp.Max(10)),
			mcp.WithString("group_by", mcp.Enum("day", "week")),
		), echoHandler))

		cases := []map[string]any{
			{},
			{"id": 42},
			{"id": "x", "limit": "ten"},
			{"id": "x", "limit": 11},
			{"id": "x", "group_by": "year"},
		}
		for _, args := range cases {
			_, err := r.Call(ctx, "lookup", args)
			require.Error(t, err, "args %v", args)
			assert.Equal(t, core.ErrorCodeInvalidInput, core.CodeOf(err), "args %v", args)
		}
	})

	t.Run("Should hand JSON normalized arguments to the handler", func(t *testing.T) {
		r := tools.NewRegistry()
		var got tools.Arguments
		require.NoError(t, r.Register(echoTool("lookup", mcp.WithNumber("limit")),
			func(_ context.Context, args tools.Arguments) (any, error) {
				got = args
				return "ok", nil
			}))

		result, err := r.Call(ctx, "lookup", map[string]any{"limit": 5})

		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		limit, err := got.Int("limit", 0)
		require.NoError(t, err)
		assert.Equal(t, 5, limit)
	})

	t.Run("Should recover handler panics", func(t *testing.T) {
		r := tools.NewRegistry()
		require.NoError(t, r.Register(echoTool("boom"), func(context.Context, tools.Arguments) (any, error) {
			panic("nil map")
		}))

		_, err := r.Call(ctx, "boom", nil)

		require.Error(t, err)
		assert.Equal(t, core.ErrorCodePanicRecovered, core.CodeOf(err))
	})

	t.Run("Should report every call to the tracker", func(t *testing.T) {
		tracker := &recordingTracker{}
		r := tools.NewRegistry(tools.WithTracker(tracker))
		require.NoError(t, r.Register(echoTool("echo"), echoHandler))

		_, err := r.Call(ctx, "echo", nil)
		require.NoError(t, err)
		_, err = r.Call(ctx, "missing", nil)
		require.Error(t, err)

		require.Len(t, tracker.events, 2)
		assert.Equal(t, telemetry.EventToolCalled, tracker.events[0]["event"])
		assert.Equal(t, "echo", tracker.events[0]["tool"])
		assert.Equal(t, true, tracker.events[0]["success"])
		assert.Equal(t, false, tracker.events[1]["success"])
		assert.Equal(t, string(core.ErrorCodeUnknownTool), tracker.events[1]["error_code"])
	})
}

func TestArguments_Int(t *testing.T) {
	t.Run("Should reject fractional numbers", func(t *testing.T) {
		_, err := tools.Arguments{"limit": 2.5}.Int("limit", 0)
		require.Error(t, err)
		assert.Equal(t, core.ErrorCodeInvalidInput, core.CodeOf(err))
	})

	t.Run("Should fall back to the default when absent", func(t *testing.T) {
		v, err := tools.Arguments{}.Int("limit", 7)
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})
}
