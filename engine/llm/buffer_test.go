package llm

import (
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragment(index *int, id, name, args string) openai.ToolCall {
	return openai.ToolCall{
		Index:    index,
		ID:       id,
		Function: openai.FunctionCall{Name: name, Arguments: args},
	}
}

func TestToolCallBuffer(t *testing.T) {
	zero, one := 0, 1

	t.Run("Should join indexed fragments per call", func(t *testing.T) {
		var b toolCallBuffer
		b.add(fragment(&zero, "call_a", "calculate_aov", `{"start_date":`))
		b.add(fragment(&one, "call_b", "get_order", `{"id":"order_1"}`))
		b.add(fragment(&zero, "", "", `"2024-01-01"}`))

		calls := b.list()

		require.Len(t, calls, 2)
		assert.Equal(t, `{"start_date":"2024-01-01"}`, calls[0].Function.Arguments)
		assert.Equal(t, "get_order", calls[1].Function.Name)
	})

	t.Run("Should continue the last call for unindexed fragments", func(t *testing.T) {
		var b toolCallBuffer
		b.add(fragment(nil, "call_a", "calculate_aov", `{"start_date":`))
		b.add(fragment(nil, "", "", `"2024-01-01"}`))

		calls := b.list()

		require.Len(t, calls, 1)
		assert.Equal(t, "call_a", calls[0].ID)
		assert.Equal(t, `{"start_date":"2024-01-01"}`, calls[0].Function.Arguments)
	})

	t.Run("Should start a new call when an unindexed fragment has a new ID", func(t *testing.T) {
		var b toolCallBuffer
		b.add(fragment(nil, "call_a", "calculate_aov", `{}`))
		b.add(fragment(nil, "call_b", "get_order", `{"id":"order_1"}`))

		calls := b.list()

		require.Len(t, calls, 2)
		assert.Equal(t, "get_order", calls[1].Function.Name)
	})

	t.Run("Should keep unindexed calls apart from later indexed ones", func(t *testing.T) {
		var b toolCallBuffer
		b.add(fragment(nil, "", "calculate_aov", `{}`))
		b.add(fragment(&zero, "call_b", "get_order", `{"id":"order_1"}`))

		calls := b.list()

		require.Len(t, calls, 2)
		assert.Equal(t, "calculate_aov", calls[0].Function.Name)
		assert.Equal(t, `{}`, calls[0].Function.Arguments)
		assert.Equal(t, "call_0", calls[0].ID)
		assert.Equal(t, "get_order", calls[1].Function.Name)
	})
}
