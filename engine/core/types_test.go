package core_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/compozy/storepulse/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateRange(t *testing.T) {
	t.Run("Should return an open range when no bounds are given", func(t *testing.T) {
		rng, err := core.ParseDateRange("", "")
		require.NoError(t, err)
		assert.Nil(t, rng.Start)
		assert.Nil(t, rng.End)
		assert.True(t, rng.Contains(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("Should extend a date-only end to the end of the day", func(t *testing.T) {
		rng, err := core.ParseDateRange("2024-03-01", "2024-03-05")
		require.NoError(t, err)
		require.NotNil(t, rng.End)
		assert.True(t, rng.Contains(time.Date(2024, 3, 5, 23, 59, 59, 0, time.UTC)))
		assert.False(t, rng.Contains(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)))
		assert.True(t, rng.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
		assert.False(t, rng.Contains(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)))
	})

	t.Run("Should keep an RFC 3339 end as given", func(t *testing.T) {
		rng, err := core.ParseDateRange("", "2024-03-05T12:00:00Z")
		require.NoError(t, err)
		assert.False(t, rng.Contains(time.Date(2024, 3, 5, 12, 0, 1, 0, time.UTC)))
	})

	t.Run("Should reject malformed dates with INVALID_INPUT", func(t *testing.T) {
		_, err := core.ParseDateRange("03/05/2024", "")
		require.Error(t, err)
		assert.Equal(t, core.ErrorCodeInvalidInput, core.CodeOf(err))
		assert.Contains(t, core.MessageOf(err), "03/05/2024")
	})

	t.Run("Should flag an inverted range as empty", func(t *testing.T) {
		rng, err := core.ParseDateRange("2024-03-05", "2024-03-04")
		require.NoError(t, err)
		assert.True(t, rng.IsEmpty())
	})

	t.Run("Should not flag a single day as empty", func(t *testing.T) {
		rng, err := core.ParseDateRange("2024-03-05", "2024-03-05")
		require.NoError(t, err)
		assert.False(t, rng.IsEmpty())
		assert.True(t, rng.IsBounded())
	})
}

func TestError(t *testing.T) {
	t.Run("Should match by code through wrapping", func(t *testing.T) {
		base := core.NewError(errors.New("boom"), core.ErrorCodeQueryFailed, map[string]any{"resource": "orders"})
		wrapped := fmt.Errorf("fetch: %w", base)

		assert.True(t, core.HasCode(wrapped, core.ErrorCodeQueryFailed))
		assert.False(t, core.HasCode(wrapped, core.ErrorCodeNotFound))
		assert.Equal(t, core.ErrorCodeQueryFailed, core.CodeOf(wrapped))
		assert.Equal(t, "boom", core.MessageOf(wrapped))
		assert.Contains(t, base.Error(), "[QUERY_FAILED] boom")
	})

	t.Run("Should return plain messages for foreign errors", func(t *testing.T) {
		err := errors.New("plain")
		assert.Equal(t, core.ErrorCode(""), core.CodeOf(err))
		assert.Equal(t, "plain", core.MessageOf(err))
		assert.Equal(t, "", core.MessageOf(nil))
	})
}
