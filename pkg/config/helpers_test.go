package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	t.Run("Should keep the last four characters", func(t *testing.T) {
		assert.Equal(t, "********cdef", MaskSecret("sk_live_abcdef"))
	})

	t.Run("Should fully hide short secrets", func(t *testing.T) {
		assert.Equal(t, "********", MaskSecret("abc"))
		assert.Equal(t, "", MaskSecret(""))
	})
}

func TestRedacted(t *testing.T) {
	t.Run("Should mask every secret without touching the original", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Server.AuthToken = "token-123456"
		cfg.Medusa.APIKey = "sk_1234567890"
		cfg.Postgres.DSN = "postgres://medusa:s3cret@db:5432/medusa?sslmode=disable"
		cfg.Telemetry.PostHogAPIKey = "phc_abcdefgh"

		redacted := cfg.Redacted()

		assert.Equal(t, "********3456", redacted.Server.AuthToken)
		assert.Equal(t, "********7890", redacted.Medusa.APIKey)
		assert.Equal(t, "postgres://medusa:********@db:5432/medusa?sslmode=disable", redacted.Postgres.DSN)
		assert.Equal(t, "********efgh", redacted.Telemetry.PostHogAPIKey)
		assert.Equal(t, "token-123456", cfg.Server.AuthToken)
	})

	t.Run("Should leave DSNs without passwords unchanged", func(t *testing.T) {
		assert.Equal(t, "postgres://db/medusa", maskDSN("postgres://db/medusa"))
		assert.Equal(t, "host=db user=medusa", maskDSN("host=db user=medusa"))
	})
}
