package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "booking-engine", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.IsProduction())
	assert.Positive(t, cfg.Booking.LockTimeout)
	assert.GreaterOrEqual(t, cfg.Booking.ReleaseRetries, 1)
	assert.Equal(t, "postgres", cfg.Booking.LedgerBackend)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	t.Run("default secret rejected in production", func(t *testing.T) {
		cfg := base()
		cfg.App.Environment = "production"
		assert.Error(t, cfg.Validate())
	})

	t.Run("custom secret accepted in production", func(t *testing.T) {
		cfg := base()
		cfg.App.Environment = "production"
		cfg.JWT.Secret = "a-real-secret"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad port rejected", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero lock timeout rejected", func(t *testing.T) {
		cfg := base()
		cfg.Booking.LockTimeout = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("ledger backend", func(t *testing.T) {
		cfg := base()
		cfg.Booking.LedgerBackend = "memory"
		assert.NoError(t, cfg.Validate())

		cfg.Booking.LedgerBackend = "etcd"
		assert.Error(t, cfg.Validate())
	})
}
