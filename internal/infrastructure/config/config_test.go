package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, "stockcore", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 3, cfg.Ledger.ConflictRetries)
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
}

func TestValidate(t *testing.T) {
	t.Run("defaults pass", func(t *testing.T) {
		cfg := defaultConfig()
		assert.NoError(t, cfg.validate())
	})

	t.Run("idle conns cannot exceed open conns", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Database.MaxIdleConns = 50

		err := cfg.validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
	})

	t.Run("conflict retries must be positive", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Ledger.ConflictRetries = -1

		assert.Error(t, cfg.validate())
	})

	t.Run("sampling ratio bounds", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Telemetry.SamplingRatio = 1.5

		assert.Error(t, cfg.validate())
	})

	t.Run("production requires database password and TLS", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.App.Env = "production"

		err := cfg.validate()
		require.Error(t, err)

		cfg.Database.Password = "secret"
		err = cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sslmode")

		cfg.Database.SSLMode = "require"
		assert.NoError(t, cfg.validate())
	})

	t.Run("production rejects wildcard CORS", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.App.Env = "production"
		cfg.Database.Password = "secret"
		cfg.Database.SSLMode = "require"
		cfg.HTTP.CORSAllowOrigins = []string{"*"}

		assert.Error(t, cfg.validate())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "stockcore",
		Password: "p@ss word",
		DBName:   "ledger",
		SSLMode:  "require",
	}

	dsn := cfg.DSN()

	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// Credentials with special characters must be escaped.
	assert.NotContains(t, dsn, "p@ss word")
}
