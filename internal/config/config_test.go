package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100000.0, cfg.Broker.InitialCash)
	assert.Equal(t, 0.001, cfg.Broker.Commission)
	assert.Equal(t, 0, cfg.Broker.SlippageBPS)
	assert.Equal(t, 0.10, cfg.Broker.SizingPct)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STRATLAB_DATA_DIR", "/tmp/stratlab-test")
	t.Setenv("PORT", "9090")
	t.Setenv("INITIAL_CASH", "250000")
	t.Setenv("SLIPPAGE_BPS", "25")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/stratlab-test", cfg.DataDir)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 250000.0, cfg.Broker.InitialCash)
	assert.Equal(t, 25, cfg.Broker.SlippageBPS)
	assert.True(t, cfg.DevMode)
}

func TestLoad_MalformedEnvFallsBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("INITIAL_CASH", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 100000.0, cfg.Broker.InitialCash)
}

func TestLoad_ValidationFailures(t *testing.T) {
	t.Run("Bad port", func(t *testing.T) {
		t.Setenv("PORT", "70000")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("Negative cash", func(t *testing.T) {
		t.Setenv("INITIAL_CASH", "-5")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("Negative commission", func(t *testing.T) {
		t.Setenv("COMMISSION", "-0.001")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestPaths(t *testing.T) {
	t.Setenv("STRATLAB_DATA_DIR", "/tmp/stratlab-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/stratlab-test/history.db", cfg.DatabasePath("history"))
	assert.Equal(t, "/tmp/stratlab-test/outputs", cfg.OutputsDir())
}
