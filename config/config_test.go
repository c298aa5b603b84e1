package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/ghostbot/config"
	"github.com/alejandrodnm/ghostbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := config.Load("config.example.yaml")
	require.NoError(t, err)

	ec, err := cfg.EngineConfig()
	require.NoError(t, err)
	require.NoError(t, ec.Validate())

	assert.Equal(t, "ghost_ai", ec.Bot)
	assert.Equal(t, domain.ContractOver, ec.Entry.ContractType)
	assert.Equal(t, domain.ContractUnder, ec.Recovery.ContractType)
	assert.Equal(t, domain.OpLessEqual, ec.Entry.DigitOperator)
	assert.Equal(t, 20*time.Second, ec.LockTTL)
	assert.Equal(t, time.Second, ec.ScanCooldown)
	assert.Contains(t, cfg.Bot.Symbols, "1HZ100V")
}

func TestLoad_PartialFileKeepsRuleDefaults(t *testing.T) {
	path := writeConfig(t, `
money:
  initial_stake: 5
entry:
  percent_threshold: 80
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	// lo que no aparece en el YAML conserva los valores de fábrica
	assert.True(t, cfg.Entry.UseDigitCheck)
	assert.Equal(t, 4, cfg.Entry.DigitWindow)
	assert.Equal(t, 80.0, cfg.Entry.PercentThreshold)
	assert.Equal(t, 5.0, cfg.Money.InitialStake)
	assert.Equal(t, 95.0, cfg.Money.PayoutPercent)
	assert.Equal(t, "ghostbot.db", cfg.Storage.DSN)
	assert.Equal(t, 20, cfg.Engine.ShortWindow)
	assert.Len(t, cfg.Bot.Symbols, 5)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GHOSTBOT_DB", ":memory:")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("METRICS_ADDR", ":9999")

	cfg, err := config.Load(writeConfig(t, "log:\n  level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.Load(writeConfig(t, "money: [1, 2"))
	assert.Error(t, err)
}

func TestEngineConfig_UnknownContractType(t *testing.T) {
	cfg := config.Default()
	cfg.Recovery.ContractType = "SIDEWAYS"

	_, err := cfg.EngineConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recovery")
}

func TestEngineConfig_ZeroStakeFailsValidation(t *testing.T) {
	cfg := config.Default()
	cfg.Money.InitialStake = 0

	ec, err := cfg.EngineConfig()
	require.NoError(t, err)

	var cerr *domain.ConfigError
	require.ErrorAs(t, ec.Validate(), &cerr)
	assert.Equal(t, "money", cerr.Field)
}
