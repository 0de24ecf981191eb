package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 30*time.Second, cfg.NarratorTimeout)
	assert.True(t, cfg.EnableMetrics)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("STORE_BACKEND", "dynamodb")
	t.Setenv("TABLE_NAME", "lorekeeper-prod")
	t.Setenv("NARRATOR_TIMEOUT_SECONDS", "45")
	t.Setenv("ENABLE_TRACING", "true")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "dynamodb", cfg.StoreBackend)
	assert.Equal(t, "lorekeeper-prod", cfg.DynamoDBTable)
	assert.Equal(t, 45*time.Second, cfg.NarratorTimeout)
	assert.True(t, cfg.EnableTracing)
}

func TestLoadConfig_FileOverlayThenEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "log_level: debug\naws_region: eu-west-1\ndomain:\n  graph_max_age_hours: 6\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("AWS_REGION", "us-east-1")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "us-east-1", cfg.AWSRegion, "environment beats the file")
	assert.Equal(t, 6*time.Hour, cfg.DomainConfig().GraphMaxAge)
}

func TestLoadConfig_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")

	_, err := LoadConfig()

	assert.Error(t, err)
}

func TestDomainConfig_ZeroOverridesKeepDefaults(t *testing.T) {
	cfg := &Config{}
	domain := cfg.DomainConfig()

	assert.Equal(t, 24*time.Hour, domain.GraphMaxAge)
	assert.Equal(t, 3.0, domain.VoidGapThresholdDays)
	assert.Equal(t, 0.7, domain.SingletonSurvivalScore)
	assert.Equal(t, 180.0, domain.PeriodGapDays)
}
