package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.AppConfig.APIPort)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAIConfig.Model)
	assert.Equal(t, 60*time.Second, cfg.OpenAIConfig.Timeout)
	assert.Equal(t, 200, cfg.OpenAIConfig.SummaryMaxTokens)
	assert.Equal(t, "2022-06-28", cfg.NotionConfig.Version)
	assert.Equal(t, "imap.gmail.com", cfg.MailConfig.ImapServer)
	assert.Equal(t, 993, cfg.MailConfig.ImapPort)
	assert.True(t, cfg.MailConfig.ImapTLS)
	assert.Equal(t, "@every 300s", cfg.PollerConfig.CronSchedulePoll)
	assert.Equal(t, 10, cfg.PollerConfig.MaxResults)
	assert.Equal(t, []string{"notion"}, cfg.AppConfig.Sinks)
	assert.False(t, cfg.DatabaseConfig.Enabled())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("TEST_MODE", "true")
	t.Setenv("SINKS", "console,archive")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("OPENAI_API_KEY", "sk-test-key")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.AppConfig.TestMode)
	assert.Equal(t, []string{"console", "archive"}, cfg.AppConfig.Sinks)
	assert.Equal(t, 5*time.Second, cfg.OpenAIConfig.Timeout)
	assert.True(t, cfg.DatabaseConfig.Enabled())
	assert.Contains(t, cfg.Secrets(), "sk-test-key")
}

func TestLoadFromEnv_InvalidValue(t *testing.T) {
	t.Setenv("IMAP_PORT", "not-a-number")

	_, err := LoadFromEnv()
	assert.Error(t, err)
}
