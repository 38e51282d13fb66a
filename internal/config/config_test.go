package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.History.Limit)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 9.0, cfg.Pipeline.ReviseThreshold)
	require.NoError(t, cfg.Validate())
}

func TestLoad_OverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily.yaml")
	content := `
history:
  limit: 30
retry:
  max_attempts: 5
  short_backoff: 1s
llm:
  model: qwen-max
timezone: Asia/Shanghai
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.History.Limit)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.ShortBackoff())
	assert.Equal(t, 20*time.Second, cfg.LongBackoff())
	assert.Equal(t, "qwen-max", cfg.LLM.Model)
	assert.Equal(t, DefaultHistoryFile, cfg.Paths.History)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history: [unclosed"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero limit", func(c *Config) { c.History.Limit = 0 }},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"bad duration", func(c *Config) { c.Retry.LongBackoff = "soon" }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestApplyEnv_PrimaryThenFallback(t *testing.T) {
	t.Run("primary names win", func(t *testing.T) {
		env := map[string]string{
			"DASHSCOPE_API_KEY": "ds-key",
			"OPENAI_API_KEY":    "oa-key",
			"DASHSCOPE_MODEL":   "qwen-turbo",
		}
		cfg := Default()
		cfg.ApplyEnv(func(k string) string { return env[k] })
		assert.Equal(t, "ds-key", cfg.LLM.APIKey)
		assert.Equal(t, "qwen-turbo", cfg.LLM.Model)
	})

	t.Run("secondary names fill gaps", func(t *testing.T) {
		env := map[string]string{
			"OPENAI_API_KEY":  "oa-key",
			"OPENAI_BASE_URL": "https://api.openai.com/v1",
		}
		cfg := Default()
		cfg.ApplyEnv(func(k string) string { return env[k] })
		assert.Equal(t, "oa-key", cfg.LLM.APIKey)
		assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
		assert.Equal(t, "qwen-plus", cfg.LLM.Model)
	})

	t.Run("nothing set", func(t *testing.T) {
		cfg := Default()
		cfg.ApplyEnv(func(string) string { return "" })
		assert.ErrorIs(t, cfg.RequireCredentials(), ErrMissingCredential)
	})
}

func TestPaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.Root = "/srv/site"
	assert.Equal(t, "/srv/site/data/ai/wealth/finance-daily.json", cfg.HistoryPath())
	assert.Equal(t, "/srv/site/data/ai/wealth/archive", cfg.ArchivePath())

	cfg.Paths.Catalog = "/etc/topics.json"
	assert.Equal(t, "/etc/topics.json", cfg.CatalogPath())
}

func TestParseDotEnv(t *testing.T) {
	input := `# comment
DASHSCOPE_API_KEY="abc123"
export OPENAI_MODEL='gpt-4o-mini'

EMPTY=
 SPACED = value with spaces
MULTI="line one\nline two"
`
	vars, err := ParseDotEnv(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"DASHSCOPE_API_KEY": "abc123",
		"OPENAI_MODEL":      "gpt-4o-mini",
		"EMPTY":             "",
		"SPACED":            "value with spaces",
		"MULTI":             "line one\nline two",
	}, vars)
}

func TestInitEnv_LoadsOnceAndKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("DAILY_TEST_FROM_FILE=file\nDASHSCOPE_MODEL=from-file\n"), 0644))

	t.Setenv("DASHSCOPE_MODEL", "from-env")
	t.Setenv("DAILY_TEST_FROM_FILE", "")
	os.Unsetenv("DAILY_TEST_FROM_FILE")

	cfg := Default()
	require.NoError(t, InitEnv(cfg, dotenv))
	assert.True(t, cfg.EnvLoaded)
	assert.Equal(t, "file", os.Getenv("DAILY_TEST_FROM_FILE"))
	assert.Equal(t, "from-env", cfg.LLM.Model)

	// Second call is a no-op even if the environment changed.
	t.Setenv("DASHSCOPE_MODEL", "changed")
	require.NoError(t, InitEnv(cfg, dotenv))
	assert.Equal(t, "from-env", cfg.LLM.Model)
}

func TestInitEnv_MissingDotEnv(t *testing.T) {
	cfg := Default()
	require.NoError(t, InitEnv(cfg, filepath.Join(t.TempDir(), ".env")))
	assert.True(t, cfg.EnvLoaded)
}
