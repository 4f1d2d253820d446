package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment does not leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		EnvOpenAIKey, EnvAzureKey, EnvAzureEndpoint, EnvAzureDeployment,
		EnvCatalog, EnvPolicy, EnvModel, EnvBaseURL, EnvApplyActions,
		EnvLogLevel, EnvLedgerDSN,
	} {
		t.Setenv(env, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "menu.json", cfg.Catalog)
	assert.Equal(t, "gpt-4", cfg.Model)
	assert.Equal(t, 1000, cfg.MaxTokens)
	assert.Zero(t, cfg.Temperature)
	assert.False(t, cfg.ApplyActions)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "maitred.yaml", `
catalog: carte.yaml
policy: keyword
model: gpt-4o-mini
max_tokens: 256
temperature: 0.2
apply_actions: true
metrics:
  enabled: true
  addr: 127.0.0.1:9100
ledger:
  driver: postgres
  dsn: postgres://localhost/maitred
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "carte.yaml", cfg.Catalog)
	assert.Equal(t, "keyword", cfg.Policy)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 256, cfg.MaxTokens)
	assert.Equal(t, 0.2, cfg.Temperature)
	assert.True(t, cfg.ApplyActions)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Equal(t, "postgres", cfg.Ledger.Driver)
	// unset keys keep their defaults
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "maitred.yaml", "policy: keyword\nmodel: gpt-4o\n")
	t.Setenv(EnvPolicy, "structured")
	t.Setenv(EnvApplyActions, "true")
	t.Setenv(EnvOpenAIKey, "sk-test")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "structured", cfg.Policy)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.True(t, cfg.ApplyActions)
	assert.Equal(t, "sk-test", cfg.OpenAIKey)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, even when empty
	os.Unsetenv(EnvOpenAIKey)
	os.Unsetenv(EnvCatalog)
	t.Cleanup(func() {
		os.Unsetenv(EnvOpenAIKey)
		os.Unsetenv(EnvCatalog)
	})
	envFile := writeFile(t, ".env", "OPENAI_API_KEY=sk-from-file\nMAITRED_CATALOG=house.json\n")

	cfg, err := Load("", envFile)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-file", cfg.OpenAIKey)
	assert.Equal(t, "house.json", cfg.Catalog)
	assert.NoError(t, cfg.RequireCredential())
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "policy: [keyword"), "")
	assert.Error(t, err)

	t.Setenv(EnvApplyActions, "sometimes")
	_, err = Load("", "")
	assert.Error(t, err)
}

func TestRequireCredential(t *testing.T) {
	cfg := Default()

	err := cfg.RequireCredential()
	assert.True(t, errors.Is(err, ErrMissingCredential))
	assert.Equal(t, EnvOpenAIKey, cfg.CredentialEnv())

	cfg.Provider = ProviderAzure
	cfg.OpenAIKey = "sk-openai"
	assert.Equal(t, EnvAzureKey, cfg.CredentialEnv())
	assert.ErrorIs(t, cfg.RequireCredential(), ErrMissingCredential)

	cfg.Azure.APIKey = "azure-key"
	assert.NoError(t, cfg.RequireCredential())
	assert.Equal(t, "azure-key", cfg.Credential())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   int
	}{
		{"valid", func(c *Config) {}, 0},
		{"no catalog", func(c *Config) { c.Catalog = "" }, 1},
		{"unknown policy", func(c *Config) { c.Policy = "psychic" }, 1},
		{"unknown provider", func(c *Config) { c.Provider = "carrier-pigeon" }, 1},
		{"no model", func(c *Config) { c.Model = "" }, 1},
		{"bad limits", func(c *Config) { c.MaxTokens = 0; c.Temperature = 3 }, 2},
		{"azure without deployment", func(c *Config) { c.Provider = ProviderAzure }, 1},
		{"azure complete", func(c *Config) {
			c.Provider = ProviderAzure
			c.Model = ""
			c.Azure.Endpoint = "https://example.openai.azure.com"
			c.Azure.Deployment = "gpt-4"
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Len(t, cfg.Validate(), tt.want)
		})
	}
}
