package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read after the .env file is loaded
const (
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvAzureKey        = "AZURE_OPENAI_API_KEY"
	EnvAzureEndpoint   = "AZURE_OPENAI_ENDPOINT"
	EnvAzureDeployment = "AZURE_OPENAI_DEPLOYMENT_NAME"
	EnvCatalog         = "MAITRED_CATALOG"
	EnvPolicy          = "MAITRED_POLICY"
	EnvModel           = "MAITRED_MODEL"
	EnvBaseURL         = "MAITRED_BASE_URL"
	EnvApplyActions    = "MAITRED_APPLY_ACTIONS"
	EnvLogLevel        = "MAITRED_LOG_LEVEL"
	EnvLedgerDSN       = "MAITRED_LEDGER_DSN"
)

// Provider names
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
)

// ErrMissingCredential is returned when the selected provider has no API key
var ErrMissingCredential = errors.New("missing credential")

// Config represents the application configuration
type Config struct {
	Catalog      string  `yaml:"catalog"`
	Policy       string  `yaml:"policy"`
	Provider     string  `yaml:"provider"`
	Model        string  `yaml:"model"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	BaseURL      string  `yaml:"base_url"`
	OpenAIKey    string  `yaml:"openai_key"`
	ApplyActions bool    `yaml:"apply_actions"`
	LogLevel     string  `yaml:"log_level"`
	Azure        struct {
		Endpoint   string `yaml:"endpoint"`
		Deployment string `yaml:"deployment"`
		APIKey     string `yaml:"api_key"`
	} `yaml:"azure"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
	Ledger struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"ledger"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	cfg := &Config{
		Catalog:     "menu.json",
		Policy:      "structured",
		Provider:    ProviderOpenAI,
		Model:       "gpt-4",
		MaxTokens:   1000,
		Temperature: 0,
		LogLevel:    "info",
	}
	cfg.Metrics.Addr = ":9090"
	cfg.Ledger.Driver = "sqlite3"
	return cfg
}

// Load builds the configuration from defaults, the optional YAML file at path,
// the optional env file and finally the process environment
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.OpenAIKey, EnvOpenAIKey)
	setString(&c.Azure.APIKey, EnvAzureKey)
	setString(&c.Azure.Endpoint, EnvAzureEndpoint)
	setString(&c.Azure.Deployment, EnvAzureDeployment)
	setString(&c.Catalog, EnvCatalog)
	setString(&c.Policy, EnvPolicy)
	setString(&c.Model, EnvModel)
	setString(&c.BaseURL, EnvBaseURL)
	setString(&c.LogLevel, EnvLogLevel)
	setString(&c.Ledger.DSN, EnvLedgerDSN)

	if v := os.Getenv(EnvApplyActions); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvApplyActions, err)
		}
		c.ApplyActions = b
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// CredentialEnv names the variable holding the selected provider's key
func (c *Config) CredentialEnv() string {
	if c.Provider == ProviderAzure {
		return EnvAzureKey
	}
	return EnvOpenAIKey
}

// Credential returns the API key for the selected provider
func (c *Config) Credential() string {
	if c.Provider == ProviderAzure {
		return c.Azure.APIKey
	}
	return c.OpenAIKey
}

// RequireCredential fails with ErrMissingCredential when no key is configured
func (c *Config) RequireCredential() error {
	if c.Credential() == "" {
		return fmt.Errorf("%w: %s", ErrMissingCredential, c.CredentialEnv())
	}
	return nil
}

// Validate checks the values that are not credentials
func (c *Config) Validate() []string {
	var errs []string

	if c.Catalog == "" {
		errs = append(errs, "catalog is required")
	}
	if c.Policy != "structured" && c.Policy != "keyword" {
		errs = append(errs, fmt.Sprintf("unknown policy: %q", c.Policy))
	}
	if c.Provider != ProviderOpenAI && c.Provider != ProviderAzure {
		errs = append(errs, fmt.Sprintf("unknown provider: %q", c.Provider))
	}
	if c.Model == "" && c.Provider == ProviderOpenAI {
		errs = append(errs, "model is required")
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, "max_tokens must be greater than 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, "temperature must be between 0 and 2")
	}
	if c.Provider == ProviderAzure && (c.Azure.Endpoint == "" || c.Azure.Deployment == "") {
		errs = append(errs, "azure provider needs azure.endpoint and azure.deployment")
	}

	return errs
}
