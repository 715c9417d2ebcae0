// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chatdsj/chatdsj/lib/sealed"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Testing enables the test-completion endpoint and relaxes secret checks.
	Testing Environment = "testing"
	// Production is for production deployments. Secrets are required.
	Production Environment = "production"
)

// ConfigEnvVar names the environment variable [Load] reads the config
// file path from.
const ConfigEnvVar = "CHATDSJ_CONFIG"

// Config is the master configuration for the ChatDSJ service.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// Slack configures the Web API client and the Events API webhook.
	Slack SlackConfig `yaml:"slack"`

	// LLM configures the completion client and its providers.
	LLM LLMConfig `yaml:"llm"`

	// History bounds how much channel history is fetched per mention.
	History HistoryConfig `yaml:"history"`

	// Memory configures the user memory database.
	Memory MemoryConfig `yaml:"memory"`

	// HTTP configures the public HTTP listener.
	HTTP HTTPConfig `yaml:"http"`

	// Admin configures the operator Unix socket.
	Admin AdminConfig `yaml:"admin"`

	// Logging configures the slog handler built by the binaries.
	Logging LoggingConfig `yaml:"logging"`

	// Dispatcher bounds concurrent mention processing.
	Dispatcher DispatcherConfig `yaml:"dispatcher"`

	// Credentials points at an optional age-encrypted secrets file.
	Credentials CredentialsConfig `yaml:"credentials"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Testing     *ConfigOverrides `yaml:"testing,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Logging    *LoggingConfig    `yaml:"logging,omitempty"`
	HTTP       *HTTPConfig       `yaml:"http,omitempty"`
	Dispatcher *DispatcherConfig `yaml:"dispatcher,omitempty"`
	LLM        *LLMOverrides     `yaml:"llm,omitempty"`
}

// LLMOverrides is the subset of [LLMConfig] that environments may change.
type LLMOverrides struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

// SlackConfig configures the Slack integration.
type SlackConfig struct {
	// BotToken is the xoxb- token used for Web API calls.
	BotToken string `yaml:"bot_token"`

	// SigningSecret verifies X-Slack-Signature on incoming events.
	SigningSecret string `yaml:"signing_secret"`

	// BotUserID is discovered with auth.test at startup when empty.
	BotUserID string `yaml:"bot_user_id"`

	// BaseURL is the Web API root. Default: https://slack.com/api
	BaseURL string `yaml:"base_url"`

	// RequestsPerSecond and Burst configure the client-side rate limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	// ReplayWindow bounds how old a signed request timestamp may be.
	ReplayWindow time.Duration `yaml:"replay_window"`
}

// LLMConfig configures the completion client.
type LLMConfig struct {
	// Model is the completion model. Default: gpt-4o
	Model string `yaml:"model"`

	// SystemPrompt is the base instruction prepended to every request.
	SystemPrompt string `yaml:"system_prompt"`

	// MaxTokensResponse caps the reply length and is reserved out of the
	// context window when trimming the prompt.
	MaxTokensResponse int `yaml:"max_tokens_response"`

	Temperature float64 `yaml:"temperature"`

	// ContextWindow is the total token window. Zero selects the window
	// known for Model.
	ContextWindow int `yaml:"context_window"`

	// AttemptTimeout bounds a single provider call.
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// MaxRetries is the number of attempts per logical request.
	MaxRetries int `yaml:"max_retries"`

	// InitialDelay is the first backoff delay; it doubles per attempt.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// PriceTable is an optional JSONC file overriding per-1K prices.
	PriceTable string `yaml:"price_table"`

	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
}

// ProviderConfig configures one remote completion endpoint.
type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// HistoryConfig bounds history retrieval.
type HistoryConfig struct {
	// MaxMessages caps every history fetch. Default: 1000
	MaxMessages int `yaml:"max_messages"`
}

// MemoryConfig configures the SQLite user memory store.
type MemoryConfig struct {
	// Path is the database file. Default: ${CHATDSJ_STATE:-./state}/memory.db
	Path string `yaml:"path"`

	// PoolSize is the number of pooled connections. Default: 4
	PoolSize int `yaml:"pool_size"`
}

// HTTPConfig configures the public listener.
type HTTPConfig struct {
	// Address is the listen address. Default: :3000
	Address string `yaml:"address"`

	// ShutdownTimeout bounds graceful drain on shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AdminConfig configures the operator socket.
type AdminConfig struct {
	// SocketPath is the Unix socket path. Empty disables the socket.
	SocketPath string `yaml:"socket_path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level"`

	// Format is text or json. Default: text
	Format string `yaml:"format"`
}

// DispatcherConfig bounds mention processing.
type DispatcherConfig struct {
	// Workers is the number of mentions processed concurrently.
	Workers int `yaml:"workers"`

	// EventTimeout bounds the handling of one mention end to end.
	EventTimeout time.Duration `yaml:"event_timeout"`
}

// CredentialsConfig points at an age-encrypted credentials file. The
// decrypted payload is a YAML map keyed by the same names as the
// environment overrides (SLACK_BOT_TOKEN, OPENAI_API_KEY, ...).
type CredentialsConfig struct {
	File     string `yaml:"file"`
	Identity string `yaml:"identity"`
}

// DefaultSystemPrompt is the base instruction sent with every request.
const DefaultSystemPrompt = "You are ChatDSJ, a helpful AI assistant for the Slack workspace. " +
	"You help users with their questions and tasks."

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		Slack: SlackConfig{
			BaseURL:           "https://slack.com/api",
			RequestsPerSecond: 1,
			Burst:             5,
			ReplayWindow:      5 * time.Minute,
		},
		LLM: LLMConfig{
			Model:             "gpt-4o",
			SystemPrompt:      DefaultSystemPrompt,
			MaxTokensResponse: 1500,
			Temperature:       0.7,
			ContextWindow:     4096,
			AttemptTimeout:    30 * time.Second,
			MaxRetries:        3,
			InitialDelay:      time.Second,
			OpenAI:            ProviderConfig{BaseURL: "https://api.openai.com"},
			Anthropic:         ProviderConfig{BaseURL: "https://api.anthropic.com"},
		},
		History: HistoryConfig{
			MaxMessages: 1000,
		},
		Memory: MemoryConfig{
			Path:     "${CHATDSJ_STATE:-./state}/memory.db",
			PoolSize: 4,
		},
		HTTP: HTTPConfig{
			Address:         ":3000",
			ShutdownTimeout: 10 * time.Second,
		},
		Admin: AdminConfig{
			SocketPath: "${CHATDSJ_STATE:-./state}/admin.sock",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Dispatcher: DispatcherConfig{
			Workers:      8,
			EventTimeout: 2 * time.Minute,
		},
	}
}

// Load loads configuration from the CHATDSJ_CONFIG environment variable.
func Load() (*Config, error) {
	configPath := os.Getenv(ConfigEnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your chatdsj.yaml config file, or use --config flag", ConfigEnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, then applies
// the per-environment section and the environment variable overrides
// (variables win), and finally expands ${VAR:-default} patterns.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.finish(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvironment returns the defaults with environment variable
// overrides applied. Binaries use it when no config file is given.
func LoadEnvironment() (*Config, error) {
	cfg := Default()
	if err := cfg.finish(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish(lookup func(string) (string, bool)) error {
	if value, ok := lookup("ENVIRONMENT"); ok && value != "" {
		c.Environment = Environment(value)
	}
	c.Environment = Environment(strings.ToLower(string(c.Environment)))
	c.applyEnvironmentOverrides()
	if err := c.applyEnvironmentVariables(lookup); err != nil {
		return err
	}
	c.expandVariables()
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentVariables overlays the handful of settings that are
// conventionally supplied through the process environment: secrets and
// the few knobs operators flip without editing files.
func (c *Config) applyEnvironmentVariables(lookup func(string) (string, bool)) error {
	setString := func(name string, target *string) {
		if value, ok := lookup(name); ok && value != "" {
			*target = value
		}
	}

	setString("SLACK_BOT_TOKEN", &c.Slack.BotToken)
	setString("SLACK_SIGNING_SECRET", &c.Slack.SigningSecret)
	setString("SLACK_BOT_USER_ID", &c.Slack.BotUserID)
	setString("OPENAI_API_KEY", &c.LLM.OpenAI.APIKey)
	setString("ANTHROPIC_API_KEY", &c.LLM.Anthropic.APIKey)
	setString("OPENAI_MODEL", &c.LLM.Model)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("HTTP_ADDRESS", &c.HTTP.Address)

	c.Logging.Level = strings.ToLower(c.Logging.Level)

	if value, ok := lookup("MAX_TOKENS_RESPONSE"); ok && value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("MAX_TOKENS_RESPONSE: %w", err)
		}
		c.LLM.MaxTokensResponse = parsed
	}
	if value, ok := lookup("MAX_MESSAGE_HISTORY"); ok && value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("MAX_MESSAGE_HISTORY: %w", err)
		}
		c.History.MaxMessages = parsed
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Testing:
		overrides = c.Testing
	case Production:
		overrides = c.Production
		// Production defaults: structured output for log shipping.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Logging: &LoggingConfig{Format: "json"},
			}
		}
	}
	if overrides == nil {
		return
	}

	if overrides.Logging != nil {
		if overrides.Logging.Level != "" {
			c.Logging.Level = overrides.Logging.Level
		}
		if overrides.Logging.Format != "" {
			c.Logging.Format = overrides.Logging.Format
		}
	}

	if overrides.HTTP != nil {
		if overrides.HTTP.Address != "" {
			c.HTTP.Address = overrides.HTTP.Address
		}
		if overrides.HTTP.ShutdownTimeout != 0 {
			c.HTTP.ShutdownTimeout = overrides.HTTP.ShutdownTimeout
		}
	}

	if overrides.Dispatcher != nil {
		if overrides.Dispatcher.Workers != 0 {
			c.Dispatcher.Workers = overrides.Dispatcher.Workers
		}
		if overrides.Dispatcher.EventTimeout != 0 {
			c.Dispatcher.EventTimeout = overrides.Dispatcher.EventTimeout
		}
	}

	if overrides.LLM != nil {
		if overrides.LLM.Model != "" {
			c.LLM.Model = overrides.LLM.Model
		}
		if overrides.LLM.Temperature != 0 {
			c.LLM.Temperature = overrides.LLM.Temperature
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Memory.Path = expandVars(c.Memory.Path, vars)
	c.Admin.SocketPath = expandVars(c.Admin.SocketPath, vars)
	c.LLM.PriceTable = expandVars(c.LLM.PriceTable, vars)
	c.Credentials.File = expandVars(c.Credentials.File, vars)
	c.Credentials.Identity = expandVars(c.Credentials.Identity, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// LoadCredentials decrypts Credentials.File with Credentials.Identity
// and fills any secret that is still empty. Values already present
// (from the file or the environment) win. A config without a
// credentials file is left unchanged.
func (c *Config) LoadCredentials() error {
	if c.Credentials.File == "" {
		return nil
	}
	if c.Credentials.Identity == "" {
		return fmt.Errorf("credentials.identity is required when credentials.file is set")
	}

	secrets, err := sealed.OpenCredentials(c.Credentials.File, c.Credentials.Identity)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	fill := func(name string, target *string) {
		if *target == "" {
			*target = secrets[name]
		}
	}
	fill("SLACK_BOT_TOKEN", &c.Slack.BotToken)
	fill("SLACK_SIGNING_SECRET", &c.Slack.SigningSecret)
	fill("OPENAI_API_KEY", &c.LLM.OpenAI.APIKey)
	fill("ANTHROPIC_API_KEY", &c.LLM.Anthropic.APIKey)
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Testing && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.LLM.Model == "" {
		errs = append(errs, fmt.Errorf("llm.model is required"))
	}
	if c.LLM.MaxTokensResponse <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens_response must be positive"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be between 0 and 2"))
	}
	if c.LLM.ContextWindow < 0 {
		errs = append(errs, fmt.Errorf("llm.context_window must not be negative"))
	}
	if c.LLM.ContextWindow > 0 && c.LLM.ContextWindow <= c.LLM.MaxTokensResponse {
		errs = append(errs, fmt.Errorf("llm.context_window (%d) must exceed llm.max_tokens_response (%d)",
			c.LLM.ContextWindow, c.LLM.MaxTokensResponse))
	}
	if c.LLM.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("llm.max_retries must be at least 1"))
	}
	if c.LLM.InitialDelay < 0 || c.LLM.AttemptTimeout <= 0 {
		errs = append(errs, fmt.Errorf("llm.initial_delay must not be negative and llm.attempt_timeout must be positive"))
	}

	if c.History.MaxMessages < 1 {
		errs = append(errs, fmt.Errorf("history.max_messages must be at least 1"))
	}
	if c.Memory.Path == "" {
		errs = append(errs, fmt.Errorf("memory.path is required"))
	}
	if c.HTTP.Address == "" {
		errs = append(errs, fmt.Errorf("http.address is required"))
	}
	if c.Dispatcher.Workers < 1 {
		errs = append(errs, fmt.Errorf("dispatcher.workers must be at least 1"))
	}
	if c.Slack.RequestsPerSecond <= 0 || c.Slack.Burst < 1 {
		errs = append(errs, fmt.Errorf("slack.requests_per_second and slack.burst must be positive"))
	}

	if !contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error"))
	}
	if !contains([]string{"text", "json"}, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be text or json"))
	}

	if c.Environment == Production {
		if c.Slack.BotToken == "" {
			errs = append(errs, fmt.Errorf("slack.bot_token is required in production"))
		}
		if c.Slack.SigningSecret == "" {
			errs = append(errs, fmt.Errorf("slack.signing_secret is required in production"))
		}
		if c.LLM.OpenAI.APIKey == "" && c.LLM.Anthropic.APIKey == "" {
			errs = append(errs, fmt.Errorf("an llm provider api_key is required in production"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the directories holding the database and the
// admin socket.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Memory.Path, c.Admin.SocketPath} {
		if path == "" {
			continue
		}
		directory := filepath.Dir(path)
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", directory, err)
		}
	}
	return nil
}

// TestEndpointsEnabled reports whether diagnostic endpoints such as
// /test-completion may be served.
func (c *Config) TestEndpointsEnabled() bool {
	return c.Environment == Development || c.Environment == Testing
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
