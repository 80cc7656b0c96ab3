// Package config loads and manages azor configuration.
// Source precedence, highest first:
//  1. environment variables (LLM_API_KEY, ANTHROPIC_API_KEY, AZOR_* ...)
//  2. the --config flag path
//  3. ~/.config/azor/config.yaml
//
// A .env file in the working directory is loaded into the environment first.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProviderConfig holds per-backend credentials and model selection.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Config is the complete azor configuration.
type Config struct {
	// Provider is the active backend family, e.g. "gemini", "anthropic".
	Provider string `yaml:"provider"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`

	// Providers holds per-backend configuration.
	Providers map[string]*ProviderConfig `yaml:"providers"`

	// AssistantName is the persona display name attached to sessions.
	AssistantName string `yaml:"assistant_name"`

	// SystemPrompt is the persona system prompt (empty uses the default).
	SystemPrompt string `yaml:"system_prompt"`

	// SessionDir overrides the session record directory.
	SessionDir string `yaml:"session_dir"`

	// AuditLog overrides the audit log path.
	AuditLog string `yaml:"audit_log"`

	// ContextWindow overrides the assumed model context size. 0 = 32768.
	ContextWindow int `yaml:"context_window"`

	// ThinkingBudget is forwarded to backends that support it.
	ThinkingBudget int `yaml:"thinking_budget"`

	// LogLevel sets engine log verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

const defaultSystemPrompt = "You are Azor, a helpful conversational assistant. " +
	"Answer clearly and concisely, and ask for clarification when a request is ambiguous."

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:      "gemini",
		Providers:     make(map[string]*ProviderConfig),
		AssistantName: "Azor",
		SystemPrompt:  defaultSystemPrompt,
		ContextWindow: 32768,
		LogLevel:      "info",
	}
}

// Load reads the config file and applies environment overrides.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(home, ".config", "azor", "config.yaml")
		}
	}

	// Missing file means defaults; a present but invalid file is an error.
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]*ProviderConfig)
	}
	return cfg, nil
}

// GetProviderConfig returns the configuration for name, or an empty one.
func (c *Config) GetProviderConfig(name string) *ProviderConfig {
	if pc, ok := c.Providers[name]; ok {
		return pc
	}
	return &ProviderConfig{}
}

func applyEnvOverrides(cfg *Config) {
	setKey := func(provider, key string) {
		if cfg.Providers == nil {
			cfg.Providers = make(map[string]*ProviderConfig)
		}
		if cfg.Providers[provider] == nil {
			cfg.Providers[provider] = &ProviderConfig{}
		}
		cfg.Providers[provider].APIKey = key
	}

	if v := os.Getenv("AZOR_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		setKey(cfg.Provider, v)
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		setKey("anthropic", v)
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		setKey("openai", v)
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		setKey("gemini", v)
	}
	if v := os.Getenv("AZOR_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("AZOR_SESSION_DIR"); v != "" {
		cfg.SessionDir = v
	}
	if v := os.Getenv("AZOR_AUDIT_LOG"); v != "" {
		cfg.AuditLog = v
	}
	if v := os.Getenv("AZOR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
