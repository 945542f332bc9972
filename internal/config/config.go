package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configSubdir   = "config"
	configFileName = "surfreplay_config.json"

	// WrappedSOLMint is the canonical wrapped SOL mint address.
	WrappedSOLMint = "So11111111111111111111111111111111111111112"

	// HomeEnv overrides the harness home directory. The replay driver sets
	// it for build subprocesses so that both halves resolve the same home.
	HomeEnv = "SURFREPLAY_HOME"
	// RPCURLEnv overrides the configured RPC endpoint, with the same role.
	RPCURLEnv = "SURFREPLAY_RPC_URL"
)

//go:embed default_config.json
var defaultConfigJSON []byte

func validateConfig(cfg *Config) error {
	// Validate log level
	if cfg.LogLevel < 0 || cfg.LogLevel > 5 {
		return fmt.Errorf("log level must be between 0 and 5")
	}

	// Validate log format
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}

	// Set defaults for the target node
	if cfg.RPCURL == "" {
		cfg.RPCURL = "http://127.0.0.1:8899"
	}
	if cfg.RPCTimeoutMs == 0 {
		cfg.RPCTimeoutMs = 10000
	}
	if cfg.ConfirmTimeoutMs == 0 {
		cfg.ConfirmTimeoutMs = 30000
	}

	// Set defaults for step execution
	if cfg.StepTimeoutMs == 0 {
		cfg.StepTimeoutMs = 30000
	}
	if cfg.StepDelayMs == 0 {
		cfg.StepDelayMs = 2000
	}
	if cfg.StepTimeoutMs < 0 || cfg.StepDelayMs < 0 {
		return fmt.Errorf("step timings must not be negative")
	}

	// Set defaults for discovery
	if cfg.Discovery.MaxAttempts == 0 {
		cfg.Discovery.MaxAttempts = 3
	}
	if cfg.Discovery.RetryDelayMs == 0 {
		cfg.Discovery.RetryDelayMs = 2000
	}
	if cfg.Discovery.QuoteMint == "" {
		cfg.Discovery.QuoteMint = WrappedSOLMint
	}

	return nil
}

// Save writes the given config to <home>/config/surfreplay_config.json.
func Save(cfg *Config, home string) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Join(home, configSubdir)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configDir, configFileName)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load reads the config from <home>/config/surfreplay_config.json and applies
// defaults to any zero-valued field. Missing file is not an error: the
// embedded defaults are returned so a fresh checkout can replay immediately.
func Load(home string) (Config, error) {
	configFile := filepath.Join(home, configSubdir, configFileName)
	data, err := os.ReadFile(filepath.Clean(configFile))
	if err != nil {
		if os.IsNotExist(err) {
			def, derr := LoadDefaultConfig()
			if derr != nil {
				return Config{}, derr
			}
			return *def, nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDefaultConfig loads the default configuration from embedded JSON.
func LoadDefaultConfig() (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid default config: %w", err)
	}
	return &cfg, nil
}

// DefaultHome returns the default harness home directory (~/.surfreplay).
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".surfreplay"
	}
	return filepath.Join(home, ".surfreplay")
}
