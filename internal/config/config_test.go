package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	testCases := []struct {
		name        string
		config      *Config
		expectError bool
		errorMsg    string
		validate    func(t *testing.T, cfg *Config)
	}{
		{
			name: "Valid config with all fields",
			config: &Config{
				LogLevel:         2,
				LogFormat:        "json",
				RPCURL:           "http://127.0.0.1:8899",
				RPCTimeoutMs:     5000,
				ConfirmTimeoutMs: 20000,
				StepTimeoutMs:    15000,
				StepDelayMs:      1000,
				Discovery: DiscoveryConfig{
					MaxAttempts:  5,
					RetryDelayMs: 500,
					QuoteMint:    WrappedSOLMint,
				},
			},
			expectError: false,
		},
		{
			name: "Valid config with console log format",
			config: &Config{
				LogLevel:  1,
				LogFormat: "console",
			},
			expectError: false,
		},
		{
			name: "Invalid log level (negative)",
			config: &Config{
				LogLevel:  -1,
				LogFormat: "json",
			},
			expectError: true,
			errorMsg:    "log level must be between 0 and 5",
		},
		{
			name: "Invalid log level (too high)",
			config: &Config{
				LogLevel:  6,
				LogFormat: "json",
			},
			expectError: true,
			errorMsg:    "log level must be between 0 and 5",
		},
		{
			name: "Invalid log format",
			config: &Config{
				LogLevel:  2,
				LogFormat: "xml",
			},
			expectError: true,
			errorMsg:    "log format must be 'json' or 'console'",
		},
		{
			name: "Negative step delay rejected",
			config: &Config{
				LogLevel:    2,
				LogFormat:   "json",
				StepDelayMs: -5,
			},
			expectError: true,
			errorMsg:    "step timings must not be negative",
		},
		{
			name: "Config with defaults applied",
			config: &Config{
				LogLevel:  2,
				LogFormat: "json",
			},
			expectError: false,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "http://127.0.0.1:8899", cfg.RPCURL)
				assert.Equal(t, 10000, cfg.RPCTimeoutMs)
				assert.Equal(t, 30000, cfg.ConfirmTimeoutMs)
				assert.Equal(t, 30000, cfg.StepTimeoutMs)
				assert.Equal(t, 2000, cfg.StepDelayMs)
				assert.Equal(t, 3, cfg.Discovery.MaxAttempts)
				assert.Equal(t, 2000, cfg.Discovery.RetryDelayMs)
				assert.Equal(t, WrappedSOLMint, cfg.Discovery.QuoteMint)
			},
		},
		{
			name: "Empty quote mint gets default",
			config: &Config{
				LogLevel:  2,
				LogFormat: "json",
				Discovery: DiscoveryConfig{MaxAttempts: 2, RetryDelayMs: 100},
			},
			expectError: false,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, WrappedSOLMint, cfg.Discovery.QuoteMint)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateConfig(tc.config)

			if tc.expectError {
				assert.Error(t, err)
				if tc.errorMsg != "" {
					assert.Contains(t, err.Error(), tc.errorMsg)
				}
			} else {
				assert.NoError(t, err)
				if tc.validate != nil {
					tc.validate(t, tc.config)
				}
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("Save and load valid config", func(t *testing.T) {
		cfg := &Config{
			LogLevel:         3,
			LogFormat:        "json",
			RPCURL:           "http://localhost:8899",
			RPCTimeoutMs:     7000,
			ConfirmTimeoutMs: 25000,
			PayerKeypairPath: "/tmp/id.json",
			StepTimeoutMs:    12000,
			StepDelayMs:      500,
			RunnerCommand:    []string{"bun", "runTransaction.ts"},
			ReportFile:       "/tmp/results.json",
		}

		err := Save(cfg, tempDir)
		require.NoError(t, err)

		configPath := filepath.Join(tempDir, configSubdir, configFileName)
		_, err = os.Stat(configPath)
		assert.NoError(t, err)

		loadedCfg, err := Load(tempDir)
		require.NoError(t, err)

		assert.Equal(t, cfg.LogLevel, loadedCfg.LogLevel)
		assert.Equal(t, cfg.LogFormat, loadedCfg.LogFormat)
		assert.Equal(t, cfg.RPCURL, loadedCfg.RPCURL)
		assert.Equal(t, cfg.RPCTimeoutMs, loadedCfg.RPCTimeoutMs)
		assert.Equal(t, cfg.ConfirmTimeoutMs, loadedCfg.ConfirmTimeoutMs)
		assert.Equal(t, cfg.PayerKeypairPath, loadedCfg.PayerKeypairPath)
		assert.Equal(t, cfg.StepTimeoutMs, loadedCfg.StepTimeoutMs)
		assert.Equal(t, cfg.StepDelayMs, loadedCfg.StepDelayMs)
		assert.Equal(t, cfg.RunnerCommand, loadedCfg.RunnerCommand)
		assert.Equal(t, cfg.ReportFile, loadedCfg.ReportFile)
	})

	t.Run("Save invalid config", func(t *testing.T) {
		cfg := &Config{
			LogLevel:  -1, // Invalid
			LogFormat: "json",
		}

		err := Save(cfg, tempDir)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})

	t.Run("Load from missing file falls back to embedded defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(tempDir, "non_existent"))
		require.NoError(t, err)
		assert.Equal(t, "http://127.0.0.1:8899", cfg.RPCURL)
		assert.Equal(t, 30000, cfg.StepTimeoutMs)
	})

	t.Run("Load invalid JSON", func(t *testing.T) {
		configDir := filepath.Join(tempDir, "invalid", configSubdir)
		err := os.MkdirAll(configDir, 0o750)
		require.NoError(t, err)

		configPath := filepath.Join(configDir, configFileName)
		err = os.WriteFile(configPath, []byte("{invalid json}"), 0o600)
		require.NoError(t, err)

		_, err = Load(filepath.Join(tempDir, "invalid"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal config")
	})

	t.Run("Save with directory creation", func(t *testing.T) {
		newDir := filepath.Join(tempDir, "new_dir")
		cfg := &Config{
			LogLevel:  2,
			LogFormat: "json",
		}

		err := Save(cfg, newDir)
		require.NoError(t, err)

		configDir := filepath.Join(newDir, configSubdir)
		_, err = os.Stat(configDir)
		assert.NoError(t, err)
	})
}

func TestLoadDefaultConfig(t *testing.T) {
	cfg, err := LoadDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "http://127.0.0.1:8899", cfg.RPCURL)
	assert.Equal(t, 30000, cfg.StepTimeoutMs)
	assert.Equal(t, 2000, cfg.StepDelayMs)
	assert.Equal(t, WrappedSOLMint, cfg.Discovery.QuoteMint)
}
