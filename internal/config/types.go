package config

// Config is the top-level configuration for the replay harness.
// Stored as JSON under <home>/config/surfreplay_config.json.
type Config struct {
	// Logging
	LogLevel   int    `json:"log_level"`   // e.g., 0 = debug, 1 = info, etc.
	LogFormat  string `json:"log_format"`  // "json" or "console"
	LogSampler bool   `json:"log_sampler"` // if true, samples logs (e.g., 1 in 5)

	// Target node
	RPCURL           string `json:"rpc_url"`            // JSON-RPC endpoint of the node under test (default: http://127.0.0.1:8899)
	RPCTimeoutMs     int    `json:"rpc_timeout_ms"`     // Per-call RPC timeout (default: 10000)
	ConfirmTimeoutMs int    `json:"confirm_timeout_ms"` // Max wait for a submitted transaction to confirm (default: 30000)

	// Payer identity
	PayerKeypairPath string `json:"payer_keypair_path,omitempty"` // Solana keygen file; empty means ~/.config/solana/id.json

	// Step execution
	StepTimeoutMs int      `json:"step_timeout_ms"`          // Wall-clock budget for each build subprocess (default: 30000)
	StepDelayMs   int      `json:"step_delay_ms"`            // Pause between consecutive steps (default: 2000)
	RunnerCommand []string `json:"runner_command,omitempty"` // Optional argv prefix replacing the self-exec step runner

	// Output
	ReportFile string `json:"report_file,omitempty"` // Path of the run report; empty means <home>/replay_results.json

	// Pool discovery
	Discovery DiscoveryConfig `json:"discovery"`
}

// DiscoveryConfig bounds the pre-replay DEX pool discovery.
type DiscoveryConfig struct {
	MaxAttempts  int    `json:"max_attempts"`   // Retry attempts for program account scans (default: 3)
	RetryDelayMs int    `json:"retry_delay_ms"` // Delay between attempts (default: 2000)
	QuoteMint    string `json:"quote_mint"`     // Quote mint pools are filtered by (default: wrapped SOL)
}
