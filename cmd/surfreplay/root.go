package main

import (
	"github.com/spf13/cobra"
)

var (
	flagHome      string
	flagRPCURL    string
	flagLogLevel  int
	flagLogFormat string
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "surfreplay",
		Short: "Replay a scripted transaction sequence against a local Solana node",
		Long: "surfreplay replays a fixed five-step transaction sequence against the\n" +
			"node under test and records what each step proved: confirmed, failed\n" +
			"locally, rejected cleanly, or crash evidence from the node itself.",
	}

	rootCmd.PersistentFlags().StringVar(&flagHome, "home", "", "Harness home directory (default ~/.surfreplay)")
	rootCmd.PersistentFlags().StringVar(&flagRPCURL, "rpc-url", "", "JSON-RPC endpoint of the node under test (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagLogLevel, "log-level", -1, "Log level override: 0=debug 1=info 2=warn 3=error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format override: json or console")

	InitRootCmd(rootCmd) // add subcommands like `replay` and `discover`

	return rootCmd
}
