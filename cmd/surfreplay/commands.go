package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tidemark/surfreplay/internal/config"
	"github.com/tidemark/surfreplay/internal/logger"
)

// Build metadata, overridden at link time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func InitRootCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(discoverCmd())
	rootCmd.AddCommand(buildStepCmd())
	rootCmd.AddCommand(versionCmd())
}

// loadSetup resolves the home directory and configuration, applies flag and
// environment overrides, and builds the process logger. Environment
// overrides exist so build subprocesses resolve the same home and endpoint
// as the driver that spawned them.
func loadSetup() (string, config.Config, zerolog.Logger, error) {
	home := flagHome
	if home == "" {
		home = os.Getenv(config.HomeEnv)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	cfg, err := config.Load(home)
	if err != nil {
		return "", config.Config{}, zerolog.Logger{}, err
	}

	switch {
	case flagRPCURL != "":
		cfg.RPCURL = flagRPCURL
	case os.Getenv(config.RPCURLEnv) != "":
		cfg.RPCURL = os.Getenv(config.RPCURLEnv)
	}
	if flagLogLevel >= 0 {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogSampler)
	return home, cfg, log, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print surfreplay version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Version: %s\n", version)
			fmt.Printf("Commit:  %s\n", commit)
		},
	}
}
