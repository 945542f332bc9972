package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tidemark/surfreplay/internal/config"
	"github.com/tidemark/surfreplay/internal/db"
	"github.com/tidemark/surfreplay/internal/dex"
	"github.com/tidemark/surfreplay/internal/gateway"
	"github.com/tidemark/surfreplay/internal/keys"
	"github.com/tidemark/surfreplay/internal/replay"
	"github.com/tidemark/surfreplay/internal/retry"
	"github.com/tidemark/surfreplay/internal/runner"
	"github.com/tidemark/surfreplay/internal/steps"
)

func replayCmd() *cobra.Command {
	var rediscover bool
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run the scripted step sequence against the node under test",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, cfg, log, err := loadSetup()
			if err != nil {
				return err
			}
			return runReplay(cmd.Context(), home, cfg, rediscover, log)
		},
	}
	cmd.Flags().BoolVar(&rediscover, "rediscover", false,
		"Drop the cached venue environment and scan the pools again before replaying")
	return cmd
}

// runReplay executes the full sequence: load the payer, make sure the venue
// environment is cached for the build subprocesses, run the driver, and
// persist the report. The exit code is non-zero whenever the sequence did
// not complete.
func runReplay(ctx context.Context, home string, cfg config.Config, rediscover bool, log zerolog.Logger) error {
	payer, err := keys.LoadPayer(cfg.PayerKeypairPath)
	if err != nil {
		return err
	}
	log.Info().Str("payer", payer.PublicKey().String()).Msg("payer identity loaded")

	gw := newGateway(cfg, log)

	if _, err := ensureVenueEnv(ctx, home, cfg, gw, rediscover, log); err != nil {
		return err
	}

	// Build subprocesses resolve the same home and endpoint through the
	// environment; their argv carries only step name, budget, and blockhash.
	os.Setenv(config.HomeEnv, home)
	os.Setenv(config.RPCURLEnv, cfg.RPCURL)

	rn, err := runner.New(runner.Options{
		Command:  cfg.RunnerCommand,
		PayerPub: payer.PublicKey(),
	}, log)
	if err != nil {
		return err
	}

	driver := replay.NewDriver(replay.Options{
		Gateway:   gw,
		Runner:    rn,
		Payer:     payer,
		Steps:     steps.Sequence(time.Duration(cfg.StepTimeoutMs) * time.Millisecond),
		StepDelay: time.Duration(cfg.StepDelayMs) * time.Millisecond,
	}, log)

	report, runErr := driver.Run(ctx)

	reportPath := cfg.ReportFile
	if reportPath == "" {
		reportPath = filepath.Join(home, "replay_results.json")
	}
	if err := report.WriteFile(reportPath); err != nil {
		log.Error().Err(err).Str("path", reportPath).Msg("failed to write report file")
	} else {
		log.Info().Str("path", reportPath).Msg("report written")
	}
	report.LogSummary(log)

	if runErr != nil {
		return runErr
	}
	if report.Halted {
		return fmt.Errorf("replay halted: %s", report.HaltReason)
	}
	return nil
}

func newGateway(cfg config.Config, log zerolog.Logger) *gateway.Gateway {
	return gateway.New(cfg.RPCURL, gateway.Timeouts{
		RPC:     time.Duration(cfg.RPCTimeoutMs) * time.Millisecond,
		Confirm: time.Duration(cfg.ConfirmTimeoutMs) * time.Millisecond,
	}, retry.DefaultPolicy(), log)
}

// discoveryPolicy derives the fixed-delay retry policy for pool scans.
func discoveryPolicy(cfg config.Config) retry.Policy {
	delay := time.Duration(cfg.Discovery.RetryDelayMs) * time.Millisecond
	return retry.Policy{
		MaxAttempts:   cfg.Discovery.MaxAttempts,
		InitialDelay:  delay,
		MaxDelay:      delay,
		BackoffFactor: 1.0,
	}
}

// ensureVenueEnv returns the venue environment for this endpoint, running
// discovery and caching the result on first use. With rediscover set the
// cached rows are ignored and overwritten by a fresh scan.
func ensureVenueEnv(ctx context.Context, home string, cfg config.Config, gw *gateway.Gateway, rediscover bool, log zerolog.Logger) (*dex.Env, error) {
	database, err := db.OpenFileDB(home, db.DefaultFileName, true)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	if rediscover {
		log.Info().Msg("rediscover requested; dropping the cached venue environment")
	} else {
		env, err := dex.LoadEnv(database, cfg.RPCURL)
		if err != nil {
			return nil, err
		}
		if env != nil {
			log.Info().
				Str("raydium_pool", env.Raydium.AmmID.String()).
				Str("meteora_pair", env.Meteora.LbPair.String()).
				Msg("using cached venue environment")
			return env, nil
		}
	}

	quoteMint, err := solana.PublicKeyFromBase58(cfg.Discovery.QuoteMint)
	if err != nil {
		return nil, fmt.Errorf("invalid discovery quote mint: %w", err)
	}

	disc := dex.NewDiscovery(gw.Client(), quoteMint, retry.New(discoveryPolicy(cfg), log), log)
	env, err := disc.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if err := dex.SaveEnv(database, cfg.RPCURL, env); err != nil {
		return nil, err
	}
	return env, nil
}
