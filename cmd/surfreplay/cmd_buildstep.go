package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/tidemark/surfreplay/internal/db"
	"github.com/tidemark/surfreplay/internal/dex"
	"github.com/tidemark/surfreplay/internal/keys"
	"github.com/tidemark/surfreplay/internal/runner"
	"github.com/tidemark/surfreplay/internal/steps"
)

// buildStepCmd is the subprocess half of the step runner: it executes exactly
// one registered build capability in this fresh process and prints one
// protocol line to stdout. Setup failures are reported as protocol lines too,
// so the parent never has to guess from a bare exit code.
func buildStepCmd() *cobra.Command {
	return &cobra.Command{
		Use:          runner.BuildStepCommand + " <step-name> <timeout-ms> <blockhash>",
		Short:        "Build one scripted step in isolation (used internally by replay)",
		Hidden:       true,
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fail := func(err error) error {
				_ = runner.FailureResult(err).WriteLine(out)
				return err
			}

			home, cfg, log, err := loadSetup()
			if err != nil {
				return fail(err)
			}

			stepName := args[0]
			timeoutMs, err := strconv.Atoi(args[1])
			if err != nil || timeoutMs <= 0 {
				return fail(fmt.Errorf("invalid timeout-ms argument %q", args[1]))
			}
			blockhash, err := runner.ParseBlockhashArg(args[2])
			if err != nil {
				return fail(err)
			}

			payer, err := solana.PublicKeyFromBase58(os.Getenv(keys.PayerPubkeyEnv))
			if err != nil {
				return fail(fmt.Errorf("invalid %s: %w", keys.PayerPubkeyEnv, err))
			}

			database, err := db.OpenFileDB(home, db.DefaultFileName, true)
			if err != nil {
				return fail(err)
			}
			env, lerr := dex.LoadEnv(database, cfg.RPCURL)
			if cerr := database.Close(); cerr != nil {
				log.Warn().Err(cerr).Msg("failed to close venue cache")
			}
			if lerr != nil {
				return fail(lerr)
			}
			if env == nil {
				return fail(errors.New("no cached venue environment for this endpoint; run discover first"))
			}

			bctx := &steps.BuildContext{Payer: payer, Blockhash: blockhash, Env: env}
			code := runner.ExecuteStep(cmd.Context(), steps.NewRegistry(), bctx,
				stepName, time.Duration(timeoutMs)*time.Millisecond, out, log)
			if code != 0 {
				os.Exit(code)
			}
			return nil
		},
	}
}
