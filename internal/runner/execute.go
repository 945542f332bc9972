package runner

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"github.com/tidemark/surfreplay/internal/steps"
)

// ParseBlockhashArg validates a blockhash command-line argument. The protocol
// passes it as base58; anything that does not decode to exactly 32 bytes is
// rejected before a builder sees it.
func ParseBlockhashArg(s string) (solana.Hash, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("blockhash argument is not base58: %w", err)
	}
	if len(raw) != solana.PublicKeyLength {
		return solana.Hash{}, fmt.Errorf("blockhash must decode to 32 bytes, got %d", len(raw))
	}
	var h solana.Hash
	copy(h[:], raw)
	return h, nil
}

// ExecuteStep runs one registered build capability in this process and writes
// the protocol line to out. It is the subprocess half of the runner: the
// driver re-invokes the binary with BuildStepCommand, so a panicking or
// runaway builder takes down only its own process. The returned value is the
// process exit code.
func ExecuteStep(
	ctx context.Context,
	reg *steps.Registry,
	bctx *steps.BuildContext,
	stepName string,
	timeout time.Duration,
	out io.Writer,
	logger zerolog.Logger,
) int {
	log := logger.With().Str("component", "build_step").Str("step", stepName).Logger()

	build, ok := reg.Lookup(stepName)
	if !ok {
		res := &BuildResult{
			Success: false,
			Type:    "unknown_step",
			Error:   fmt.Sprintf("no build capability registered for %q", stepName),
		}
		if err := res.WriteLine(out); err != nil {
			log.Error().Err(err).Msg("failed to emit protocol line")
		}
		return 1
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type buildOut struct {
		tx  *solana.Transaction
		err error
	}
	done := make(chan buildOut, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("builder panicked")
				done <- buildOut{err: &steps.BuildError{
					Kind: "panic",
					Msg:  fmt.Sprintf("builder panicked: %v", rec),
				}}
			}
		}()
		tx, err := build(cctx, bctx)
		done <- buildOut{tx: tx, err: err}
	}()

	var result *BuildResult
	exit := 0
	select {
	case <-cctx.Done():
		// The parent enforces the hard wall clock with a kill; this deadline
		// lets an in-process run (or an external-runner invocation) report
		// the timeout cleanly first.
		result = &BuildResult{
			Success: false,
			Type:    "timeout",
			Error:   fmt.Sprintf("build exceeded its %s budget", timeout),
		}
		exit = 1
	case b := <-done:
		switch {
		case b.err != nil && errors.Is(b.err, context.DeadlineExceeded):
			// A builder that surfaced the expired deadline raced the select
			// above; both paths are the same timeout.
			result = &BuildResult{
				Success: false,
				Type:    "timeout",
				Error:   fmt.Sprintf("build exceeded its %s budget", timeout),
			}
			exit = 1
		case b.err != nil:
			result = FailureResult(b.err)
			exit = 1
		case b.tx == nil:
			result = FailureResult(fmt.Errorf("builder returned no transaction"))
			exit = 1
		default:
			raw, err := b.tx.MarshalBinary()
			if err != nil {
				result = FailureResult(fmt.Errorf("failed to serialize transaction: %w", err))
				exit = 1
			} else {
				result = SuccessResult(base64.StdEncoding.EncodeToString(raw))
				log.Info().Int("tx_bytes", len(raw)).Msg("transaction built")
			}
		}
	}

	if err := result.WriteLine(out); err != nil {
		log.Error().Err(err).Msg("failed to emit protocol line")
		return 1
	}
	return exit
}
