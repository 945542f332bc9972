// Package replay drives the scripted step sequence against the node under
// test. The driver walks the steps strictly in order: it fetches a fresh
// blockhash, has the runner build the step in isolation, signs and submits
// the result, and records what the node's behavior proved. Local failures
// move on to the next step; crash evidence ends the run on the spot.
package replay

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/tidemark/surfreplay/internal/gateway"
	"github.com/tidemark/surfreplay/internal/keys"
	"github.com/tidemark/surfreplay/internal/runner"
	"github.com/tidemark/surfreplay/internal/steps"
)

// Classification is the verdict on one replayed step.
type Classification string

const (
	// Confirmed: the transaction landed and reached confirmed commitment.
	Confirmed Classification = "confirmed"
	// BuildFailed: the step's builder reported a failure before anything
	// touched the chain.
	BuildFailed Classification = "build_failed"
	// TimedOut: the build subprocess outlived its budget and was killed.
	TimedOut Classification = "timed_out"
	// SubmitFailed: the node stayed responsive and cleanly refused the step.
	SubmitFailed Classification = "submit_failed"
	// CrashedRemote: the node's response violated its own protocol, proving
	// the remote process faulted.
	CrashedRemote Classification = "crashed_remote"
)

// ChainGateway is the driver's view of the node under test.
type ChainGateway interface {
	Preflight(ctx context.Context) error
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SubmitAndConfirm(ctx context.Context, txBase64 string) gateway.SubmitResult
	RPCURL() string
}

// StepRunner builds one step in an isolated subprocess.
type StepRunner interface {
	Run(ctx context.Context, stepName string, timeout time.Duration, blockhash solana.Hash) runner.RunResult
}

var (
	_ ChainGateway = (*gateway.Gateway)(nil)
	_ StepRunner   = (*runner.Runner)(nil)
)

// Options configures a Driver.
type Options struct {
	Gateway ChainGateway
	Runner  StepRunner
	Payer   *keys.Payer

	// Steps is the scripted sequence, already in replay order.
	Steps []steps.StepSpec

	// StepDelay is the pause between consecutive steps, giving the node
	// time to settle state the next step depends on.
	StepDelay time.Duration
}

// Driver owns the replay session: the current position in the sequence and
// the decision to continue or halt. Steps run strictly one at a time.
type Driver struct {
	gw     ChainGateway
	runner StepRunner
	payer  *keys.Payer
	steps  []steps.StepSpec
	delay  time.Duration
	logger zerolog.Logger
}

// NewDriver wires a driver from its collaborators.
func NewDriver(opts Options, logger zerolog.Logger) *Driver {
	return &Driver{
		gw:     opts.Gateway,
		runner: opts.Runner,
		payer:  opts.Payer,
		steps:  opts.Steps,
		delay:  opts.StepDelay,
		logger: logger.With().Str("component", "driver").Logger(),
	}
}

// Run executes the scripted sequence and returns the report. The returned
// error is set only when no step sequence could run at all: pre-flight
// failure or context cancellation. A halted sequence is reported through the
// report itself, not the error.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	rec := NewRecorder(d.gw.RPCURL(), d.logger)

	if err := d.gw.Preflight(ctx); err != nil {
		rec.Halt(fmt.Sprintf("pre-flight failed: %v", err))
		return rec.Finish(), err
	}

	d.logger.Info().Int("steps", len(d.steps)).Msg("starting replay sequence")

	for i, spec := range d.steps {
		if i > 0 {
			if err := d.pause(ctx); err != nil {
				return rec.Finish(), err
			}
		}

		outcome, halt := d.runStep(ctx, spec)
		rec.Record(outcome)
		if halt {
			rec.Halt(fmt.Sprintf("step %d (%s) produced crash evidence: %s",
				outcome.Step, outcome.Name, outcome.Err))
			break
		}
	}

	return rec.Finish(), nil
}

// runStep executes one step end to end. The returned flag tells the driver
// to stop issuing steps: only crash evidence sets it.
func (d *Driver) runStep(ctx context.Context, spec steps.StepSpec) (Outcome, bool) {
	log := d.logger.With().Int("step", spec.Index).Str("name", spec.Name).Logger()
	start := time.Now()
	outcome := Outcome{Step: spec.Index, Name: spec.Name}
	finish := func(c Classification, halt bool) (Outcome, bool) {
		outcome.Classification = c
		outcome.DurationMs = time.Since(start).Milliseconds()
		return outcome, halt
	}

	// Each step gets the freshest blockhash available at its start; a value
	// is never carried over from an earlier step.
	blockhash, err := d.gw.LatestBlockhash(ctx)
	if err != nil {
		outcome.Err = err.Error()
		if gateway.IsCrashEvidence(err) {
			log.Error().Err(err).Msg("node faulted while serving a blockhash")
			return finish(CrashedRemote, true)
		}
		log.Warn().Err(err).Msg("blockhash fetch failed; step never reached the chain")
		return finish(SubmitFailed, false)
	}

	log.Info().Str("blockhash", blockhash.String()).Msg("building step")
	rr := d.runner.Run(ctx, spec.Name, spec.Timeout, blockhash)

	switch {
	case rr.TimedOut:
		outcome.Err = fmt.Sprintf("build did not finish within %s", spec.Timeout)
		outcome.Details = stderrDetail(rr.Stderr, nil)
		return finish(TimedOut, false)

	case rr.Err != nil:
		outcome.Err = rr.Err.Error()
		outcome.Details = stderrDetail(rr.Stderr, nil)
		return finish(BuildFailed, false)

	case rr.Build == nil:
		outcome.Err = "build subprocess returned no result"
		return finish(BuildFailed, false)

	case !rr.Build.Success:
		outcome.Err = rr.Build.Error
		outcome.Details = buildDetail(rr.Build)
		return finish(BuildFailed, false)
	}

	signed, err := d.signTransaction(rr.Build.SerializedTx)
	if err != nil {
		outcome.Err = err.Error()
		return finish(BuildFailed, false)
	}
	outcome.SerializedTx = signed

	res := d.gw.SubmitAndConfirm(ctx, signed)
	if res.Signature != (solana.Signature{}) {
		outcome.Signature = res.Signature.String()
	}
	if res.Err != nil {
		outcome.Err = res.Err.Error()
	}

	switch res.Status {
	case gateway.SubmitConfirmed:
		return finish(Confirmed, false)
	case gateway.SubmitCrashEvidence:
		log.Error().Err(res.Err).Msg("node faulted on submission")
		return finish(CrashedRemote, true)
	default:
		return finish(SubmitFailed, false)
	}
}

// signTransaction turns the builder's unsigned transaction into the signed
// base64 payload the gateway submits. The private key stays in this process;
// build subprocesses only ever see the public key.
func (d *Driver) signTransaction(txBase64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", fmt.Errorf("failed to decode built transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse built transaction: %w", err)
	}
	if _, err := tx.Sign(d.payer.Signer()); err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}
	signed, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize signed transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(signed), nil
}

func (d *Driver) pause(ctx context.Context) error {
	if d.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(d.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// buildDetail flattens a builder's structured failure into report lines,
// keeping every sub-error's message and location.
func buildDetail(b *runner.BuildResult) []string {
	var details []string
	if b.Details != "" {
		details = append(details, b.Details)
	}
	for _, sub := range b.Errors {
		line := sub.Message
		if sub.Location != "" {
			line = fmt.Sprintf("%s (%s)", sub.Message, sub.Location)
		}
		details = append(details, line)
	}
	return details
}

func stderrDetail(stderr string, details []string) []string {
	if stderr == "" {
		return details
	}
	return append(details, "stderr: "+stderr)
}
