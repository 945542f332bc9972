// Package runner executes untrusted build steps in isolated subprocesses and
// speaks the stdout JSON-line protocol with them. The driver never loads step
// code into its own process: a faulty builder can only take down the child.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/tidemark/surfreplay/internal/keys"
)

// BuildStepCommand is the hidden subcommand the runner invokes on its own
// binary to execute a single build capability in a fresh process.
const BuildStepCommand = "build-step"

const (
	defaultGrace    = 5 * time.Second
	stderrTailBytes = 2048
)

// execCommand is swapped in tests to intercept subprocess creation.
var execCommand = exec.CommandContext

// Options configures a Runner.
type Options struct {
	// Command is an external runner argv prefix (e.g. a script interpreter
	// plus entry file). Empty means the runner re-executes its own binary
	// with BuildStepCommand.
	Command []string

	// PayerPub is exported to the subprocess as PAYER_PUBKEY. Builders see
	// the public key only; the private key never leaves the driver.
	PayerPub solana.PublicKey

	// Grace is wall-clock slack past the step budget before the kill.
	Grace time.Duration
}

// Runner spawns one subprocess per build step.
type Runner struct {
	selfPath string
	command  []string
	payerPub solana.PublicKey
	grace    time.Duration
	logger   zerolog.Logger
}

// RunResult reports how one build subprocess behaved.
type RunResult struct {
	Build    *BuildResult  // parsed protocol line, nil when none was produced
	TimedOut bool          // the process outlived its budget and was killed
	Duration time.Duration // observed wall clock
	Err      error         // set when the process produced no usable result
	Stderr   string        // trailing stderr capture for diagnostics
}

// New creates a runner. With no external command configured it resolves the
// current executable for self-invocation.
func New(opts Options, logger zerolog.Logger) (*Runner, error) {
	r := &Runner{
		command:  opts.Command,
		payerPub: opts.PayerPub,
		grace:    opts.Grace,
		logger:   logger.With().Str("component", "runner").Logger(),
	}
	if r.grace <= 0 {
		r.grace = defaultGrace
	}
	if len(r.command) == 0 {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve own executable for step isolation: %w", err)
		}
		r.selfPath = self
	}
	return r, nil
}

// Run builds the named step in a fresh subprocess. The child receives the
// step name, its timeout, and the blockhash as arguments plus PAYER_PUBKEY in
// the environment, and must print one protocol line to stdout.
func (r *Runner) Run(ctx context.Context, stepName string, timeout time.Duration, blockhash solana.Hash) RunResult {
	argv := r.argv(stepName, timeout, blockhash)

	// The child self-limits to the step budget; the grace period only covers
	// serialization and teardown before the hard kill.
	cctx, cancel := context.WithTimeout(ctx, timeout+r.grace)
	defer cancel()

	cmd := execCommand(cctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%s", keys.PayerPubkeyEnv, r.payerPub.String()))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Info().
		Str("step", stepName).
		Dur("timeout", timeout).
		Msg("spawning build subprocess")

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if cctx.Err() == context.DeadlineExceeded {
		// Killed at the wall clock. Partial output is discarded: a result
		// from a process that had to be shot proves nothing.
		r.logger.Warn().
			Str("step", stepName).
			Dur("elapsed", elapsed).
			Msg("build subprocess timed out and was killed")
		return RunResult{TimedOut: true, Duration: elapsed, Stderr: tailOf(stderr.String())}
	}

	build, perr := parseProtocolLine(stdout.Bytes())
	if perr != nil {
		err := perr
		if runErr != nil {
			err = fmt.Errorf("build subprocess failed: %w (%v)", runErr, perr)
		}
		r.logger.Error().
			Err(err).
			Str("step", stepName).
			Str("stderr", tailOf(stderr.String())).
			Msg("build subprocess produced no result")
		return RunResult{Duration: elapsed, Err: err, Stderr: tailOf(stderr.String())}
	}

	// A failure line plus non-zero exit is the builder's normal failure
	// path, not a runner error.
	return RunResult{Build: build, Duration: elapsed, Stderr: tailOf(stderr.String())}
}

func (r *Runner) argv(stepName string, timeout time.Duration, blockhash solana.Hash) []string {
	timeoutMs := strconv.Itoa(int(timeout / time.Millisecond))
	if len(r.command) > 0 {
		argv := append([]string{}, r.command...)
		return append(argv, stepName, timeoutMs, blockhash.String())
	}
	return []string{r.selfPath, BuildStepCommand, stepName, timeoutMs, blockhash.String()}
}

func tailOf(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= stderrTailBytes {
		return s
	}
	return "..." + s[len(s)-stderrTailBytes:]
}
