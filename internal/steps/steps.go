// Package steps holds the scripted transaction builders the harness replays.
// Each step deterministically assembles one unsigned transaction from a
// BuildContext; none of them touches the network, so a build either succeeds,
// fails with a structured BuildError, or panics inside its own subprocess.
package steps

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/tidemark/surfreplay/internal/dex"
)

// Step names, in replay order.
const (
	StepWrapSOL               = "wrap_sol"
	StepRaydiumSwapMismatched = "raydium_swap_mismatched"
	StepRaydiumSwap           = "raydium_swap"
	StepSPLTransfer           = "spl_transfer"
	StepMeteoraSwap           = "meteora_dlmm_swap"
)

// StepSpec describes one scripted step in the replay sequence.
type StepSpec struct {
	Index   int
	Name    string
	Timeout time.Duration
}

// Sequence returns the scripted steps in replay order, each with the given
// build timeout.
func Sequence(stepTimeout time.Duration) []StepSpec {
	names := []string{
		StepWrapSOL,
		StepRaydiumSwapMismatched,
		StepRaydiumSwap,
		StepSPLTransfer,
		StepMeteoraSwap,
	}
	specs := make([]StepSpec, len(names))
	for i, name := range names {
		specs[i] = StepSpec{Index: i + 1, Name: name, Timeout: stepTimeout}
	}
	return specs
}

// BuildContext carries the inputs a step builder may consult. Builders are
// pure functions of it: the same context always yields the same transaction
// bytes.
type BuildContext struct {
	Payer     solana.PublicKey
	Blockhash solana.Hash
	Env       *dex.Env
}

func (b *BuildContext) validate() error {
	if b.Payer.IsZero() {
		return &BuildError{Kind: "context", Msg: "build context has no payer"}
	}
	if b.Env == nil {
		return &BuildError{Kind: "context", Msg: "build context has no venue environment"}
	}
	return nil
}

// BuildFunc assembles one unsigned transaction for a scripted step.
type BuildFunc func(ctx context.Context, bctx *BuildContext) (*solana.Transaction, error)

// BuildError is a structured failure raised by a step builder.
type BuildError struct {
	Kind    string       // machine-readable class: "context", "validation", "panic", ...
	Msg     string       // one-line summary
	Details string       // optional free-form context
	Subs    []BuildIssue // optional per-field breakdown
}

// BuildIssue pinpoints one contributor to an aggregate BuildError.
type BuildIssue struct {
	Message  string
	Location string
}

func (e *BuildError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Msg, e.Details)
	}
	return e.Msg
}

// Registry maps step names to their builders.
type Registry struct {
	builders map[string]BuildFunc
}

// NewRegistry returns a registry with every scripted step registered.
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]BuildFunc)}
	r.Register(StepWrapSOL, BuildWrapSOL)
	r.Register(StepRaydiumSwapMismatched, BuildRaydiumSwapMismatched)
	r.Register(StepRaydiumSwap, BuildRaydiumSwap)
	r.Register(StepSPLTransfer, BuildSPLTransfer)
	r.Register(StepMeteoraSwap, BuildMeteoraSwap)
	return r
}

// Register adds a builder under name. A later registration for the same name
// replaces the earlier one.
func (r *Registry) Register(name string, fn BuildFunc) {
	r.builders[name] = fn
}

// Lookup returns the builder registered under name.
func (r *Registry) Lookup(name string) (BuildFunc, bool) {
	fn, ok := r.builders[name]
	return fn, ok
}

// Names returns the registered step names, sorted for stable output.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
