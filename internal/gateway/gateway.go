// Package gateway is the harness's only conduit to the node under test. It
// fetches recent blockhashes, submits signed transactions, and classifies
// what the node's observable behavior proved about each interaction.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/rs/zerolog"

	"github.com/tidemark/surfreplay/internal/retry"
)

const confirmPollInterval = 500 * time.Millisecond

// Timeouts bounds the gateway's interactions with the node.
type Timeouts struct {
	RPC     time.Duration // budget per RPC call
	Confirm time.Duration // total wait for a submitted transaction to confirm
}

// SubmitStatus classifies what the node's observable behavior proved about a
// submission.
type SubmitStatus int

const (
	// SubmitConfirmed means the transaction landed and reached confirmed
	// commitment.
	SubmitConfirmed SubmitStatus = iota
	// SubmitRejected means the node stayed responsive and cleanly refused or
	// failed the transaction.
	SubmitRejected
	// SubmitCrashEvidence means the response violated the protocol schema or
	// the connection died, which only a faulted node produces.
	SubmitCrashEvidence
)

func (s SubmitStatus) String() string {
	switch s {
	case SubmitConfirmed:
		return "confirmed"
	case SubmitRejected:
		return "rejected"
	case SubmitCrashEvidence:
		return "crash_evidence"
	default:
		return "unknown"
	}
}

// SubmitResult is the gateway's verdict on one submission.
type SubmitResult struct {
	Status    SubmitStatus
	Signature solana.Signature
	Err       error            // cause, set unless Status is SubmitConfirmed
	RemoteErr *RPCErrorPayload // verbatim node error payload when one was returned
}

// Gateway wraps a single RPC endpoint.
type Gateway struct {
	rpcURL   string
	client   *rpc.Client
	httpc    *http.Client
	timeouts Timeouts
	retrier  *retry.Runner
	logger   zerolog.Logger
}

// New creates a gateway for the given endpoint. The retry policy applies to
// pre-flight only; submissions are never retried.
func New(rpcURL string, timeouts Timeouts, policy retry.Policy, logger zerolog.Logger) *Gateway {
	log := logger.With().Str("component", "gateway").Str("rpc_url", rpcURL).Logger()
	if timeouts.RPC <= 0 {
		timeouts.RPC = 10 * time.Second
	}
	if timeouts.Confirm <= 0 {
		timeouts.Confirm = 30 * time.Second
	}
	return &Gateway{
		rpcURL:   rpcURL,
		client:   rpc.New(rpcURL),
		httpc:    &http.Client{Timeout: timeouts.RPC},
		timeouts: timeouts,
		retrier:  retry.New(policy, log),
		logger:   log,
	}
}

// RPCURL returns the endpoint this gateway talks to.
func (g *Gateway) RPCURL() string { return g.rpcURL }

// Client exposes the typed RPC client for read-side consumers (pool
// discovery, step builders).
func (g *Gateway) Client() *rpc.Client { return g.client }

// Preflight verifies the node is reachable and healthy before any step runs.
// Failure wraps ErrRPCUnavailable and is fatal to the run.
func (g *Gateway) Preflight(ctx context.Context) error {
	err := g.retrier.Do(ctx, "preflight", func() error {
		cctx, cancel := context.WithTimeout(ctx, g.timeouts.RPC)
		defer cancel()

		health, err := g.client.GetHealth(cctx)
		if err != nil {
			return fmt.Errorf("failed to get health status: %w", err)
		}
		if health != "ok" {
			return fmt.Errorf("node is not healthy: %s", health)
		}

		height, err := g.client.GetBlockHeight(cctx, rpc.CommitmentConfirmed)
		if err != nil {
			return fmt.Errorf("failed to get block height: %w", err)
		}

		g.logger.Info().
			Uint64("block_height", height).
			Msg("connected to node")
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrRPCUnavailable, err)
	}
	return nil
}

// LatestBlockhash fetches a fresh recent blockhash. Callers request one per
// step; the gateway never caches it.
func (g *Gateway) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	cctx, cancel := context.WithTimeout(ctx, g.timeouts.RPC)
	defer cancel()

	out, err := g.client.GetLatestBlockhash(cctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, classifyFetchError("failed to fetch latest blockhash", err)
	}
	if out == nil || out.Value == nil {
		return solana.Hash{}, MarkCrashEvidence(errors.New("blockhash response missing result value"))
	}

	g.logger.Debug().
		Str("blockhash", out.Value.Blockhash.String()).
		Uint64("last_valid_block_height", out.Value.LastValidBlockHeight).
		Msg("fetched latest blockhash")
	return out.Value.Blockhash, nil
}

// SubmitAndConfirm submits a signed transaction and waits for confirmed
// commitment. A submission is sent exactly once: a second send would change
// what the replayed sequence proves about the node.
func (g *Gateway) SubmitAndConfirm(ctx context.Context, txBase64 string) SubmitResult {
	sig, remoteErr, err := g.sendRawTransaction(ctx, txBase64)
	if err != nil {
		if IsCrashEvidence(err) {
			g.logger.Error().Err(err).Msg("node faulted on submission")
			return SubmitResult{Status: SubmitCrashEvidence, Err: err}
		}
		return SubmitResult{Status: SubmitRejected, Err: err}
	}
	if remoteErr != nil {
		g.logger.Warn().
			Int("code", remoteErr.Code).
			Str("message", remoteErr.Message).
			Msg("node rejected transaction")
		return SubmitResult{Status: SubmitRejected, Err: remoteErr, RemoteErr: remoteErr}
	}

	g.logger.Info().Str("signature", sig.String()).Msg("transaction submitted")
	return g.AwaitConfirmation(ctx, sig)
}

// AwaitConfirmation polls signature status until the transaction reaches
// confirmed commitment, fails on chain, or the confirmation budget expires.
func (g *Gateway) AwaitConfirmation(ctx context.Context, sig solana.Signature) SubmitResult {
	deadline := time.NewTimer(g.timeouts.Confirm)
	defer deadline.Stop()
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return SubmitResult{Status: SubmitRejected, Signature: sig, Err: ctx.Err()}
		case <-deadline.C:
			return SubmitResult{
				Status:    SubmitRejected,
				Signature: sig,
				Err:       fmt.Errorf("transaction %s not confirmed within %s", sig, g.timeouts.Confirm),
			}
		case <-ticker.C:
			cctx, cancel := context.WithTimeout(ctx, g.timeouts.RPC)
			statuses, err := g.client.GetSignatureStatuses(cctx, false, sig)
			cancel()
			if err != nil {
				var rpcErr *jsonrpc.RPCError
				if errors.As(err, &rpcErr) {
					// The node is alive and complaining; keep polling.
					continue
				}
				marked := MarkCrashEvidence(fmt.Errorf("status poll failed after submission: %w", err))
				g.logger.Error().Err(marked).Msg("node unresponsive after submission")
				return SubmitResult{Status: SubmitCrashEvidence, Signature: sig, Err: marked}
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}

			status := statuses.Value[0]
			if status.Err != nil {
				return SubmitResult{
					Status:    SubmitRejected,
					Signature: sig,
					Err:       fmt.Errorf("transaction failed on chain: %v", status.Err),
				}
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				g.logger.Info().
					Str("signature", sig.String()).
					Str("confirmation_status", string(status.ConfirmationStatus)).
					Uint64("slot", status.Slot).
					Msg("transaction confirmed")
				return SubmitResult{Status: SubmitConfirmed, Signature: sig}
			}
		}
	}
}

// classifyFetchError separates a node that answered with a well-formed
// JSON-RPC error from one that failed to answer at all.
func classifyFetchError(op string, err error) error {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return MarkCrashEvidence(fmt.Errorf("%s: %w", op, err))
}
