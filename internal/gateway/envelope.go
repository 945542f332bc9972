package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gagliardetto/solana-go"
)

const (
	jsonRPCVersion = "2.0"

	// maxResponseBytes bounds how much of a response body is read. A
	// sendTransaction reply is a signature or an error object, never large.
	maxResponseBytes = 1 << 20
)

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type sendTransactionOpts struct {
	Encoding            string `json:"encoding"`
	SkipPreflight       bool   `json:"skipPreflight"`
	PreflightCommitment string `json:"preflightCommitment"`
}

// rpcEnvelope is the raw JSON-RPC response shape. Result stays raw so that a
// missing field, an explicit null, and a present value are distinguishable.
type rpcEnvelope struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id"`
	Result  json.RawMessage  `json:"result"`
	Error   *RPCErrorPayload `json:"error"`
}

// RPCErrorPayload is the verbatim JSON-RPC error object returned by the node.
type RPCErrorPayload struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCErrorPayload) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// sendRawTransaction posts a sendTransaction request and validates the raw
// response envelope. It returns the parsed signature on success, the node's
// error payload on a clean rejection, or an error. Errors marked as crash
// evidence indicate the remote faulted; unmarked errors are local failures
// that never reached the wire.
//
// The submission goes over a plain HTTP POST rather than the typed client:
// the schema check below needs to see the envelope exactly as the node sent
// it, including a result field that is absent where the protocol requires it.
func (g *Gateway) sendRawTransaction(ctx context.Context, txBase64 string) (solana.Signature, *RPCErrorPayload, error) {
	cctx, cancel := context.WithTimeout(ctx, g.timeouts.RPC)
	defer cancel()

	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: jsonRPCVersion,
		ID:      1,
		Method:  "sendTransaction",
		Params: []interface{}{
			txBase64,
			sendTransactionOpts{
				Encoding:            "base64",
				SkipPreflight:       false,
				PreflightCommitment: "confirmed",
			},
		},
	})
	if err != nil {
		return solana.Signature{}, nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(cctx, http.MethodPost, g.rpcURL, bytes.NewReader(reqBody))
	if err != nil {
		return solana.Signature{}, nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpc.Do(httpReq)
	if err != nil {
		// The connection died or the node never answered. Right after a
		// submission that is evidence the remote faulted, not a clean refusal.
		return solana.Signature{}, nil, MarkCrashEvidence(fmt.Errorf("send failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return solana.Signature{}, nil, MarkCrashEvidence(fmt.Errorf("failed to read response: %w", err))
	}

	sigStr, remoteErr, err := parseSubmitEnvelope(body)
	if err != nil {
		return solana.Signature{}, nil, MarkCrashEvidence(fmt.Errorf("malformed sendTransaction response: %w", err))
	}
	if remoteErr != nil {
		return solana.Signature{}, remoteErr, nil
	}

	sig, err := solana.SignatureFromBase58(sigStr)
	if err != nil {
		return solana.Signature{}, nil, MarkCrashEvidence(fmt.Errorf("result field is not a valid signature: %w", err))
	}
	return sig, nil, nil
}

// parseSubmitEnvelope validates a sendTransaction response body against the
// JSON-RPC schema: exactly one of result/error must be present, and a
// success envelope must carry a non-null result. Anything else is the
// malformed shape a crashed node produces.
func parseSubmitEnvelope(body []byte) (string, *RPCErrorPayload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil, errors.New("empty response body")
	}

	var env rpcEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", nil, fmt.Errorf("response is not a JSON-RPC envelope: %w", err)
	}

	hasResult := len(env.Result) > 0 && !bytes.Equal(env.Result, []byte("null"))
	switch {
	case env.Error != nil && hasResult:
		return "", nil, errors.New("envelope carries both result and error")
	case env.Error != nil:
		return "", env.Error, nil
	case !hasResult:
		// Success-shaped envelope with the mandatory result field missing or
		// null. A live node never produces this for sendTransaction.
		return "", nil, errors.New("success envelope missing mandatory result field")
	}

	var sigStr string
	if err := json.Unmarshal(env.Result, &sigStr); err != nil {
		return "", nil, fmt.Errorf("result field is not a signature string: %w", err)
	}
	return sigStr, nil, nil
}
