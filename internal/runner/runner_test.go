package runner

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExec swaps the subprocess seam for the duration of one test.
func stubExec(t *testing.T, fn func(ctx context.Context, name string, args ...string) *exec.Cmd) {
	t.Helper()
	old := execCommand
	t.Cleanup(func() { execCommand = old })
	execCommand = fn
}

func testHash(b byte) solana.Hash {
	var h solana.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func testPayer(t *testing.T) solana.PublicKey {
	t.Helper()
	priv, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return priv.PublicKey()
}

func TestRunSuccessLineAndChildEnv(t *testing.T) {
	payer := testPayer(t)

	var gotName string
	var gotArgs []string
	stubExec(t, func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotName = name
		gotArgs = args
		// The child echoes its PAYER_PUBKEY back inside the protocol line,
		// proving the key crossed the process boundary via the environment.
		script := `echo "{\"success\":true,\"serialized_tx\":\"$PAYER_PUBKEY\"}"`
		return exec.CommandContext(ctx, "sh", "-c", script)
	})

	r, err := New(Options{
		Command:  []string{"node", "steps.js"},
		PayerPub: payer,
		Grace:    time.Second,
	}, zerolog.Nop())
	require.NoError(t, err)

	hash := testHash(0x11)
	res := r.Run(context.Background(), "wrap_sol", 1500*time.Millisecond, hash)

	require.NoError(t, res.Err)
	assert.False(t, res.TimedOut)
	require.NotNil(t, res.Build)
	assert.True(t, res.Build.Success)
	assert.Equal(t, payer.String(), res.Build.SerializedTx)

	assert.Equal(t, "node", gotName)
	assert.Equal(t, []string{"steps.js", "wrap_sol", "1500", hash.String()}, gotArgs)
}

func TestRunSelfInvocationArgv(t *testing.T) {
	var gotName string
	var gotArgs []string
	stubExec(t, func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotName = name
		gotArgs = args
		return exec.CommandContext(ctx, "sh", "-c", `echo '{"success":true,"serialized_tx":"QUJD"}'`)
	})

	r, err := New(Options{PayerPub: testPayer(t)}, zerolog.Nop())
	require.NoError(t, err)

	hash := testHash(0x22)
	res := r.Run(context.Background(), "spl_transfer", 2*time.Second, hash)
	require.NoError(t, res.Err)

	assert.True(t, filepath.IsAbs(gotName), "self path must be absolute, got %q", gotName)
	assert.Equal(t, []string{BuildStepCommand, "spl_transfer", "2000", hash.String()}, gotArgs)
}

func TestRunFailureLineWithNonZeroExit(t *testing.T) {
	stubExec(t, func(ctx context.Context, name string, args ...string) *exec.Cmd {
		script := `echo '{"success":false,"error":"route rejected","type":"validation"}'; exit 3`
		return exec.CommandContext(ctx, "sh", "-c", script)
	})

	r, err := New(Options{PayerPub: testPayer(t)}, zerolog.Nop())
	require.NoError(t, err)

	res := r.Run(context.Background(), "raydium_swap_mismatched", time.Second, testHash(0x33))

	// A failure line plus non-zero exit is the builder reporting its own
	// failure, not a runner error.
	require.NoError(t, res.Err)
	require.NotNil(t, res.Build)
	assert.False(t, res.Build.Success)
	assert.Equal(t, "validation", res.Build.Type)
	assert.Equal(t, "route rejected", res.Build.Error)
}

func TestRunNoProtocolLine(t *testing.T) {
	t.Run("clean exit without a line", func(t *testing.T) {
		stubExec(t, func(ctx context.Context, name string, args ...string) *exec.Cmd {
			return exec.CommandContext(ctx, "sh", "-c", `echo nothing useful here`)
		})

		r, err := New(Options{PayerPub: testPayer(t)}, zerolog.Nop())
		require.NoError(t, err)

		res := r.Run(context.Background(), "wrap_sol", time.Second, testHash(0x44))
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "no protocol line")
		assert.Nil(t, res.Build)
	})

	t.Run("crash exit captures stderr tail", func(t *testing.T) {
		stubExec(t, func(ctx context.Context, name string, args ...string) *exec.Cmd {
			return exec.CommandContext(ctx, "sh", "-c", `echo 'stack trace here' >&2; exit 7`)
		})

		r, err := New(Options{PayerPub: testPayer(t)}, zerolog.Nop())
		require.NoError(t, err)

		res := r.Run(context.Background(), "wrap_sol", time.Second, testHash(0x55))
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "build subprocess failed")
		assert.Contains(t, res.Err.Error(), "exit status 7")
		assert.Equal(t, "stack trace here", res.Stderr)
	})
}

func TestRunTimeoutKillsChildAndDiscardsOutput(t *testing.T) {
	stubExec(t, func(ctx context.Context, name string, args ...string) *exec.Cmd {
		// The child prints a valid line and then hangs past the wall clock.
		// exec replaces the shell so the kill lands on the hanging process.
		script := `echo '{"success":true,"serialized_tx":"QUJD"}'; exec sleep 30`
		return exec.CommandContext(ctx, "sh", "-c", script)
	})

	r, err := New(Options{PayerPub: testPayer(t), Grace: 50 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, err)

	start := time.Now()
	res := r.Run(context.Background(), "meteora_dlmm_swap", 50*time.Millisecond, testHash(0x66))
	elapsed := time.Since(start)

	assert.True(t, res.TimedOut)
	assert.Nil(t, res.Build, "output from a killed process must be discarded")
	assert.NoError(t, res.Err)
	assert.Less(t, elapsed, 10*time.Second, "kill must not wait for the child's sleep")
}

func TestTailOf(t *testing.T) {
	assert.Equal(t, "hi", tailOf("  hi \n"))

	long := strings.Repeat("x", stderrTailBytes+500)
	got := tailOf(long)
	assert.True(t, strings.HasPrefix(got, "..."))
	assert.Len(t, got, stderrTailBytes+3)
}
