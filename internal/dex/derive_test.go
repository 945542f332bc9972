package dex

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinArrayIndex(t *testing.T) {
	tests := []struct {
		binID int32
		want  int64
	}{
		{0, 0},
		{1, 0},
		{69, 0},
		{70, 1},
		{139, 1},
		{140, 2},
		{-1, -1},
		{-69, -1},
		{-70, -1},
		{-71, -2},
		{-140, -2},
		{-141, -3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BinArrayIndex(tt.binID), "bin id %d", tt.binID)
	}
}

func TestRaydiumAuthorityMatchesCanonicalBump(t *testing.T) {
	// The program stores the bump of its authority PDA in the pool's nonce
	// field. Deriving with the canonical bump must land on the same address
	// the runtime finds.
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{ammAuthoritySeed},
		RaydiumAmmV4Program,
	)
	require.NoError(t, err)

	derived, err := RaydiumAuthority(uint64(bump))
	require.NoError(t, err)
	assert.Equal(t, addr, derived)
}

func TestSerumVaultSigner(t *testing.T) {
	market := testKey(0xC1)
	program := testKey(0xC2)

	// Not every nonce yields a valid off-curve address; markets record one
	// that does. Scan for it the way the market initializer does.
	var nonce uint64
	var signer solana.PublicKey
	var err error
	for nonce = 0; nonce < 256; nonce++ {
		signer, err = SerumVaultSigner(market, nonce, program)
		if err == nil {
			break
		}
	}
	require.NoError(t, err, "no valid vault signer nonce in 0..255")

	again, err := SerumVaultSigner(market, nonce, program)
	require.NoError(t, err)
	assert.Equal(t, signer, again)

	other, err := SerumVaultSigner(testKey(0xC3), nonce, program)
	if err == nil {
		assert.NotEqual(t, signer, other)
	}
}

func TestDeriveBinArray(t *testing.T) {
	pair := testKey(0xD1)

	a, err := DeriveBinArray(pair, -45)
	require.NoError(t, err)
	b, err := DeriveBinArray(pair, -44)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "neighbouring indexes must derive distinct accounts")

	again, err := DeriveBinArray(pair, -45)
	require.NoError(t, err)
	assert.Equal(t, a, again)

	otherPair, err := DeriveBinArray(testKey(0xD2), -45)
	require.NoError(t, err)
	assert.NotEqual(t, a, otherPair)
}

func TestDeriveEventAuthority(t *testing.T) {
	addr, err := DeriveEventAuthority()
	require.NoError(t, err)
	assert.False(t, addr.IsZero())

	again, err := DeriveEventAuthority()
	require.NoError(t, err)
	assert.Equal(t, addr, again)
}
