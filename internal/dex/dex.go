// Package dex locates the on-chain accounts the scripted swap steps touch: a
// Raydium AMM v4 pool quoted in wrapped SOL, the Serum market backing it, and
// a Meteora DLMM pair. Account layouts are decoded with declarative structs
// so the memcmp filter offsets used during discovery cannot drift from the
// decoders.
package dex

import (
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
)

var (
	// RaydiumAmmV4Program is the Raydium AMM v4 program.
	RaydiumAmmV4Program = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")

	// MeteoraDLMMProgram is the Meteora DLMM (dynamic liquidity market maker) program.
	MeteoraDLMMProgram = solana.MustPublicKeyFromBase58("LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo")

	// WrappedSOLMint is the native SOL wrapper mint.
	WrappedSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
)

// AnchorInstructionDiscriminator returns the 8-byte discriminator Anchor
// programs expect at the front of instruction data, sha256("global:<name>")[:8].
func AnchorInstructionDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}

// AnchorAccountDiscriminator returns the 8-byte discriminator Anchor programs
// store at the front of account data, sha256("account:<name>")[:8].
func AnchorAccountDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return sum[:8]
}
