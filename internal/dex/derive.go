package dex

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// binsPerArray is the number of price bins one DLMM bin array account holds.
const binsPerArray = 70

// PDA seeds used by the two venue programs.
var (
	ammAuthoritySeed   = []byte("amm authority")
	binArraySeed       = []byte("bin_array")
	eventAuthoritySeed = []byte("__event_authority")
)

// RaydiumAuthority derives the AMM authority for a pool from the nonce
// recorded in its state account.
func RaydiumAuthority(nonce uint64) (solana.PublicKey, error) {
	return solana.CreateProgramAddress(
		[][]byte{ammAuthoritySeed, {byte(nonce)}},
		RaydiumAmmV4Program,
	)
}

// SerumVaultSigner derives the owner of a market's token vaults from the
// nonce recorded in the market state.
func SerumVaultSigner(market solana.PublicKey, nonce uint64, program solana.PublicKey) (solana.PublicKey, error) {
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], nonce)
	return solana.CreateProgramAddress(
		[][]byte{market.Bytes(), seed[:]},
		program,
	)
}

// BinArrayIndex returns the index of the bin array containing the given bin,
// with floor semantics for negative bin ids.
func BinArrayIndex(binID int32) int64 {
	idx := int64(binID) / binsPerArray
	if binID < 0 && int64(binID)%binsPerArray != 0 {
		idx--
	}
	return idx
}

// DeriveBinArray derives the bin array PDA for a pair and array index. The
// index is serialized as a little-endian i64, matching the program's seed.
func DeriveBinArray(lbPair solana.PublicKey, index int64) (solana.PublicKey, error) {
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], uint64(index))
	addr, _, err := solana.FindProgramAddress(
		[][]byte{binArraySeed, lbPair.Bytes(), idx[:]},
		MeteoraDLMMProgram,
	)
	return addr, err
}

// DeriveEventAuthority derives the Anchor event authority PDA of the DLMM
// program, a fixed account of its swap instruction.
func DeriveEventAuthority() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{eventAuthoritySeed},
		MeteoraDLMMProgram,
	)
	return addr, err
}
