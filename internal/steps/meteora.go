package steps

import (
	"context"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/tidemark/surfreplay/internal/dex"
)

// meteoraSwapData encodes the DLMM swap instruction: the Anchor
// discriminator for "swap" followed by amount_in and min_amount_out as u64.
func meteoraSwapData(amountIn, minimumOut uint64) []byte {
	data := make([]byte, 0, 24)
	data = append(data, dex.AnchorInstructionDiscriminator("swap")...)

	var amounts [16]byte
	binary.LittleEndian.PutUint64(amounts[:8], amountIn)
	binary.LittleEndian.PutUint64(amounts[8:], minimumOut)
	return append(data, amounts[:]...)
}

// newMeteoraSwapInstruction builds the DLMM swap against the discovered
// pair. Fixed accounts follow the program's swap definition; the bin arrays
// ride behind them as remaining accounts. The program expects its own id in
// the slots of unused optional accounts (bitmap extension, host fee).
func newMeteoraSwapInstruction(env *dex.MeteoraEnv, userIn, userOut, owner solana.PublicKey, amountIn, minimumOut uint64) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: env.LbPair, IsSigner: false, IsWritable: true},
		{PublicKey: dex.MeteoraDLMMProgram, IsSigner: false, IsWritable: false}, // bin array bitmap extension
		{PublicKey: env.ReserveX, IsSigner: false, IsWritable: true},
		{PublicKey: env.ReserveY, IsSigner: false, IsWritable: true},
		{PublicKey: userIn, IsSigner: false, IsWritable: true},
		{PublicKey: userOut, IsSigner: false, IsWritable: true},
		{PublicKey: env.TokenXMint, IsSigner: false, IsWritable: false},
		{PublicKey: env.TokenYMint, IsSigner: false, IsWritable: false},
		{PublicKey: env.Oracle, IsSigner: false, IsWritable: true},
		{PublicKey: dex.MeteoraDLMMProgram, IsSigner: false, IsWritable: false}, // host fee account
		{PublicKey: owner, IsSigner: true, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: env.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: dex.MeteoraDLMMProgram, IsSigner: false, IsWritable: false},
	}
	for _, binArray := range env.BinArrays {
		accounts = append(accounts, &solana.AccountMeta{PublicKey: binArray, IsSigner: false, IsWritable: true})
	}
	return solana.NewInstruction(dex.MeteoraDLMMProgram, accounts, meteoraSwapData(amountIn, minimumOut))
}

// BuildMeteoraSwap swaps the funding side of the discovered DLMM pair for
// the opposite side, creating the destination token account if needed.
func BuildMeteoraSwap(_ context.Context, bctx *BuildContext) (*solana.Transaction, error) {
	if err := bctx.validate(); err != nil {
		return nil, err
	}
	env := &bctx.Env.Meteora

	if !env.QuoteMint.Equals(env.TokenXMint) && !env.QuoteMint.Equals(env.TokenYMint) {
		return nil, &BuildError{
			Kind: "validation",
			Msg:  "discovered pair does not include the funding mint",
			Subs: []BuildIssue{
				{Message: "funding mint " + env.QuoteMint.String(), Location: "lb_pair.token_mints"},
			},
		}
	}

	inMint, outMint := env.TokenXMint, env.TokenYMint
	if env.QuoteIsY() {
		inMint, outMint = env.TokenYMint, env.TokenXMint
	}

	userIn, err := ata(bctx.Payer, inMint)
	if err != nil {
		return nil, &BuildError{Kind: "derivation", Msg: "derive source token account", Details: err.Error()}
	}
	userOut, err := ata(bctx.Payer, outMint)
	if err != nil {
		return nil, &BuildError{Kind: "derivation", Msg: "derive destination token account", Details: err.Error()}
	}

	instrs := []solana.Instruction{
		newSetComputeUnitLimitInstruction(meteoraComputeUnits),
		newCreateATAIdempotentInstruction(bctx.Payer, bctx.Payer, outMint, userOut),
		newMeteoraSwapInstruction(env, userIn, userOut, bctx.Payer, meteoraSwapLamports, minimumSwapOut),
	}

	return newStepTransaction(instrs, bctx)
}
