package steps

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/tidemark/surfreplay/internal/dex"
)

// raydiumSwapBaseInData encodes the AMM v4 swap_base_in instruction: a u8
// discriminator (9) followed by amount_in and minimum_amount_out as u64.
func raydiumSwapBaseInData(amountIn, minimumOut uint64) []byte {
	data := make([]byte, 17)
	data[0] = 9
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minimumOut)
	return data
}

// newRaydiumSwapInstruction builds swap_base_in against the discovered pool.
// Account order follows the AMM v4 program: token program, the five pool
// accounts, then the Serum market side, then the user accounts.
func newRaydiumSwapInstruction(env *dex.RaydiumEnv, source, destination, owner solana.PublicKey, amountIn, minimumOut uint64) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: env.AmmID, IsSigner: false, IsWritable: true},
		{PublicKey: env.AmmAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: env.OpenOrders, IsSigner: false, IsWritable: true},
		{PublicKey: env.TargetOrders, IsSigner: false, IsWritable: true},
		{PublicKey: env.BaseVault, IsSigner: false, IsWritable: true},
		{PublicKey: env.QuoteVault, IsSigner: false, IsWritable: true},
		{PublicKey: env.MarketProgram, IsSigner: false, IsWritable: false},
		{PublicKey: env.MarketID, IsSigner: false, IsWritable: true},
		{PublicKey: env.MarketBids, IsSigner: false, IsWritable: true},
		{PublicKey: env.MarketAsks, IsSigner: false, IsWritable: true},
		{PublicKey: env.MarketEventQueue, IsSigner: false, IsWritable: true},
		{PublicKey: env.MarketBaseVault, IsSigner: false, IsWritable: true},
		{PublicKey: env.MarketQuoteVault, IsSigner: false, IsWritable: true},
		{PublicKey: env.MarketVaultSigner, IsSigner: false, IsWritable: false},
		{PublicKey: source, IsSigner: false, IsWritable: true},
		{PublicKey: destination, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: true, IsWritable: false},
	}
	return solana.NewInstruction(dex.RaydiumAmmV4Program, accounts, raydiumSwapBaseInData(amountIn, minimumOut))
}

// swapRoute is the expectation a recorded swap step carries about the pool
// it trades against: the mint it spends and which side of the pool that mint
// sits on.
type swapRoute struct {
	SourceMint   solana.PublicKey
	SourceIsBase bool
}

// validateRaydiumRoute cross-checks a recorded route against the discovered
// pool. A recording that disagrees with the live pool must fail before
// anything reaches the chain.
func validateRaydiumRoute(env *dex.RaydiumEnv, route swapRoute) error {
	poolSide := env.QuoteMint
	sideName := "quote_mint"
	if route.SourceIsBase {
		poolSide = env.BaseMint
		sideName = "base_mint"
	}
	if poolSide.Equals(route.SourceMint) {
		return nil
	}

	issues := []BuildIssue{
		{
			Message:  fmt.Sprintf("step spends %s as the pool's %s, pool has %s", route.SourceMint, sideName, poolSide),
			Location: "amm." + sideName,
		},
	}
	if route.SourceIsBase && env.QuoteMint.Equals(route.SourceMint) {
		issues = append(issues, BuildIssue{
			Message:  "mint sits on the pool's quote side; the recorded direction is inverted",
			Location: "amm.quote_mint",
		})
	}
	return &BuildError{
		Kind:    "validation",
		Msg:     "recorded swap route does not match the discovered pool",
		Details: fmt.Sprintf("pool %s", env.AmmID),
		Subs:    issues,
	}
}

// BuildRaydiumSwap swaps wrapped SOL for the base token of the discovered
// pool, creating the destination token account if needed.
func BuildRaydiumSwap(_ context.Context, bctx *BuildContext) (*solana.Transaction, error) {
	if err := bctx.validate(); err != nil {
		return nil, err
	}
	env := &bctx.Env.Raydium

	if err := validateRaydiumRoute(env, swapRoute{
		SourceMint:   dex.WrappedSOLMint,
		SourceIsBase: false,
	}); err != nil {
		return nil, err
	}

	source, err := ata(bctx.Payer, env.QuoteMint)
	if err != nil {
		return nil, &BuildError{Kind: "derivation", Msg: "derive source token account", Details: err.Error()}
	}
	destination, err := ata(bctx.Payer, env.BaseMint)
	if err != nil {
		return nil, &BuildError{Kind: "derivation", Msg: "derive destination token account", Details: err.Error()}
	}

	instrs := []solana.Instruction{
		newSetComputeUnitLimitInstruction(raydiumComputeUnits),
		newCreateATAIdempotentInstruction(bctx.Payer, bctx.Payer, env.BaseMint, destination),
		newRaydiumSwapInstruction(env, source, destination, bctx.Payer, raydiumSwapLamports, minimumSwapOut),
	}

	return newStepTransaction(instrs, bctx)
}

// BuildRaydiumSwapMismatched replays a swap recorded against a pool whose
// base side was wrapped SOL. Discovery selects pools quoted in wrapped SOL,
// so the route check rejects the recording with a per-field breakdown.
func BuildRaydiumSwapMismatched(ctx context.Context, bctx *BuildContext) (*solana.Transaction, error) {
	if err := bctx.validate(); err != nil {
		return nil, err
	}

	if err := validateRaydiumRoute(&bctx.Env.Raydium, swapRoute{
		SourceMint:   dex.WrappedSOLMint,
		SourceIsBase: true,
	}); err != nil {
		return nil, err
	}

	// Only reachable if the pool genuinely carries wrapped SOL on its base
	// side; then the recording is consistent and the swap proceeds.
	return BuildRaydiumSwap(ctx, bctx)
}
