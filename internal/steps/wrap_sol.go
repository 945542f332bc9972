package steps

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/tidemark/surfreplay/internal/dex"
)

// BuildWrapSOL funds the payer's wrapped SOL account: create the associated
// account if missing, move lamports into it, and sync the token balance.
// Later steps spend from this account.
func BuildWrapSOL(_ context.Context, bctx *BuildContext) (*solana.Transaction, error) {
	if err := bctx.validate(); err != nil {
		return nil, err
	}

	wsolAccount, err := ata(bctx.Payer, dex.WrappedSOLMint)
	if err != nil {
		return nil, &BuildError{Kind: "derivation", Msg: "derive wrapped SOL account", Details: err.Error()}
	}

	instrs := []solana.Instruction{
		newCreateATAIdempotentInstruction(bctx.Payer, bctx.Payer, dex.WrappedSOLMint, wsolAccount),
		system.NewTransferInstruction(wrapLamports, bctx.Payer, wsolAccount).Build(),
		newSyncNativeInstruction(wsolAccount),
	}

	return newStepTransaction(instrs, bctx)
}
