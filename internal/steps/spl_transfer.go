package steps

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/tidemark/surfreplay/internal/dex"
)

// auxWalletSeed derives the payer's secondary wallet, the recipient of the
// scripted token transfer. CreateWithSeed keeps the address deterministic
// without needing a second keypair.
const auxWalletSeed = "surfreplay-aux"

// BuildSPLTransfer moves a small amount of wrapped SOL from the payer's
// associated account to the associated account of a seed-derived auxiliary
// wallet, creating the destination if needed. Reruns against the same node
// stay valid because the create is idempotent.
func BuildSPLTransfer(_ context.Context, bctx *BuildContext) (*solana.Transaction, error) {
	if err := bctx.validate(); err != nil {
		return nil, err
	}

	source, err := ata(bctx.Payer, dex.WrappedSOLMint)
	if err != nil {
		return nil, &BuildError{Kind: "derivation", Msg: "derive source token account", Details: err.Error()}
	}

	auxWallet, err := solana.CreateWithSeed(bctx.Payer, auxWalletSeed, solana.SystemProgramID)
	if err != nil {
		return nil, &BuildError{Kind: "derivation", Msg: "derive auxiliary wallet", Details: err.Error()}
	}
	destination, err := ata(auxWallet, dex.WrappedSOLMint)
	if err != nil {
		return nil, &BuildError{Kind: "derivation", Msg: "derive destination token account", Details: err.Error()}
	}

	instrs := []solana.Instruction{
		newCreateATAIdempotentInstruction(bctx.Payer, auxWallet, dex.WrappedSOLMint, destination),
		newTokenTransferInstruction(transferLamports, source, destination, bctx.Payer),
	}

	return newStepTransaction(instrs, bctx)
}
