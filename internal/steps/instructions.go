package steps

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// computeBudgetProgramID is the Compute Budget program.
var computeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

// SPL token program instruction indexes used by the steps.
const (
	tokenInstructionTransfer   = 3
	tokenInstructionSyncNative = 17
)

// Lamport amounts the scripted steps move. Small fixed values keep the
// replay affordable on a funded local validator.
const (
	wrapLamports        uint64 = 50_000_000 // 0.05 SOL wrapped in step 1
	raydiumSwapLamports uint64 = 10_000_000 // 0.01 SOL spent in step 3
	transferLamports    uint64 = 1_000_000  // 0.001 SOL moved in step 4
	meteoraSwapLamports uint64 = 5_000_000  // 0.005 SOL spent in step 5

	// minimumSwapOut accepts any fill. The replay cares about the server's
	// handling of the transaction, not the price.
	minimumSwapOut uint64 = 1
)

// Compute unit caps for the swap steps.
const (
	raydiumComputeUnits uint32 = 200_000
	meteoraComputeUnits uint32 = 350_000
)

// newSetComputeUnitLimitInstruction caps the compute units of a transaction.
// Data format: [1-byte instruction type (2 = SetComputeUnitLimit)] + [u32 units].
func newSetComputeUnitLimitInstruction(units uint32) solana.Instruction {
	data := make([]byte, 5)
	data[0] = 2
	binary.LittleEndian.PutUint32(data[1:], units)

	return solana.NewInstruction(
		computeBudgetProgramID,
		[]*solana.AccountMeta{},
		data,
	)
}

// newCreateATAIdempotentInstruction creates wallet's associated token account
// for mint unless it already exists. Data [1] selects CreateIdempotent.
func newCreateATAIdempotentInstruction(payer, wallet, mint, ata solana.PublicKey) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: ata, IsSigner: false, IsWritable: true},
		{PublicKey: wallet, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, accounts, []byte{1})
}

// newTokenTransferInstruction moves amount raw units between two token
// accounts of the same mint. Data: [3] + [u64 amount].
func newTokenTransferInstruction(amount uint64, source, destination, owner solana.PublicKey) solana.Instruction {
	data := make([]byte, 9)
	data[0] = tokenInstructionTransfer
	binary.LittleEndian.PutUint64(data[1:], amount)

	accounts := []*solana.AccountMeta{
		{PublicKey: source, IsSigner: false, IsWritable: true},
		{PublicKey: destination, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: true, IsWritable: false},
	}
	return solana.NewInstruction(solana.TokenProgramID, accounts, data)
}

// newSyncNativeInstruction updates a wrapped SOL token account's balance to
// match its lamports. Data: [17].
func newSyncNativeInstruction(account solana.PublicKey) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: account, IsSigner: false, IsWritable: true},
	}
	return solana.NewInstruction(solana.TokenProgramID, accounts, []byte{tokenInstructionSyncNative})
}

// ata derives the associated token account of wallet for mint.
func ata(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	return addr, err
}

// newStepTransaction assembles the final unsigned transaction around the
// blockhash the driver fetched for this step.
func newStepTransaction(instrs []solana.Instruction, bctx *BuildContext) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(instrs, bctx.Blockhash, solana.TransactionPayer(bctx.Payer))
	if err != nil {
		return nil, &BuildError{Kind: "assembly", Msg: "assemble transaction", Details: err.Error()}
	}
	return tx, nil
}
