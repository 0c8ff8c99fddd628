// internal/exchange/raydium/instructions.go
package raydium

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"

	"github.com/solkit/solkit/internal/exchange"
)

// swapAccounts are the user-side accounts for one swap instruction.
type swapAccounts struct {
	Owner       solana.PublicKey
	Source      solana.PublicKey
	Destination solana.PublicKey
}

// buildInstructions assembles the full instruction list: compute budget
// first, then the swap. ComputeUnits and priceMicroLamports must both be
// set; the budget instructions are what make the priority fee effective.
func buildInstructions(pool *Pool, quote *exchange.Quote, accounts swapAccounts, computeUnits uint32, priceMicroLamports uint64) ([]solana.Instruction, error) {
	limitIx := computebudget.NewSetComputeUnitLimitInstructionBuilder().
		SetUnits(computeUnits).
		Build()
	priceIx := computebudget.NewSetComputeUnitPriceInstructionBuilder().
		SetMicroLamports(priceMicroLamports).
		Build()

	swapIx, err := buildSwapIx(pool, quote, accounts)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{limitIx, priceIx, swapIx}, nil
}

// buildSwapIx encodes the AMM v4 swap instruction:
// [u8 opcode=0x02, u8 direction, u64le amountIn, u64le minAmountOut].
func buildSwapIx(pool *Pool, quote *exchange.Quote, accounts swapAccounts) (solana.Instruction, error) {
	if pool.ID.IsZero() || pool.Authority.IsZero() {
		return nil, fmt.Errorf("missing pool addresses")
	}

	data := make([]byte, 1+1+8+8)
	data[0] = 0x02
	data[1] = byte(quote.Direction)
	binary.LittleEndian.PutUint64(data[2:10], quote.AmountIn)
	binary.LittleEndian.PutUint64(data[10:18], quote.MinAmountOut)

	metas := []*solana.AccountMeta{
		{PublicKey: pool.ID, IsWritable: true, IsSigner: false},
		{PublicKey: pool.Authority, IsWritable: false, IsSigner: false},
		{PublicKey: accounts.Owner, IsWritable: true, IsSigner: true},
		{PublicKey: accounts.Source, IsWritable: true, IsSigner: false},
		{PublicKey: accounts.Destination, IsWritable: true, IsSigner: false},
		{PublicKey: pool.BaseVault, IsWritable: true, IsSigner: false},
		{PublicKey: pool.QuoteVault, IsWritable: true, IsSigner: false},
		{PublicKey: TokenProgramID, IsWritable: false, IsSigner: false},
	}

	return solana.NewInstruction(RaydiumV4ProgramID, metas, data), nil
}
