// internal/exchange/raydium/settle.go
package raydium

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"go.uber.org/zap"
)

// ErrNoInboundTransfer means the landed transaction carried no transfer
// into the wallet. The swap may have failed in a way status polling did
// not surface; callers must not report a zero-output success.
var ErrNoInboundTransfer = errors.New("no inbound token transfer found in transaction")

// splTransferOpcode is the SPL token program Transfer instruction tag.
const splTransferOpcode = 3

// settlement is what actually happened on chain, read back from the ledger.
type settlement struct {
	AmountIn  uint64
	AmountOut uint64
	FeePaid   uint64
}

// tokenTransfer is one decoded SPL Transfer from the inner instructions.
type tokenTransfer struct {
	Source    solana.PublicKey
	Dest      solana.PublicKey
	Authority solana.PublicKey
	Amount    uint64
}

// parseSettlement reads the landed transaction and extracts the realized
// transfer amounts. The AMM moves tokens through inner instructions: the
// leg authorized by the wallet is the spend, any other leg into a wallet
// account is the proceeds.
func (d *DEX) parseSettlement(ctx context.Context, signature solana.Signature, owner solana.PublicKey, priorityFeeLamports uint64) (*settlement, error) {
	result, err := d.client.GetTransaction(ctx, signature, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	if result == nil || result.Meta == nil {
		return nil, fmt.Errorf("transaction %s has no meta", signature)
	}

	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	out, err := settleFromMeta(tx, result.Meta, owner, priorityFeeLamports)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("settlement parsed",
		zap.String("signature", signature.String()),
		zap.Uint64("amount_in", out.AmountIn),
		zap.Uint64("amount_out", out.AmountOut),
		zap.Uint64("fee_paid", out.FeePaid))

	return out, nil
}

// settleWithRetry keeps reading the settlement back, backing off between
// attempts. A finalized transaction's trace may lag on the queried node;
// a transient fetch error must not strand the caller without a verdict.
// A trace with no inbound leg is a definitive read, not a transient one.
func (d *DEX) settleWithRetry(ctx context.Context, signature solana.Signature, owner solana.PublicKey, priorityFeeLamports uint64) (*settlement, error) {
	operation := func() (*settlement, error) {
		out, err := d.parseSettlement(ctx, signature, owner, priorityFeeLamports)
		if err != nil {
			if errors.Is(err, ErrNoInboundTransfer) {
				return nil, backoff.Permanent(err)
			}
			d.logger.Debug("settlement read failed, retrying",
				zap.String("signature", signature.String()),
				zap.Error(err))
			return nil, err
		}
		return out, nil
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(d.settleEvery)))
}

// settleFromMeta attributes the decoded transfer legs. The leg authorized
// by the wallet is the spend; every other leg is proceeds.
func settleFromMeta(tx *solana.Transaction, meta *rpc.TransactionMeta, owner solana.PublicKey, priorityFeeLamports uint64) (*settlement, error) {
	// Account keys for a versioned transaction include lookup-table
	// addresses, writable before readonly.
	keys := tx.Message.AccountKeys
	keys = append(keys, meta.LoadedAddresses.Writable...)
	keys = append(keys, meta.LoadedAddresses.ReadOnly...)

	out := &settlement{
		FeePaid: meta.Fee + priorityFeeLamports,
	}
	found := false
	for _, transfer := range collectTransfers(meta.InnerInstructions, keys) {
		if transfer.Authority.Equals(owner) {
			out.AmountIn += transfer.Amount
			continue
		}
		out.AmountOut += transfer.Amount
		found = true
	}
	if !found {
		return nil, ErrNoInboundTransfer
	}
	return out, nil
}

// collectTransfers flattens the inner instruction groups and decodes every
// SPL Transfer. Non-token and malformed instructions are skipped.
func collectTransfers(groups []rpc.InnerInstruction, keys []solana.PublicKey) []tokenTransfer {
	var transfers []tokenTransfer
	for _, group := range groups {
		for _, ix := range group.Instructions {
			transfer, ok := decodeTransfer(ix, keys)
			if !ok {
				continue
			}
			transfers = append(transfers, transfer)
		}
	}
	return transfers
}

// decodeTransfer reads an SPL token Transfer: opcode byte 3 followed by a
// little-endian u64 amount; accounts are [source, destination, authority].
func decodeTransfer(ix solana.CompiledInstruction, keys []solana.PublicKey) (tokenTransfer, bool) {
	if int(ix.ProgramIDIndex) >= len(keys) || !keys[ix.ProgramIDIndex].Equals(TokenProgramID) {
		return tokenTransfer{}, false
	}
	if len(ix.Data) < 9 || ix.Data[0] != splTransferOpcode {
		return tokenTransfer{}, false
	}
	if len(ix.Accounts) < 3 {
		return tokenTransfer{}, false
	}
	for _, idx := range ix.Accounts[:3] {
		if int(idx) >= len(keys) {
			return tokenTransfer{}, false
		}
	}
	return tokenTransfer{
		Source:    keys[ix.Accounts[0]],
		Dest:      keys[ix.Accounts[1]],
		Authority: keys[ix.Accounts[2]],
		Amount:    binary.LittleEndian.Uint64(ix.Data[1:9]),
	}, true
}
