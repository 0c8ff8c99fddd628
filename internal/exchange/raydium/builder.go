// internal/exchange/raydium/builder.go
package raydium

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solkit/solkit/internal/exchange"
	"github.com/solkit/solkit/internal/types"
	"github.com/solkit/solkit/internal/wallet"
)

// BuildSwap turns a quote into a signed, fee-guarded transaction. Every
// failure happens before submission; there are no partial builds.
func (d *DEX) BuildSwap(ctx context.Context, w *wallet.Wallet, quote *exchange.Quote, opts exchange.ExecOptions) (*exchange.BuiltSwap, error) {
	pool, err := d.fetchPool(ctx, quote.PoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh pool: %w", err)
	}

	// Reserves move between quote and build. Re-quoting trades staleness
	// for an extra round trip; either way MinAmountOut still bounds the
	// downside on chain.
	if opts.ReQuote {
		fresh, err := computeQuote(pool, quote.Direction, quote.AmountIn, quote.Slippage)
		if err != nil {
			return nil, &exchange.QuoteError{PoolID: quote.PoolID, Err: err}
		}
		quote = fresh
	}

	tiers, err := d.estimator.Estimate(ctx)
	if err != nil {
		return nil, err
	}
	feeRate, err := tiers.Resolve(opts.FeeLevel)
	if err != nil {
		return nil, err
	}

	accounts, err := d.userAccounts(w, quote)
	if err != nil {
		return nil, err
	}

	computeUnits := uint32(DefaultComputeUnits)
	if opts.Simulate {
		consumed, err := d.simulate(ctx, w, pool, quote, accounts, feeRate)
		if err != nil {
			return nil, err
		}
		if consumed > 0 {
			computeUnits = marginUnits(consumed, opts.ComputeBudgetMargin)
		}
	}

	priorityFeeLamports := (uint64(computeUnits)*feeRate + types.MicroLamportsPerLamport - 1) / types.MicroLamportsPerLamport

	// The guard compares against the guaranteed floor, not the expected
	// output: a trade worth taking at MinAmountOut is worth its fee.
	maxFeeLamports := uint64(opts.MaxFeeFraction * float64(quote.MinAmountOut))
	if priorityFeeLamports > maxFeeLamports {
		return nil, &exchange.FeeTooHighError{
			FeeLamports: priorityFeeLamports,
			MaxLamports: maxFeeLamports,
		}
	}

	instructions, err := buildInstructions(pool, quote, accounts, computeUnits, feeRate)
	if err != nil {
		return nil, err
	}

	blockhash, lastValidBlockHeight, err := d.client.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(w.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	if err := w.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	d.logger.Info("swap built",
		zap.String("pool_id", quote.PoolID.String()),
		zap.String("signature", tx.Signatures[0].String()),
		zap.Uint32("compute_units", computeUnits),
		zap.Uint64("priority_fee_lamports", priorityFeeLamports),
		zap.Uint64("last_valid_block_height", lastValidBlockHeight))

	return &exchange.BuiltSwap{
		Tx:                   tx,
		Signature:            tx.Signatures[0],
		LastValidBlockHeight: lastValidBlockHeight,
		PriorityFeeLamports:  priorityFeeLamports,
		Quote:                quote,
	}, nil
}

// simulate dry-runs the swap with the default compute budget and returns the
// consumed units. A structured on-chain error aborts the build.
func (d *DEX) simulate(ctx context.Context, w *wallet.Wallet, pool *Pool, quote *exchange.Quote, accounts swapAccounts, feeRate uint64) (uint64, error) {
	instructions, err := buildInstructions(pool, quote, accounts, DefaultComputeUnits, feeRate)
	if err != nil {
		return 0, err
	}

	blockhash, _, err := d.client.GetLatestBlockhash(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get blockhash for simulation: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(w.PublicKey))
	if err != nil {
		return 0, err
	}
	if err := w.SignTransaction(tx); err != nil {
		return 0, err
	}

	result, err := d.client.SimulateTransaction(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("simulation request failed: %w", err)
	}
	if result.Err != nil {
		classification := ClassifyInstructionError(result.Err)
		d.logger.Warn("simulation rejected swap",
			zap.String("classification", classification.Kind),
			zap.String("detail", classification.Detail))
		return 0, &exchange.SimulationError{
			Classification: classification.Kind,
			Detail:         classification.Detail,
			Logs:           result.Logs,
		}
	}
	return result.UnitsConsumed, nil
}

// marginUnits adds headroom on top of simulated consumption, rounding
// half-to-even, capped at the cluster per-transaction limit.
func marginUnits(consumed uint64, margin float64) uint32 {
	units := types.BankersRound(float64(consumed)*margin + float64(consumed))
	if units > MaxComputeUnitLimit {
		units = MaxComputeUnitLimit
	}
	return uint32(units)
}

// userAccounts resolves the wallet-side token accounts for the trade legs.
func (d *DEX) userAccounts(w *wallet.Wallet, quote *exchange.Quote) (swapAccounts, error) {
	source, err := w.GetATA(quote.TokenIn)
	if err != nil {
		return swapAccounts{}, fmt.Errorf("failed to derive source token account: %w", err)
	}
	destination, err := w.GetATA(quote.TokenOut)
	if err != nil {
		return swapAccounts{}, fmt.Errorf("failed to derive destination token account: %w", err)
	}
	return swapAccounts{
		Owner:       w.PublicKey,
		Source:      source,
		Destination: destination,
	}, nil
}
