// internal/exchange/raydium/confirm.go
package raydium

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/solkit/solkit/internal/blockchain"
	"github.com/solkit/solkit/internal/exchange"
	"github.com/solkit/solkit/internal/wallet"
)

const (
	maxSendAttempts = 10
	pollInterval    = 400 * time.Millisecond
	finalizeBackoff = time.Second
	// polls between expiry-oracle checks during the finalize watch
	finalizeExpiryEvery = 30
)

// ExecuteSwap submits a built swap and drives it to a terminal outcome.
// Success is a confirmed (or finalized) landing with settlement parsed from
// the ledger; failure is only ever declared on proof.
func (d *DEX) ExecuteSwap(ctx context.Context, w *wallet.Wallet, swap *exchange.BuiltSwap, opts exchange.ExecOptions) (*exchange.SwapResult, error) {
	logger := d.logger.With(zap.String("signature", swap.Signature.String()))

	if opts.SendOnly {
		if err := d.sendOnce(ctx, swap, logger); err != nil {
			return nil, err
		}
		return &exchange.SwapResult{
			Signature:    swap.Signature,
			Status:       exchange.StatusPending,
			AmountOut:    swap.Quote.AmountOut,
			MinAmountOut: swap.Quote.MinAmountOut,
		}, nil
	}

	// Without WaitForBlock the watch has no expiry bound: it gives up
	// after the poll window with an ambiguous outcome instead of waiting
	// out the blockhash validity window.
	expiryHeight := uint64(0)
	if opts.WaitForBlock {
		expiryHeight = swap.LastValidBlockHeight
	}

	status, err := d.sendAndConfirm(ctx, swap, expiryHeight, logger)
	if err != nil {
		return nil, err
	}

	if opts.Finalize && status != exchange.StatusFinalized {
		status, err = d.awaitFinalized(ctx, swap.Signature, swap.LastValidBlockHeight, logger)
		if err != nil {
			return nil, err
		}
	}

	result := &exchange.SwapResult{
		Signature:    swap.Signature,
		Status:       status,
		AmountOut:    swap.Quote.AmountOut,
		MinAmountOut: swap.Quote.MinAmountOut,
	}

	var settled *settlement
	var settleErr error
	if opts.Finalize {
		settled, settleErr = d.settleWithRetry(ctx, swap.Signature, w.PublicKey, swap.PriorityFeeLamports)
	} else {
		settled, settleErr = d.parseSettlement(ctx, swap.Signature, w.PublicKey, swap.PriorityFeeLamports)
	}
	if settleErr != nil {
		// The swap landed but what happened cannot be proven from the
		// ledger. That is an ambiguous outcome, never a zero-output
		// success and never a proven failure.
		logger.Warn("settlement unreadable, outcome ambiguous", zap.Error(settleErr))
		return result, &exchange.AmbiguousError{
			Signature:  swap.Signature,
			LastStatus: status,
			Err:        settleErr,
		}
	}
	result.RealizedAmountOut = settled.AmountOut
	result.FeePaid = settled.FeePaid

	logger.Info("swap executed",
		zap.String("status", status.String()),
		zap.Uint64("realized_amount_out", result.RealizedAmountOut),
		zap.Uint64("fee_paid", result.FeePaid))

	return result, nil
}

// sendOnce pushes the transaction through the send loop without awaiting
// confirmation.
func (d *DEX) sendOnce(ctx context.Context, swap *exchange.BuiltSwap, logger *zap.Logger) error {
	var lastErr error
	for attempt := 0; attempt < maxSendAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, d.pollEvery); err != nil {
				return &exchange.AmbiguousError{Signature: swap.Signature, LastStatus: exchange.StatusPending}
			}
		}
		_, err := d.client.SendTransactionWithOpts(ctx, swap.Tx, blockchain.TransactionOptions{SkipPreflight: true})
		if err == nil {
			return nil
		}
		lastErr = err
		logger.Debug("send attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return &exchange.SubmissionError{Attempts: maxSendAttempts, LastErr: lastErr}
}

// sendAndConfirm is the submission state machine. An explicit loop, not
// recursion: up to maxSendAttempts resubmissions interleaved with status
// polls, then poll-only until the confirmed tier, a proven failure, or
// proven expiry against expiryHeight. A zero expiryHeight means there is
// no bound to wait out and the watch ends ambiguous after the poll
// window. Resubmitting an identical signed transaction is idempotent, so
// a failed send never aborts the run by itself.
func (d *DEX) sendAndConfirm(ctx context.Context, swap *exchange.BuiltSwap, expiryHeight uint64, logger *zap.Logger) (exchange.ConfirmationStatus, error) {
	lastStatus := exchange.StatusPending
	sendAttempts := 0
	polls := 0

	for {
		if sendAttempts < maxSendAttempts {
			_, err := d.client.SendTransactionWithOpts(ctx, swap.Tx, blockchain.TransactionOptions{SkipPreflight: true})
			sendAttempts++
			if err != nil {
				logger.Debug("send attempt failed",
					zap.Int("attempt", sendAttempts),
					zap.Error(err))
			}
		}

		status, txErr, err := d.pollStatus(ctx, swap.Signature)
		polls++
		if err != nil {
			logger.Debug("status poll failed", zap.Error(err))
		} else {
			lastStatus = retainStatus(lastStatus, status, logger)
			if lastStatus == exchange.StatusError {
				detail := ClassifyInstructionError(txErr)
				return exchange.StatusError, &exchange.DefinitelyFailedError{
					Signature: swap.Signature,
					Detail:    detail.String(),
				}
			}
			if lastStatus.AtLeast(exchange.StatusConfirmed) {
				return lastStatus, nil
			}
		}

		// The expiry oracle is the only way to prove a transaction that
		// never landed can no longer land.
		if polls >= maxSendAttempts {
			expired, err := d.checkExpiry(ctx, swap.Signature, expiryHeight, lastStatus, logger)
			if err != nil {
				return lastStatus, err
			}
			if expired {
				return exchange.StatusError, &exchange.DefinitelyFailedError{
					Signature: swap.Signature,
					Detail:    "blockhash expired before confirmation",
				}
			}
		}

		if err := sleepCtx(ctx, d.pollEvery); err != nil {
			return lastStatus, &exchange.AmbiguousError{Signature: swap.Signature, LastStatus: lastStatus}
		}
	}
}

// ConfirmTransaction awaits confirmation of an already-submitted signature.
// Poll-only; no resubmission.
func (d *DEX) ConfirmTransaction(ctx context.Context, signature solana.Signature, lastValidBlockHeight uint64) (exchange.ConfirmationStatus, error) {
	logger := d.logger.With(zap.String("signature", signature.String()))
	lastStatus := exchange.StatusPending
	polls := 0

	for {
		status, txErr, err := d.pollStatus(ctx, signature)
		polls++
		if err != nil {
			logger.Debug("status poll failed", zap.Error(err))
		} else {
			lastStatus = retainStatus(lastStatus, status, logger)
			if lastStatus == exchange.StatusError {
				detail := ClassifyInstructionError(txErr)
				return exchange.StatusError, &exchange.DefinitelyFailedError{
					Signature: signature,
					Detail:    detail.String(),
				}
			}
			if lastStatus.AtLeast(exchange.StatusConfirmed) {
				return lastStatus, nil
			}
		}

		if polls >= maxSendAttempts {
			expired, err := d.checkExpiry(ctx, signature, lastValidBlockHeight, lastStatus, logger)
			if err != nil {
				return lastStatus, err
			}
			if expired {
				return exchange.StatusError, &exchange.DefinitelyFailedError{
					Signature: signature,
					Detail:    "blockhash expired before confirmation",
				}
			}
		}

		if err := sleepCtx(ctx, d.pollEvery); err != nil {
			return lastStatus, &exchange.AmbiguousError{Signature: signature, LastStatus: lastStatus}
		}
	}
}

// awaitFinalized watches a confirmed transaction through to finality.
// Transient poll errors back off for a second; the expiry oracle is
// rechecked periodically because a confirmed transaction can still be
// dropped on a fork before finalization.
func (d *DEX) awaitFinalized(ctx context.Context, signature solana.Signature, lastValidBlockHeight uint64, logger *zap.Logger) (exchange.ConfirmationStatus, error) {
	lastStatus := exchange.StatusConfirmed
	polls := 0

	for {
		status, txErr, err := d.pollStatus(ctx, signature)
		polls++
		if err != nil {
			logger.Debug("finalize poll failed", zap.Error(err))
			if err := sleepCtx(ctx, finalizeBackoff); err != nil {
				return lastStatus, &exchange.AmbiguousError{Signature: signature, LastStatus: lastStatus}
			}
			continue
		}

		lastStatus = retainStatus(lastStatus, status, logger)
		if lastStatus == exchange.StatusError {
			detail := ClassifyInstructionError(txErr)
			return exchange.StatusError, &exchange.DefinitelyFailedError{
				Signature: signature,
				Detail:    detail.String(),
			}
		}
		if lastStatus == exchange.StatusFinalized {
			return lastStatus, nil
		}

		if polls%finalizeExpiryEvery == 0 {
			expired, err := d.checkExpiry(ctx, signature, lastValidBlockHeight, lastStatus, logger)
			if err != nil {
				return lastStatus, err
			}
			if expired {
				// Confirmed but gone past expiry without finalizing. The
				// transaction may sit on an abandoned fork; no verdict.
				return lastStatus, &exchange.AmbiguousError{Signature: signature, LastStatus: lastStatus}
			}
		}

		if err := sleepCtx(ctx, d.pollEvery); err != nil {
			return lastStatus, &exchange.AmbiguousError{Signature: signature, LastStatus: lastStatus}
		}
	}
}

// pollStatus fetches the current status of a signature. The returned txErr
// is the on-chain execution error when status is StatusError.
func (d *DEX) pollStatus(ctx context.Context, signature solana.Signature) (exchange.ConfirmationStatus, interface{}, error) {
	statuses, err := d.client.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return exchange.StatusPending, nil, err
	}
	if len(statuses.Value) == 0 || statuses.Value[0] == nil {
		return exchange.StatusPending, nil, nil
	}

	st := statuses.Value[0]
	if st.Err != nil {
		return exchange.StatusError, st.Err, nil
	}
	switch st.ConfirmationStatus {
	case rpc.ConfirmationStatusProcessed:
		return exchange.StatusProcessed, nil, nil
	case rpc.ConfirmationStatusConfirmed:
		return exchange.StatusConfirmed, nil, nil
	case rpc.ConfirmationStatusFinalized:
		return exchange.StatusFinalized, nil, nil
	default:
		return exchange.StatusPending, nil, nil
	}
}

// retainStatus enforces monotonic status progression. A regression means an
// RPC node lagging behind another; it is logged and the higher status kept.
func retainStatus(last, observed exchange.ConfirmationStatus, logger *zap.Logger) exchange.ConfirmationStatus {
	if observed == exchange.StatusError {
		return observed
	}
	if observed < last {
		logger.Warn("status regression ignored",
			zap.String("last", last.String()),
			zap.String("observed", observed.String()))
		return last
	}
	return observed
}

// checkExpiry consults the finalized block height. Without a known expiry
// bound the outcome cannot be proven and the run ends ambiguous.
func (d *DEX) checkExpiry(ctx context.Context, signature solana.Signature, lastValidBlockHeight uint64, lastStatus exchange.ConfirmationStatus, logger *zap.Logger) (bool, error) {
	if lastValidBlockHeight == 0 {
		return false, &exchange.AmbiguousError{Signature: signature, LastStatus: lastStatus}
	}
	height, err := d.client.GetBlockHeight(ctx, rpc.CommitmentFinalized)
	if err != nil {
		logger.Debug("expiry check failed", zap.Error(err))
		return false, nil
	}
	return height > lastValidBlockHeight, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
