// Package solkit is the execution facade: price probes, buys, sells and
// plain transfers against a configured venue, with pool and token reference
// data cached between calls.
package solkit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solkit/solkit/internal/blockchain"
	"github.com/solkit/solkit/internal/blockchain/solbc"
	"github.com/solkit/solkit/internal/config"
	"github.com/solkit/solkit/internal/exchange"
	"github.com/solkit/solkit/internal/exchange/raydium"
	"github.com/solkit/solkit/internal/fees"
	"github.com/solkit/solkit/internal/logger"
	"github.com/solkit/solkit/internal/types"
	"github.com/solkit/solkit/internal/wallet"
)

// mint account layout: decimals byte follows the authority option and supply
const mintDecimalsOffset = 44

// Amount is a settled quantity in both smallest units and UI form.
type Amount struct {
	Value   uint64
	ValueUI float64
}

// Kit drives swap execution for one venue. Pool and token caches refresh on
// miss and are read-only to the execution path.
type Kit struct {
	client   blockchain.Client
	exchange exchange.Exchange
	logger   *zap.Logger
	opts     exchange.ExecOptions
	slippage types.Percent

	mu     sync.RWMutex
	pools  map[string]exchange.Pool
	tokens map[string]types.Token
}

// New wires a Kit from configuration: RPC client, fee estimator and the
// Raydium venue.
func New(cfg *config.Config, logger *zap.Logger) (*Kit, error) {
	slippage, err := types.ParsePercent(cfg.Slippage)
	if err != nil {
		return nil, fmt.Errorf("invalid slippage: %w", err)
	}

	client := solbc.NewClient(cfg.RPCEndpoint, logger)
	estimator := fees.NewEstimator(fees.Config{
		Endpoint:    cfg.FeeEndpoint,
		Account:     cfg.FeeAccount,
		LastNBlocks: cfg.FeeLastNBlocks,
	}, logger)

	opts := exchange.ExecOptions{
		MaxFeeFraction:      cfg.MaxFeeFraction,
		ComputeBudgetMargin: cfg.ComputeMargin,
		Simulate:            cfg.Simulate,
		ReQuote:             cfg.ReQuote,
		FeeLevel:            fees.Level(cfg.FeeLevel),
		WaitForBlock:        cfg.WaitForBlock,
		Finalize:            cfg.Finalize,
	}

	return NewKit(client, raydium.New(client, estimator, logger), opts, slippage, logger), nil
}

// NewKit assembles a Kit from explicit parts.
func NewKit(client blockchain.Client, ex exchange.Exchange, opts exchange.ExecOptions, slippage types.Percent, logger *zap.Logger) *Kit {
	return &Kit{
		client:   client,
		exchange: ex,
		logger:   logger.Named("solkit"),
		opts:     opts,
		slippage: slippage,
		pools:    make(map[string]exchange.Pool),
		tokens:   make(map[string]types.Token),
	}
}

// Price returns the current lamport value of one whole base token, probed
// with a throwaway 1% slippage quote.
func (k *Kit) Price(ctx context.Context, poolID string) (uint64, error) {
	pool, err := k.pool(ctx, poolID)
	if err != nil {
		return 0, err
	}
	token, err := k.token(ctx, pool.BaseMint())
	if err != nil {
		return 0, err
	}

	probe, _ := types.ParsePercent(1)
	one := types.UIToRaw(1, token.Decimals)
	quote, err := k.exchange.GetQuote(ctx, pool.Address(), exchange.DirectionSell, one, probe)
	if err != nil {
		return 0, err
	}
	return quote.AmountOut, nil
}

// Buy spends solAmount SOL for the pool's base token and returns the
// realized proceeds. A zero slippagePct uses the configured default.
func (k *Kit) Buy(ctx context.Context, w *wallet.Wallet, poolID string, solAmount, slippagePct float64) (*Amount, error) {
	pool, err := k.pool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	token, err := k.token(ctx, pool.BaseMint())
	if err != nil {
		return nil, err
	}

	result, err := k.swap(ctx, w, pool, exchange.DirectionBuy, types.SOLToLamports(solAmount), slippagePct)
	if err != nil {
		return nil, err
	}
	return &Amount{
		Value:   result.RealizedAmountOut,
		ValueUI: types.RawToUI(result.RealizedAmountOut, token.Decimals),
	}, nil
}

// Sell trades tokenAmount of the pool's base token for SOL.
func (k *Kit) Sell(ctx context.Context, w *wallet.Wallet, poolID string, tokenAmount, slippagePct float64) (*Amount, error) {
	pool, err := k.pool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	token, err := k.token(ctx, pool.BaseMint())
	if err != nil {
		return nil, err
	}

	result, err := k.swap(ctx, w, pool, exchange.DirectionSell, types.UIToRaw(tokenAmount, token.Decimals), slippagePct)
	if err != nil {
		return nil, err
	}
	return &Amount{
		Value:   result.RealizedAmountOut,
		ValueUI: types.RawToUI(result.RealizedAmountOut, types.SOL.Decimals),
	}, nil
}

func (k *Kit) swap(ctx context.Context, w *wallet.Wallet, pool exchange.Pool, direction exchange.Direction, amountIn uint64, slippagePct float64) (*exchange.SwapResult, error) {
	slippage := k.slippage
	if slippagePct > 0 {
		parsed, err := types.ParsePercent(slippagePct)
		if err != nil {
			return nil, err
		}
		slippage = parsed
	}

	log := logger.WithSwap(k.logger, pool.Address().String())

	quote, err := k.exchange.GetQuote(ctx, pool.Address(), direction, amountIn, slippage)
	if err != nil {
		return nil, err
	}
	log.Info("quote obtained",
		zap.String("direction", direction.String()),
		zap.Uint64("amount_in", quote.AmountIn),
		zap.Uint64("amount_out", quote.AmountOut),
		zap.Uint64("min_amount_out", quote.MinAmountOut))

	built, err := k.exchange.BuildSwap(ctx, w, quote, k.opts)
	if err != nil {
		return nil, err
	}

	// The destination balance before submission is the baseline for
	// reconciling an ambiguous outcome afterwards.
	destination, err := w.GetATA(quote.TokenOut)
	if err != nil {
		return nil, err
	}
	before, beforeErr := k.tokenBalance(ctx, destination)

	result, err := k.exchange.ExecuteSwap(ctx, w, built, k.opts)
	if err != nil {
		var ambiguous *exchange.AmbiguousError
		if errors.As(err, &ambiguous) && beforeErr == nil {
			return k.reconcile(ctx, log, built, destination, before, ambiguous)
		}
		return nil, err
	}

	log.Info("swap settled",
		zap.String("status", result.Status.String()),
		zap.Uint64("realized_amount_out", result.RealizedAmountOut),
		zap.Uint64("fee_paid", result.FeePaid))
	return result, nil
}

// reconcile settles an ambiguous outcome by observation: if the
// destination token account grew past its pre-submission baseline the
// swap landed, and the growth is the realized output. No growth proves
// nothing, so the ambiguity stands.
func (k *Kit) reconcile(ctx context.Context, log *zap.Logger, built *exchange.BuiltSwap, destination solana.PublicKey, before uint64, ambiguous *exchange.AmbiguousError) (*exchange.SwapResult, error) {
	after, err := k.tokenBalance(ctx, destination)
	if err != nil {
		log.Warn("balance reconciliation failed", zap.Error(err))
		return nil, ambiguous
	}
	if after <= before {
		log.Warn("destination balance unchanged, outcome remains ambiguous",
			zap.String("signature", ambiguous.Signature.String()))
		return nil, ambiguous
	}

	realized := after - before
	log.Info("ambiguous outcome reconciled by balance growth",
		zap.String("signature", ambiguous.Signature.String()),
		zap.Uint64("realized_amount_out", realized))
	return &exchange.SwapResult{
		Signature:         ambiguous.Signature,
		Status:            ambiguous.LastStatus,
		AmountOut:         built.Quote.AmountOut,
		MinAmountOut:      built.Quote.MinAmountOut,
		RealizedAmountOut: realized,
	}, nil
}

// tokenBalance reads a token account balance in smallest units. A missing
// account reads as zero; it simply has not been created yet.
func (k *Kit) tokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	resp, err := k.client.GetTokenAccountBalance(ctx, account)
	if err != nil {
		if solbc.IsAccountNotFoundError(err) {
			return 0, nil
		}
		return 0, err
	}
	if resp == nil || resp.Value == nil {
		return 0, fmt.Errorf("empty balance response for %s", account)
	}
	return strconv.ParseUint(resp.Value.Amount, 10, 64)
}

// Send transfers solAmount SOL to another account and waits for
// confirmation.
func (k *Kit) Send(ctx context.Context, w *wallet.Wallet, to string, solAmount float64) (*Amount, error) {
	recipient, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	lamports := types.SOLToLamports(solAmount)

	blockhash, lastValidBlockHeight, err := k.client.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}

	transferIx := system.NewTransferInstruction(lamports, w.PublicKey, recipient).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{transferIx}, blockhash, solana.TransactionPayer(w.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer: %w", err)
	}
	if err := w.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to sign transfer: %w", err)
	}

	sig, err := k.client.SendTransactionWithOpts(ctx, tx, blockchain.TransactionOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to send transfer: %w", err)
	}

	logger.WithTransaction(k.logger, sig.String()).Info("transfer sent",
		zap.String("to", recipient.String()),
		zap.Uint64("lamports", lamports))

	if _, err := k.exchange.ConfirmTransaction(ctx, sig, lastValidBlockHeight); err != nil {
		return nil, err
	}
	return &Amount{
		Value:   lamports,
		ValueUI: types.RawToUI(lamports, types.SOL.Decimals),
	}, nil
}

// Balance returns the wallet's SOL balance.
func (k *Kit) Balance(ctx context.Context, w *wallet.Wallet) (*Amount, error) {
	lamports, err := k.client.GetBalance(ctx, w.PublicKey, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return &Amount{
		Value:   lamports,
		ValueUI: types.RawToUI(lamports, types.SOL.Decimals),
	}, nil
}

// PrewarmPools loads pool and token reference data ahead of trading.
func (k *Kit) PrewarmPools(ctx context.Context, poolIDs []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, id := range poolIDs {
		g.Go(func() error {
			pool, err := k.pool(ctx, id)
			if err != nil {
				return err
			}
			_, err = k.token(ctx, pool.BaseMint())
			return err
		})
	}
	return g.Wait()
}

// pool returns cached pool state, fetching on miss.
func (k *Kit) pool(ctx context.Context, poolID string) (exchange.Pool, error) {
	k.mu.RLock()
	cached, ok := k.pools[poolID]
	k.mu.RUnlock()
	if ok {
		return cached, nil
	}

	id, err := solana.PublicKeyFromBase58(poolID)
	if err != nil {
		return nil, fmt.Errorf("invalid pool id %q: %w", poolID, err)
	}
	pool, err := k.exchange.GetPool(ctx, id)
	if err != nil {
		return nil, err
	}

	k.mu.Lock()
	k.pools[poolID] = pool
	k.mu.Unlock()
	return pool, nil
}

// token returns cached token reference data, reading mint decimals from the
// ledger on miss.
func (k *Kit) token(ctx context.Context, mint solana.PublicKey) (types.Token, error) {
	key := mint.String()
	k.mu.RLock()
	cached, ok := k.tokens[key]
	k.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if types.IsNativeMint(mint) {
		k.mu.Lock()
		k.tokens[key] = types.SOL
		k.mu.Unlock()
		return types.SOL, nil
	}

	account, err := k.client.GetAccountInfo(ctx, mint)
	if err != nil {
		return types.Token{}, fmt.Errorf("failed to get mint %s: %w", mint, err)
	}
	if account == nil || account.Value == nil {
		return types.Token{}, fmt.Errorf("mint %s not found", mint)
	}
	data := account.Value.Data.GetBinary()
	if len(data) <= mintDecimalsOffset {
		return types.Token{}, fmt.Errorf("mint %s account too short", mint)
	}

	token := types.Token{Mint: mint, Decimals: data[mintDecimalsOffset]}
	k.mu.Lock()
	k.tokens[key] = token
	k.mu.Unlock()
	return token, nil
}
