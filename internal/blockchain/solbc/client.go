// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/solkit/solkit/internal/blockchain"
)

// Client is a thin adapter over the solana-go RPC client.
type Client struct {
	rpc    *rpc.Client
	logger *zap.Logger
}

var (
	ErrAccountNotFound = errors.New("account not found")
)

// IsAccountNotFoundError reports whether an error means "not found",
// either our own sentinel or an RPC-worded variant.
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAccountNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// NewClient creates a new client for the given RPC endpoint.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc.New(rpcURL),
		logger: logger.Named("solbc-client"),
	}
}

// GetLatestBlockhash returns the latest blockhash and its validity bound.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return solana.Hash{}, 0, err
	}
	return result.Value.Blockhash, result.Value.LastValidBlockHeight, nil
}

// GetBlockHeight returns the current ledger height.
func (c *Client) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	height, err := c.rpc.GetBlockHeight(ctx, commitment)
	if err != nil {
		c.logger.Error("GetBlockHeight error", zap.Error(err))
		return 0, err
	}
	return height, nil
}

// GetAccountInfo fetches account data. A missing account surfaces as
// ErrAccountNotFound rather than an empty result.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	result, err := c.rpc.GetAccountInfo(ctx, pubkey)
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, ErrAccountNotFound
	}
	return result, nil
}

// GetBalance fetches the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, commitment)
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

// SendTransactionWithOpts submits a signed transaction.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		MaxRetries:          opts.MaxRetries,
		PreflightCommitment: opts.PreflightCommitment,
	})
	if err != nil {
		c.logger.Debug("SendTransactionWithOpts error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// SimulateTransaction dry-runs a transaction.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	result, err := c.rpc.SimulateTransaction(ctx, tx)
	if err != nil {
		c.logger.Error("SimulateTransaction error", zap.Error(err))
		return nil, err
	}
	units := uint64(0)
	if result.Value.UnitsConsumed != nil {
		units = *result.Value.UnitsConsumed
	}
	return &blockchain.SimulationResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: units,
	}, nil
}

// GetSignatureStatuses polls transaction statuses.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	result, err := c.rpc.GetSignatureStatuses(ctx, false, signatures...)
	if err != nil {
		c.logger.Debug("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// GetTransaction fetches a landed transaction with its meta.
func (c *Client) GetTransaction(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) (*rpc.GetTransactionResult, error) {
	maxVersion := uint64(0)
	result, err := c.rpc.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		c.logger.Debug("GetTransaction error",
			zap.String("signature", signature.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// GetTokenAccountsByOwner lists SPL token accounts owned by a wallet.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) (*rpc.GetTokenAccountsResult, error) {
	result, err := c.rpc.GetTokenAccountsByOwner(
		ctx,
		owner,
		&rpc.GetTokenAccountsConfig{ProgramId: solana.TokenProgramID.ToPointer()},
		&rpc.GetTokenAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Encoding:   solana.EncodingBase64,
		},
	)
	if err != nil {
		c.logger.Debug("GetTokenAccountsByOwner error",
			zap.String("owner", owner.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// GetTokenAccountBalance fetches a token account balance.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (*rpc.GetTokenAccountBalanceResult, error) {
	return c.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
}

var _ blockchain.Client = (*Client)(nil)
