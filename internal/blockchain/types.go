// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TransactionOptions controls how a transaction is submitted.
type TransactionOptions struct {
	SkipPreflight       bool
	MaxRetries          *uint
	PreflightCommitment rpc.CommitmentType
}

// SimulationResult is the outcome of a transaction dry-run.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}

// Client is the ledger interface consumed by the swap pipeline. It is the
// seam the state machine and settlement parser are tested against.
type Client interface {
	// GetLatestBlockhash returns the most recent blockhash together with
	// the last ledger height at which a transaction using it may land.
	GetLatestBlockhash(ctx context.Context) (solana.Hash, uint64, error)
	// GetBlockHeight returns the current ledger height at the given
	// commitment. The finalized height is the authoritative expiry oracle.
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	// GetAccountInfo fetches raw account data.
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	// GetBalance fetches the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
	// SendTransactionWithOpts submits a signed transaction.
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts TransactionOptions) (solana.Signature, error)
	// SimulateTransaction dry-runs a transaction against current state.
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error)
	// GetSignatureStatuses polls confirmation status for signatures.
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	// GetTransaction fetches a landed transaction with its meta for
	// settlement parsing.
	GetTransaction(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) (*rpc.GetTransactionResult, error)
	// GetTokenAccountsByOwner lists SPL token accounts owned by a wallet.
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) (*rpc.GetTokenAccountsResult, error)
	// GetTokenAccountBalance fetches a token account balance.
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (*rpc.GetTokenAccountBalanceResult, error)
}
