// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"context"
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/solkit/solkit/internal/blockchain"
)

// Wallet holds a Solana keypair and caches derived token-account addresses.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
	ATACache   map[string]solana.PublicKey
}

// TokenAccount is an SPL token account owned by the wallet.
type TokenAccount struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Amount  uint64
}

// NewWallet creates a wallet from a base58-encoded private key.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
		ATACache:   make(map[string]solana.PublicKey),
	}, nil
}

// Generate creates a wallet with a fresh random keypair.
func Generate() *Wallet {
	w := solana.NewWallet()
	return &Wallet{
		PrivateKey: w.PrivateKey,
		PublicKey:  w.PublicKey(),
		ATACache:   make(map[string]solana.PublicKey),
	}
}

// LoadWallets loads wallets from a CSV file with columns [Name, PrivateKeyBase58].
func LoadWallets(path string) (map[string]*Wallet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV file is empty or missing data")
	}

	wallets := make(map[string]*Wallet)
	for _, record := range records[1:] {
		if len(record) != 2 {
			continue
		}
		name := record[0]
		w, err := NewWallet(record[1])
		if err != nil {
			continue
		}
		wallets[name] = w
	}
	return wallets, nil
}

// SignTransaction signs the transaction with the wallet's private key.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// GetATA returns the associated token account address for a mint, caching
// the derivation.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	mintStr := mint.String()
	if ata, ok := w.ATACache[mintStr]; ok {
		return ata, nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	w.ATACache[mintStr] = ata
	return ata, nil
}

// PrecomputeATAs derives ATAs for a list of mints up front.
func (w *Wallet) PrecomputeATAs(mints []solana.PublicKey) error {
	for _, mint := range mints {
		if _, err := w.GetATA(mint); err != nil {
			return fmt.Errorf("failed to precompute ATA for mint %s: %w", mint.String(), err)
		}
	}
	return nil
}

// OwnedTokenAccounts lists the wallet's SPL token accounts with their mints
// and balances.
func (w *Wallet) OwnedTokenAccounts(ctx context.Context, client blockchain.Client) ([]TokenAccount, error) {
	result, err := client.GetTokenAccountsByOwner(ctx, w.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token accounts: %w", err)
	}

	accounts := make([]TokenAccount, 0, len(result.Value))
	for _, item := range result.Value {
		data := item.Account.Data.GetBinary()
		if len(data) < 72 {
			continue
		}
		accounts = append(accounts, TokenAccount{
			Address: item.Pubkey,
			Mint:    solana.PublicKeyFromBytes(data[0:32]),
			Amount:  binary.LittleEndian.Uint64(data[64:72]),
		})
	}
	return accounts, nil
}

// ReclaimRent closes all empty token accounts to recover their rent,
// batching close instructions into transactions of up to ten accounts.
func (w *Wallet) ReclaimRent(ctx context.Context, client blockchain.Client, logger *zap.Logger) error {
	accounts, err := w.OwnedTokenAccounts(ctx, client)
	if err != nil {
		return err
	}

	var empty []TokenAccount
	for _, account := range accounts {
		if account.Amount == 0 {
			empty = append(empty, account)
		}
	}
	if len(empty) == 0 {
		return nil
	}

	blockhash, _, err := client.GetLatestBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("failed to get blockhash: %w", err)
	}

	const chunkSize = 10
	var signatures []solana.Signature
	for start := 0; start < len(empty); start += chunkSize {
		end := start + chunkSize
		if end > len(empty) {
			end = len(empty)
		}

		var instructions []solana.Instruction
		for _, account := range empty[start:end] {
			closeIx := token.NewCloseAccountInstructionBuilder().
				SetAccount(account.Address).
				SetDestinationAccount(w.PublicKey).
				SetOwnerAccount(w.PublicKey).
				Build()
			instructions = append(instructions, closeIx)
		}

		tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(w.PublicKey))
		if err != nil {
			return fmt.Errorf("failed to build reclaim transaction: %w", err)
		}
		if err := w.SignTransaction(tx); err != nil {
			return fmt.Errorf("failed to sign reclaim transaction: %w", err)
		}

		sig, err := client.SendTransactionWithOpts(ctx, tx, blockchain.TransactionOptions{})
		if err != nil {
			logger.Warn("reclaim transaction failed to send", zap.Error(err))
			continue
		}
		signatures = append(signatures, sig)
	}

	logger.Info("reclaiming rent",
		zap.Int("empty_accounts", len(empty)),
		zap.Int("transactions", len(signatures)))

	if len(signatures) == 0 {
		return nil
	}

	statuses, err := client.GetSignatureStatuses(ctx, signatures...)
	if err != nil {
		return fmt.Errorf("failed to check reclaim statuses: %w", err)
	}
	for i, status := range statuses.Value {
		if status == nil || status.Err != nil {
			logger.Warn("reclaim transaction not confirmed",
				zap.String("signature", signatures[i].String()))
		}
	}
	return nil
}

// String returns the wallet's public key.
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
