// internal/exchange/raydium/settle_test.go
package raydium

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// transferIx encodes an SPL Transfer as a compiled inner instruction using
// account-key indexes.
func transferIx(programIdx, sourceIdx, destIdx, authorityIdx uint16, amount uint64) solana.CompiledInstruction {
	data := make([]byte, 9)
	data[0] = splTransferOpcode
	binary.LittleEndian.PutUint64(data[1:9], amount)
	return solana.CompiledInstruction{
		ProgramIDIndex: programIdx,
		Accounts:       []uint16{sourceIdx, destIdx, authorityIdx},
		Data:           data,
	}
}

func TestSettleFromMeta_AttributesLegs(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	ownerATA := solana.NewWallet().PublicKey()
	poolAuthority := solana.NewWallet().PublicKey()
	poolVaultIn := solana.NewWallet().PublicKey()
	poolVaultOut := solana.NewWallet().PublicKey()

	// keys: 0 owner, 1 ownerATA, 2 authority, 3 vaultIn, 4 vaultOut, 5 token program
	tx := &solana.Transaction{
		Message: solana.Message{
			AccountKeys: []solana.PublicKey{owner, ownerATA, poolAuthority, poolVaultIn, poolVaultOut, TokenProgramID},
		},
	}
	meta := &rpc.TransactionMeta{
		Fee: 5000,
		InnerInstructions: []rpc.InnerInstruction{
			{
				Index: 2,
				Instructions: []solana.CompiledInstruction{
					// outbound: wallet pays into the pool
					transferIx(5, 1, 3, 0, 1_000_000_000),
					// inbound: pool authority pays the wallet
					transferIx(5, 4, 1, 2, 42_000_000),
				},
			},
		},
	}

	settlement, err := settleFromMeta(tx, meta, owner, 700)
	require.NoError(t, err)

	assert.Equal(t, uint64(1_000_000_000), settlement.AmountIn)
	assert.Equal(t, uint64(42_000_000), settlement.AmountOut)
	assert.Equal(t, uint64(5700), settlement.FeePaid, "base fee plus priority fee")
}

func TestSettleFromMeta_NoInboundLeg(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	ownerATA := solana.NewWallet().PublicKey()
	vault := solana.NewWallet().PublicKey()

	tx := &solana.Transaction{
		Message: solana.Message{
			AccountKeys: []solana.PublicKey{owner, ownerATA, vault, TokenProgramID},
		},
	}
	meta := &rpc.TransactionMeta{
		Fee: 5000,
		InnerInstructions: []rpc.InnerInstruction{
			{
				Instructions: []solana.CompiledInstruction{
					// only the outbound leg landed
					transferIx(3, 1, 2, 0, 1_000_000),
				},
			},
		},
	}

	_, err := settleFromMeta(tx, meta, owner, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoInboundTransfer)
}

func TestSettleFromMeta_LookupTableKeys(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	ownerATA := solana.NewWallet().PublicKey()
	poolAuthority := solana.NewWallet().PublicKey()
	loadedVault := solana.NewWallet().PublicKey()

	// Static keys end at index 2; the vault and token program arrive via
	// address lookup, writable before readonly.
	tx := &solana.Transaction{
		Message: solana.Message{
			AccountKeys: []solana.PublicKey{owner, ownerATA, poolAuthority},
		},
	}
	meta := &rpc.TransactionMeta{
		Fee: 5000,
		LoadedAddresses: rpc.LoadedAddresses{
			Writable: []solana.PublicKey{loadedVault},
			ReadOnly: []solana.PublicKey{TokenProgramID},
		},
		InnerInstructions: []rpc.InnerInstruction{
			{
				Instructions: []solana.CompiledInstruction{
					transferIx(4, 3, 1, 2, 9_999),
				},
			},
		},
	}

	settlement, err := settleFromMeta(tx, meta, owner, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(9_999), settlement.AmountOut)
}

func TestDecodeTransfer_SkipsNonTransfers(t *testing.T) {
	keys := []solana.PublicKey{solana.NewWallet().PublicKey(), TokenProgramID}

	// wrong program
	_, ok := decodeTransfer(solana.CompiledInstruction{
		ProgramIDIndex: 0,
		Accounts:       []uint16{0, 0, 0},
		Data:           []byte{splTransferOpcode, 0, 0, 0, 0, 0, 0, 0, 0},
	}, keys)
	assert.False(t, ok)

	// wrong opcode
	_, ok = decodeTransfer(solana.CompiledInstruction{
		ProgramIDIndex: 1,
		Accounts:       []uint16{0, 0, 0},
		Data:           []byte{7, 0, 0, 0, 0, 0, 0, 0, 0},
	}, keys)
	assert.False(t, ok)

	// truncated data
	_, ok = decodeTransfer(solana.CompiledInstruction{
		ProgramIDIndex: 1,
		Accounts:       []uint16{0, 0, 0},
		Data:           []byte{splTransferOpcode, 1},
	}, keys)
	assert.False(t, ok)

	// out-of-range account index
	_, ok = decodeTransfer(solana.CompiledInstruction{
		ProgramIDIndex: 1,
		Accounts:       []uint16{0, 9, 0},
		Data:           []byte{splTransferOpcode, 0, 0, 0, 0, 0, 0, 0, 0},
	}, keys)
	assert.False(t, ok)
}
