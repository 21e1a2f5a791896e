// Package balancer reads pool balances from a Balancer V2 style vault.
package balancer

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	chaindomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/business/flashloan/app"
	"github.com/fd1az/flashloan-arb/business/flashloan/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// VaultABI is the subset of the vault interface used for capacity discovery.
const VaultABI = `[
	{
		"inputs": [{"internalType": "bytes32", "name": "poolId", "type": "bytes32"}],
		"name": "getPoolTokens",
		"outputs": [
			{"internalType": "contract IERC20[]", "name": "tokens", "type": "address[]"},
			{"internalType": "uint256[]", "name": "balances", "type": "uint256[]"},
			{"internalType": "uint256", "name": "lastChangeBlock", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

var _ app.PoolReader = (*Vault)(nil)

// Caller runs read-only contract calls.
type Caller interface {
	Call(ctx context.Context, req chaindomain.CallRequest) ([]any, error)
}

// Vault implements app.PoolReader.
type Vault struct {
	caller  Caller
	address common.Address
	abi     abi.ABI
}

// NewVault creates a vault reader for address.
func NewVault(caller Caller, address common.Address) (*Vault, error) {
	parsed, err := abi.JSON(strings.NewReader(VaultABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault ABI: %w", err)
	}
	return &Vault{caller: caller, address: address, abi: parsed}, nil
}

// GetPoolTokens calls getPoolTokens(poolID) at latest.
func (v *Vault) GetPoolTokens(ctx context.Context, poolID common.Hash) (domain.PoolTokens, error) {
	out, err := v.caller.Call(ctx, chaindomain.CallRequest{
		To:     v.address,
		ABI:    &v.abi,
		Method: "getPoolTokens",
		Args:   []any{[32]byte(poolID)},
	})
	if err != nil {
		return domain.PoolTokens{}, err
	}
	if len(out) != 3 {
		return domain.PoolTokens{}, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("getPoolTokens: %d outputs", len(out))))
	}

	tokens, ok1 := out[0].([]common.Address)
	balances, ok2 := out[1].([]*big.Int)
	lastChange, ok3 := out[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return domain.PoolTokens{}, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("getPoolTokens: unexpected types %T %T %T", out[0], out[1], out[2])))
	}

	return domain.PoolTokens{
		PoolID:          poolID,
		Tokens:          tokens,
		Balances:        balances,
		LastChangeBlock: lastChange.Uint64(),
	}, nil
}

// ParsePoolID decodes a 0x-prefixed 32-byte pool id.
func ParsePoolID(s string) (common.Hash, error) {
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return common.Hash{}, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("pool id "+s))
	}
	if len(b) != common.HashLength {
		return common.Hash{}, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("pool id %s: %d bytes, want 32", s, len(b))))
	}
	return common.BytesToHash(b), nil
}
