// Package erc20 resolves token metadata from the static asset table and on-chain.
package erc20

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"

	chaindomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/business/flashloan/app"
	"github.com/fd1az/flashloan-arb/business/flashloan/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

// DefaultCacheSize bounds the on-chain metadata memo.
const DefaultCacheSize = 512

var _ app.TokenResolver = (*Resolver)(nil)

// Caller runs read-only contract calls.
type Caller interface {
	Call(ctx context.Context, req chaindomain.CallRequest) ([]any, error)
}

// Resolver looks tokens up in the asset registry first and on-chain second.
type Resolver struct {
	caller   Caller
	registry *asset.Registry
	chainID  uint64
	abi      abi.ABI
	cache    *lru.Cache
	log      logger.LoggerInterface
}

// NewResolver creates a Resolver memoising up to cacheSize on-chain lookups.
func NewResolver(caller Caller, registry *asset.Registry, chainID uint64, cacheSize int, log logger.LoggerInterface) (*Resolver, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &Resolver{
		caller:   caller,
		registry: registry,
		chainID:  chainID,
		abi:      parsed,
		cache:    cache,
		log:      log,
	}, nil
}

// Resolve returns symbol, decimals and class for token.
func (r *Resolver) Resolve(ctx context.Context, token common.Address) (domain.TokenMeta, error) {
	if a, ok := r.registry.GetToken(r.chainID, token); ok {
		return domain.TokenMeta{Address: token, Symbol: a.Symbol(), Decimals: a.Decimals(), Class: a.Class()}, nil
	}

	if v, ok := r.cache.Get(token); ok {
		return v.(domain.TokenMeta), nil
	}

	decimals, err := r.decimals(ctx, token)
	if err != nil {
		return domain.TokenMeta{}, err
	}
	symbol, err := r.symbol(ctx, token)
	if err != nil {
		// Some tokens return bytes32 symbols; the address still identifies them.
		r.log.Debug(ctx, "token symbol unavailable", "token", token.Hex(), "error", err)
		symbol = token.Hex()
	}

	meta := domain.TokenMeta{
		Address:  token,
		Symbol:   strings.ToUpper(symbol),
		Decimals: decimals,
		Class:    asset.ClassDefault,
	}
	r.cache.Add(token, meta)
	return meta, nil
}

func (r *Resolver) decimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := r.caller.Call(ctx, chaindomain.CallRequest{To: token, ABI: &r.abi, Method: "decimals"})
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, apperror.New(apperror.CodeContractCallFailed, apperror.WithContext("decimals empty response"))
	}
	switch v := out[0].(type) {
	case uint8:
		return v, nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("unexpected decimals type %T", out[0])))
	}
}

func (r *Resolver) symbol(ctx context.Context, token common.Address) (string, error) {
	out, err := r.caller.Call(ctx, chaindomain.CallRequest{To: token, ABI: &r.abi, Method: "symbol"})
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", apperror.New(apperror.CodeContractCallFailed, apperror.WithContext("symbol empty response"))
	}
	s, ok := out[0].(string)
	if !ok || s == "" {
		return "", apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("unexpected symbol %v", out[0])))
	}
	return s, nil
}

// Len returns the number of memoised on-chain lookups.
func (r *Resolver) Len() int {
	return r.cache.Len()
}
