package router

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chaindomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

type fakeCaller struct {
	out  []any
	err  error
	last chaindomain.CallRequest
}

func (f *fakeCaller) Call(_ context.Context, req chaindomain.CallRequest) ([]any, error) {
	f.last = req
	return f.out, f.err
}

type revertError struct{}

func (revertError) Error() string          { return "execution reverted" }
func (revertError) ErrorData() interface{} { return "0x" }

var uni = domain.DEX{Name: "uniswap", Router: common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")}

func TestGetAmountsOut(t *testing.T) {
	caller := &fakeCaller{out: []any{[]*big.Int{big.NewInt(10), big.NewInt(25)}}}
	p, err := NewProvider(caller, logger.NewNop())
	require.NoError(t, err)

	path := []common.Address{common.HexToAddress("0x01"), common.HexToAddress("0x02")}
	amounts, err := p.GetAmountsOut(context.Background(), uni, big.NewInt(10), path, 123)
	require.NoError(t, err)
	assert.Equal(t, "25", amounts[1].String())

	assert.Equal(t, uni.Router, caller.last.To)
	assert.Equal(t, methodGetAmountsOut, caller.last.Method)
	require.NotNil(t, caller.last.BlockNumber)
	assert.Equal(t, uint64(123), *caller.last.BlockNumber)
	assert.Equal(t, path, caller.last.Args[1])

	// Packing the captured args against the ABI must succeed.
	_, err = caller.last.ABI.Pack(caller.last.Method, caller.last.Args...)
	require.NoError(t, err)
}

func TestGetAmountsOut_Errors(t *testing.T) {
	tests := []struct {
		name     string
		caller   *fakeCaller
		wantCode apperror.Code
	}{
		{name: "rpc_failure", caller: &fakeCaller{err: errors.New("dial tcp: refused")}, wantCode: apperror.CodeContractCallFailed},
		{name: "app_error_passthrough", caller: &fakeCaller{err: apperror.New(apperror.CodeEthereumRPCError)}, wantCode: apperror.CodeEthereumRPCError},
		{name: "wrong_type", caller: &fakeCaller{out: []any{"nope"}}, wantCode: apperror.CodeInvalidQuote},
		{name: "wrong_length", caller: &fakeCaller{out: []any{}}, wantCode: apperror.CodeInvalidQuote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.caller, logger.NewNop())
			require.NoError(t, err)

			_, err = p.GetAmountsOut(context.Background(), uni, big.NewInt(1), nil, 0)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tt.wantCode), "got %v", err)
			assert.Nil(t, tt.caller.last.BlockNumber)
		})
	}
}

func TestGetAmountsOut_RevertsDoNotTripBreaker(t *testing.T) {
	caller := &fakeCaller{err: revertError{}}
	p, err := NewProvider(caller, logger.NewNop())
	require.NoError(t, err)

	for range 20 {
		_, err = p.GetAmountsOut(context.Background(), uni, big.NewInt(1), nil, 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	assert.Equal(t, "closed", p.breaker(uni).State().String())
}

func TestIsRevert(t *testing.T) {
	assert.True(t, isRevert(revertError{}))
	assert.True(t, isRevert(apperror.New(apperror.CodeEthereumRPCError, apperror.WithCause(revertError{}))))
	assert.False(t, isRevert(errors.New("timeout")))
}
