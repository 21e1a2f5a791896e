package ethereum

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

func header(n int64) *types.Header {
	return &types.Header{Number: big.NewInt(n), Time: uint64(time.Now().Unix())}
}

func TestSubscriber_ProcessHeaderDropsStale(t *testing.T) {
	s, err := NewSubscriber(SubscriberConfig{BufferSize: 8}, logger.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	for _, n := range []int64{5, 6, 6, 4, 7} {
		s.processHeader(ctx, header(n), n%2 == 0)
	}

	var got []uint64
	for len(s.blocks) > 0 {
		got = append(got, (<-s.blocks).Number)
	}
	assert.Equal(t, []uint64{5, 6, 7}, got)
	assert.Equal(t, uint64(7), s.Status().LastBlock)
}

func TestSubscriber_CloseIsIdempotent(t *testing.T) {
	s, err := NewSubscriber(SubscriberConfig{BufferSize: 1}, logger.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, domain.StateDisconnected, s.State())

	_, err = s.Subscribe(context.Background())
	assert.Error(t, err)
}

func TestSubscriberConfigFrom_Backoff(t *testing.T) {
	cfg := SubscriberConfigFrom(config.EthereumConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     5 * time.Second,
	})
	s, err := NewSubscriber(cfg, logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 12*time.Second, cfg.PollInterval)
	assert.Equal(t, time.Second, s.backoff(1))
	assert.Equal(t, 2*time.Second, s.backoff(2))
	assert.Equal(t, 4*time.Second, s.backoff(3))
	assert.Equal(t, 5*time.Second, s.backoff(4))
	assert.Equal(t, 5*time.Second, s.backoff(10))
}
