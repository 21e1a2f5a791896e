package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_TryBeginIsExclusive(t *testing.T) {
	s := NewState(nil)

	require.True(t, s.TryBegin("a"))
	assert.False(t, s.TryBegin("b"))

	key, ok := s.InFlight()
	assert.True(t, ok)
	assert.Equal(t, "a", key)

	s.Finish("b")
	_, ok = s.InFlight()
	assert.True(t, ok, "finishing another key must not release the slot")

	s.Finish("a")
	_, ok = s.InFlight()
	assert.False(t, ok)
	assert.True(t, s.TryBegin("b"))
}

func TestState_TryBeginConcurrent(t *testing.T) {
	s := NewState(nil)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.TryBegin("k") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestState_Running(t *testing.T) {
	s := NewState(nil)

	assert.False(t, s.IsRunning())
	assert.True(t, s.setRunning(true))
	assert.False(t, s.setRunning(true))
	assert.True(t, s.IsRunning())
	assert.True(t, s.setRunning(false))
}

func TestMemoryKeyStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryKeyStore()

	has, err := m.Has(ctx, "WETH/USDC|a|b|100")
	require.NoError(t, err)
	assert.False(t, has)

	added, err := m.Add(ctx, "WETH/USDC|a|b|100")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = m.Add(ctx, "WETH/USDC|a|b|100")
	require.NoError(t, err)
	assert.False(t, added)

	has, _ = m.Has(ctx, "WETH/USDC|a|b|100")
	assert.True(t, has)
	assert.Equal(t, 1, m.Len())
}
