package redispub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/events/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	rediscache "github.com/fd1az/flashloan-arb/internal/cache/redis"
)

type fakeRedis struct {
	channel string
	message []byte
	err     error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	f.channel = channel
	f.message, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	cmd.SetVal(1)
	return cmd
}

func TestPublisher_SendsJSON(t *testing.T) {
	fake := &fakeRedis{}
	p := newPublisher(fake, "")

	e := domain.NewEvent(domain.EventOpportunity, map[string]string{"pair": "WETH/USDC"}, time.Unix(0, 0).UTC())
	require.NoError(t, p.Send(context.Background(), e))

	assert.Equal(t, DefaultChannel, fake.channel)

	var got map[string]any
	require.NoError(t, json.Unmarshal(fake.message, &got))
	assert.Equal(t, e.ID, got["id"])
	assert.Equal(t, "opportunity", got["type"])
}

func TestPublisher_PublishError(t *testing.T) {
	p := newPublisher(&fakeRedis{err: errors.New("connection refused")}, "custom")

	err := p.Send(context.Background(), domain.NewEvent(domain.EventExecution, nil, time.Now()))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeSubscriberSendFailed))
}

func TestPublisher_UnreachableServer(t *testing.T) {
	client := rediscache.NewLazy(rediscache.ClientConfig{Addr: "127.0.0.1:1"})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := New(client, "x").Send(ctx, domain.NewEvent(domain.EventExecution, nil, time.Now()))
	assert.Error(t, err)
}
