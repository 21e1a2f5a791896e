// Package redispub publishes events as JSON on a Redis channel.
package redispub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/fd1az/flashloan-arb/business/events/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	rediscache "github.com/fd1az/flashloan-arb/internal/cache/redis"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "arbitrage:events"

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Publisher is a subscriber that forwards every event to Redis pub/sub.
type Publisher struct {
	rdb     publisher
	channel string
}

// New creates a publisher on channel.
func New(c *rediscache.Client, channel string) *Publisher {
	return newPublisher(c.Underlying(), channel)
}

func newPublisher(rdb publisher, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{rdb: rdb, channel: channel}
}

// Send publishes e. Publishing with no listeners is not an error.
func (p *Publisher) Send(ctx context.Context, e domain.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return apperror.New(apperror.CodeSubscriberSendFailed, apperror.WithCause(err))
	}
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		return apperror.New(apperror.CodeSubscriberSendFailed,
			apperror.WithCause(err),
			apperror.WithContext("redis publish "+p.channel))
	}
	return nil
}
