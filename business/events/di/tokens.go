// Package di contains dependency injection tokens for the events context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/events/app"
	"github.com/fd1az/flashloan-arb/business/events/infra/websocket"
	rediscache "github.com/fd1az/flashloan-arb/internal/cache/redis"
	"github.com/fd1az/flashloan-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Broadcaster = di.NewToken[*app.Broadcaster]("events.Broadcaster")
	RedisClient = di.NewToken[*rediscache.Client]("events.RedisClient")
)

// Private dependency tokens - internal to events module
var (
	EventServer = di.NewToken[*websocket.Server]("events:server")
)

// Helper functions for type-safe access
func GetBroadcaster(c di.ServiceRegistry) *app.Broadcaster {
	return di.GetToken(c, Broadcaster)
}

func GetRedisClient(c di.ServiceRegistry) *rediscache.Client {
	return di.GetToken(c, RedisClient)
}

func GetEventServer(c di.ServiceRegistry) *websocket.Server {
	return di.GetToken(c, EventServer)
}
