// Package events implements the event broadcaster bounded context.
package events

import (
	"context"
	"time"

	"github.com/fd1az/flashloan-arb/business/events/app"
	eventsDI "github.com/fd1az/flashloan-arb/business/events/di"
	"github.com/fd1az/flashloan-arb/business/events/infra/logsub"
	"github.com/fd1az/flashloan-arb/business/events/infra/redispub"
	"github.com/fd1az/flashloan-arb/business/events/infra/sqlitestore"
	"github.com/fd1az/flashloan-arb/business/events/infra/webhook"
	"github.com/fd1az/flashloan-arb/business/events/infra/websocket"
	rediscache "github.com/fd1az/flashloan-arb/internal/cache/redis"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

// Module implements the events bounded context.
type Module struct{}

// RegisterServices registers all events services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Broadcaster (public - every module publishes through it)
	di.RegisterToken(c, eventsDI.Broadcaster, func(sr di.ServiceRegistry) *app.Broadcaster {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		b, err := app.NewBroadcaster(log,
			app.WithQueueSize(cfg.Events.QueueSize),
			app.WithSendTimeout(cfg.Events.SendTimeout))
		if err != nil {
			panic("failed to create broadcaster: " + err.Error())
		}
		b.Register("log", logsub.New(log))
		return b
	})

	// Register RedisClient (public - shared with the arbitrage key store)
	di.RegisterToken(c, eventsDI.RedisClient, func(sr di.ServiceRegistry) *rediscache.Client {
		cfg := sr.Get("config").(*config.Config)

		return rediscache.NewLazy(rediscache.ClientConfig{
			Addr:     cfg.Events.Redis.Addr,
			Password: cfg.Events.Redis.Password,
			DB:       cfg.Events.Redis.DB,
		})
	})

	// Register EventServer (private - /events websocket endpoint)
	di.RegisterToken(c, eventsDI.EventServer, func(sr di.ServiceRegistry) *websocket.Server {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return websocket.NewServer(cfg.Events.WebSocketAddr, cfg.Events.SubscriberBuffer, eventsDI.GetBroadcaster(sr), log)
	})

	return nil
}

// Startup attaches the configured subscribers and starts the websocket endpoint.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	sr := mono.Services()

	b := eventsDI.GetBroadcaster(sr)
	sinks := []string{"log"}

	if cfg.Events.WebSocketAddr != "" {
		server := eventsDI.GetEventServer(sr)
		server.Start()
		mono.OnClose(server)
		sinks = append(sinks, "websocket")
	}

	if cfg.Events.Redis.Enabled {
		client := eventsDI.GetRedisClient(sr)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn(ctx, "redis unavailable, event publishing disabled", "addr", cfg.Events.Redis.Addr, "error", err)
		} else {
			b.Register("redis", redispub.New(client, cfg.Events.Redis.Channel))
			sinks = append(sinks, "redis")
		}
	}
	if cfg.Events.Redis.Enabled || cfg.Arbitrage.KeyStore == "redis" {
		mono.OnClose(eventsDI.GetRedisClient(sr))
	}

	if cfg.Events.SQLite.Enabled {
		recorder, err := sqlitestore.Open(cfg.Events.SQLite.Path)
		if err != nil {
			return err
		}
		mono.OnClose(recorder)
		b.Register("sqlite", recorder)
		sinks = append(sinks, "sqlite")
	}

	if cfg.Events.Webhook.URL != "" {
		poster, err := webhook.New(cfg.Events.Webhook.URL, cfg.Events.Webhook.Timeout)
		if err != nil {
			return err
		}
		b.Register("webhook", poster)
		sinks = append(sinks, "webhook")
	}

	// Registered last so queued events drain before the sinks above close.
	mono.OnClose(b)

	log.Info(ctx, "events module started",
		"sinks", sinks,
		"websocket_addr", cfg.Events.WebSocketAddr)
	return nil
}
