// Package di contains dependency injection tokens for the flashloan context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/flashloan/app"
	"github.com/fd1az/flashloan-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Registry = di.NewToken[*app.Registry]("flashloan.Registry")
)

// Private dependency tokens - internal to flashloan module
var (
	PoolReader    = di.NewToken[app.PoolReader]("flashloan:poolReader")
	TokenResolver = di.NewToken[app.TokenResolver]("flashloan:tokenResolver")
)

// Helper functions for type-safe access
func GetRegistry(c di.ServiceRegistry) *app.Registry {
	return di.GetToken(c, Registry)
}

func GetPoolReader(c di.ServiceRegistry) app.PoolReader {
	return di.GetToken(c, PoolReader)
}

func GetTokenResolver(c di.ServiceRegistry) app.TokenResolver {
	return di.GetToken(c, TokenResolver)
}
