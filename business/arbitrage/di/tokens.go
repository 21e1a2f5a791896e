// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra/contract"
	"github.com/fd1az/flashloan-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Automation = di.NewToken[*app.Automation]("arbitrage.Automation")
	Detector   = di.NewToken[*app.Detector]("arbitrage.Detector")
	Submitter  = di.NewToken[*app.Submitter]("arbitrage.Submitter")
)

// Private dependency tokens - internal to arbitrage module
var (
	KeyStore         = di.NewToken[app.KeyStore]("arbitrage:keyStore")
	State            = di.NewToken[*app.State]("arbitrage:state")
	ProfitCalculator = di.NewToken[*app.ProfitCalculator]("arbitrage:profitCalculator")
	Encoder          = di.NewToken[*contract.Arbitrage]("arbitrage:encoder")
)

// Helper functions for type-safe access
func GetAutomation(c di.ServiceRegistry) *app.Automation {
	return di.GetToken(c, Automation)
}

func GetDetector(c di.ServiceRegistry) *app.Detector {
	return di.GetToken(c, Detector)
}

func GetSubmitter(c di.ServiceRegistry) *app.Submitter {
	return di.GetToken(c, Submitter)
}

func GetKeyStore(c di.ServiceRegistry) app.KeyStore {
	return di.GetToken(c, KeyStore)
}

func GetState(c di.ServiceRegistry) *app.State {
	return di.GetToken(c, State)
}

func GetProfitCalculator(c di.ServiceRegistry) *app.ProfitCalculator {
	return di.GetToken(c, ProfitCalculator)
}

func GetEncoder(c di.ServiceRegistry) *contract.Arbitrage {
	return di.GetToken(c, Encoder)
}
