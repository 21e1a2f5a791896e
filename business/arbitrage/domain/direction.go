// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"fmt"

	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
)

// Route is the two legs of a cross-DEX trade: buy the base where it is
// cheap, sell it where it is expensive.
type Route struct {
	Buy  pricingDomain.DEX
	Sell pricingDomain.DEX
}

// String returns a human-readable description of the route.
func (r Route) String() string {
	return fmt.Sprintf("buy on %s, sell on %s", r.Buy.Name, r.Sell.Name)
}

// Valid reports whether both legs are set and differ.
func (r Route) Valid() bool {
	return r.Buy.Name != "" && r.Sell.Name != "" && r.Buy.Name != r.Sell.Name
}
