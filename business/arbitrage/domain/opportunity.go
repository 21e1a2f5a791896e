package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
)

// ArbitrageOpportunity is a profitable cross-DEX price gap at one block.
// SellPrice is always greater than BuyPrice.
type ArbitrageOpportunity struct {
	ID              string
	Pair            pricingDomain.Pair
	Route           Route
	BuyPrice        decimal.Decimal // quote per base on the buy DEX
	SellPrice       decimal.Decimal // quote per base on the sell DEX
	SpreadPercent   decimal.Decimal
	FlashloanAmount decimal.Decimal // whole base units
	GrossProfit     decimal.Decimal // USD
	GasCostEstimate decimal.Decimal // USD
	FlashloanFee    decimal.Decimal // USD
	NetProfit       decimal.Decimal // USD
	QuoteUSDPrice   decimal.Decimal
	BlockNumber     uint64
	CreatedAt       time.Time
}

// NewArbitrageOpportunity assigns a fresh id and copies the profit breakdown.
func NewArbitrageOpportunity(pair pricingDomain.Pair, route Route, buy, sell, spread, amount decimal.Decimal, profit ProfitBreakdown, quoteUSD decimal.Decimal, block uint64, at time.Time) *ArbitrageOpportunity {
	return &ArbitrageOpportunity{
		ID:              uuid.NewString(),
		Pair:            pair,
		Route:           route,
		BuyPrice:        buy,
		SellPrice:       sell,
		SpreadPercent:   spread,
		FlashloanAmount: amount,
		GrossProfit:     profit.GrossProfit,
		GasCostEstimate: profit.GasCost,
		FlashloanFee:    profit.FlashloanFee,
		NetProfit:       profit.NetProfit,
		QuoteUSDPrice:   quoteUSD,
		BlockNumber:     block,
		CreatedAt:       at,
	}
}

// Key identifies the opportunity across scans: pair|buyDex|sellDex|block.
func (o *ArbitrageOpportunity) Key() string {
	return fmt.Sprintf("%s|%s|%s|%d", o.Pair.String(), o.Route.Buy.Name, o.Route.Sell.Name, o.BlockNumber)
}

// BuyDEX returns the name of the buy leg.
func (o *ArbitrageOpportunity) BuyDEX() string { return o.Route.Buy.Name }

// SellDEX returns the name of the sell leg.
func (o *ArbitrageOpportunity) SellDEX() string { return o.Route.Sell.Name }

type opportunityJSON struct {
	ID              string          `json:"id"`
	Key             string          `json:"key"`
	Pair            string          `json:"pair"`
	BuyDEX          string          `json:"buyDex"`
	SellDEX         string          `json:"sellDex"`
	BuyPrice        decimal.Decimal `json:"buyPrice"`
	SellPrice       decimal.Decimal `json:"sellPrice"`
	SpreadPercent   decimal.Decimal `json:"spreadPercent"`
	FlashloanAmount decimal.Decimal `json:"flashloanAmount"`
	GrossProfit     decimal.Decimal `json:"grossProfit"`
	GasCostEstimate decimal.Decimal `json:"gasCostEstimate"`
	FlashloanFee    decimal.Decimal `json:"flashloanFee"`
	NetProfit       decimal.Decimal `json:"netProfit"`
	BlockNumber     uint64          `json:"blockNumber"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// MarshalJSON renders the pair and route by name.
func (o *ArbitrageOpportunity) MarshalJSON() ([]byte, error) {
	return json.Marshal(opportunityJSON{
		ID:              o.ID,
		Key:             o.Key(),
		Pair:            o.Pair.String(),
		BuyDEX:          o.Route.Buy.Name,
		SellDEX:         o.Route.Sell.Name,
		BuyPrice:        o.BuyPrice,
		SellPrice:       o.SellPrice,
		SpreadPercent:   o.SpreadPercent,
		FlashloanAmount: o.FlashloanAmount,
		GrossProfit:     o.GrossProfit,
		GasCostEstimate: o.GasCostEstimate,
		FlashloanFee:    o.FlashloanFee,
		NetProfit:       o.NetProfit,
		BlockNumber:     o.BlockNumber,
		CreatedAt:       o.CreatedAt,
	})
}
