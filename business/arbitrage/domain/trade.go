package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/internal/asset"
)

// TradeParams are the arguments of the on-chain executeArbitrage call.
//
// The contract flash-borrows AmountIn of TokenIn (the pair's base), swaps it
// into TokenOut on BuyRouter, swaps the proceeds back into TokenIn on
// SellRouter, repays the loan and reverts unless at least MinProfit of
// TokenIn is left over. BuyRouter therefore buys the quote token, which is
// the DEX paying the most quote per base (the route's sell leg), and
// SellRouter is where base is cheapest (the route's buy leg).
type TradeParams struct {
	TokenIn    common.Address
	TokenOut   common.Address
	AmountIn   *big.Int
	BuyRouter  common.Address
	SellRouter common.Address
	MinProfit  *big.Int // TokenIn base units
}

// NewTradeParams sizes the call for opp. MinProfit is the net profit scaled
// by minProfitRatio, converted from USD into quote units and then into base
// units at the buy-back price.
func NewTradeParams(opp *ArbitrageOpportunity, minProfitRatio decimal.Decimal) (TradeParams, error) {
	amountIn, err := asset.FloorDecimal(opp.Pair.Base, opp.FlashloanAmount)
	if err != nil {
		return TradeParams{}, fmt.Errorf("amount in: %w", err)
	}
	if amountIn.IsZero() {
		return TradeParams{}, fmt.Errorf("amount in: zero %s", opp.Pair.Base.Symbol())
	}

	minProfit := decimal.Zero
	if opp.QuoteUSDPrice.IsPositive() && opp.BuyPrice.IsPositive() &&
		opp.NetProfit.IsPositive() && minProfitRatio.IsPositive() {
		inQuote := opp.NetProfit.Mul(minProfitRatio).Div(opp.QuoteUSDPrice)
		minProfit = inQuote.DivRound(opp.BuyPrice, int32(opp.Pair.Base.Decimals())+2)
	}
	minProfitRaw, err := asset.FloorDecimal(opp.Pair.Base, minProfit)
	if err != nil {
		return TradeParams{}, fmt.Errorf("min profit: %w", err)
	}

	return TradeParams{
		TokenIn:    opp.Pair.Base.Address(),
		TokenOut:   opp.Pair.Quote.Address(),
		AmountIn:   amountIn.Raw(),
		BuyRouter:  opp.Route.Sell.Router,
		SellRouter: opp.Route.Buy.Router,
		MinProfit:  minProfitRaw.Raw(),
	}, nil
}
