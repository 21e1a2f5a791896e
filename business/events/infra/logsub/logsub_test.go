package logsub

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	arbDomain "github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/business/events/domain"
	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

func TestSubscriber_Send(t *testing.T) {
	opp := arbDomain.NewArbitrageOpportunity(
		pricingDomain.NewPair(asset.WETH, asset.USDC),
		arbDomain.Route{
			Buy:  pricingDomain.DEX{Name: "uniswap", Router: common.HexToAddress("0x1")},
			Sell: pricingDomain.DEX{Name: "sushiswap", Router: common.HexToAddress("0x2")},
		},
		decimal.NewFromInt(1000), decimal.NewFromInt(1010), decimal.NewFromInt(1), decimal.NewFromInt(5),
		arbDomain.NewProfitBreakdown(decimal.NewFromInt(50), decimal.NewFromInt(3), decimal.NewFromInt(1)),
		decimal.NewFromInt(1), 100, time.Now(),
	)

	tests := []struct {
		name    string
		payload any
		want    []string
	}{
		{
			name:    "opportunity",
			payload: opp,
			want:    []string{`"msg":"opportunity"`, `"pair":"WETH/USDC"`, `"net_profit_usd":"46.00"`, `"level":"INFO"`},
		},
		{
			name:    "failed_execution",
			payload: arbDomain.Failed(opp, arbDomain.ErrorKindGasTooHigh, "too expensive", time.Now()),
			want:    []string{`"msg":"execution"`, `"error_kind":"GasTooHigh"`, `"level":"WARN"`},
		},
		{
			name:    "successful_execution",
			payload: arbDomain.Succeeded(opp, common.HexToHash("0x1"), 101, 200000, time.Now()),
			want:    []string{`"success":true`, `"tx":"0x0000000000000000000000000000000000000000000000000000000000000001"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sub := New(logger.New(&buf, logger.LevelDebug, "test", nil))

			if err := sub.Send(context.Background(), domain.NewEvent(domain.EventOpportunity, tt.payload, time.Now())); err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("log line missing %s: %s", w, out)
				}
			}
		})
	}
}
