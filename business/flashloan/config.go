package flashloan

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/flashloan/domain"
	"github.com/fd1az/flashloan-arb/business/flashloan/infra/balancer"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
)

// SizePolicyFromConfig overlays configured caps on DefaultSizePolicy.
func SizePolicyFromConfig(cfg config.FlashloanConfig) domain.SizePolicy {
	def := domain.DefaultSizePolicy()

	classCaps := map[asset.Class]decimal.Decimal{
		asset.ClassVolatile: def.Cap("", asset.ClassVolatile),
		asset.ClassStable:   def.Cap("", asset.ClassStable),
		asset.ClassDefault:  def.Cap("", asset.ClassDefault),
	}
	for class, v := range cfg.ClassCaps {
		classCaps[asset.ParseClass(class)] = decimal.NewFromFloat(v)
	}

	symbolCaps := map[string]decimal.Decimal{"WBTC": def.Cap("WBTC", asset.ClassVolatile)}
	for symbol, v := range cfg.SymbolCaps {
		symbolCaps[symbol] = decimal.NewFromFloat(v)
	}

	return domain.NewSizePolicy(classCaps, symbolCaps)
}

// PoolIDsFromConfig parses the configured pool ids.
func PoolIDsFromConfig(cfg config.FlashloanConfig) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(cfg.PoolIDs))
	for _, s := range cfg.PoolIDs {
		id, err := balancer.ParsePoolID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
