package asset

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Class groups assets for flashloan sizing.
type Class string

const (
	ClassVolatile Class = "volatile"
	ClassStable   Class = "stable"
	ClassDefault  Class = "default"
)

// ParseClass maps a config value to a Class; unknown values become ClassDefault.
func ParseClass(s string) Class {
	switch Class(strings.ToLower(s)) {
	case ClassVolatile:
		return ClassVolatile
	case ClassStable:
		return ClassStable
	default:
		return ClassDefault
	}
}

// Asset is the metadata of an on-chain asset with stable identity (AssetID).
type Asset struct {
	id       AssetID
	symbol   string
	name     string
	decimals uint8
	class    Class
}

// NewAsset creates a new Asset of ClassDefault.
func NewAsset(id AssetID, symbol string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}

	return &Asset{
		id:       id,
		symbol:   strings.ToUpper(symbol),
		decimals: decimals,
		class:    ClassDefault,
	}
}

// NewToken creates an ERC20 asset with a name and sizing class.
func NewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8, class Class) *Asset {
	a := NewAsset(NewTokenAssetID(chainID, address), symbol, decimals)
	a.name = name
	a.class = class
	return a
}

// ID returns the unique identifier for this asset.
func (a *Asset) ID() AssetID {
	return a.id
}

// Symbol returns the upper-cased ticker symbol (e.g., "WETH", "USDC").
func (a *Asset) Symbol() string {
	return a.symbol
}

// Name returns the human-readable name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Decimals returns the number of decimal places.
func (a *Asset) Decimals() uint8 {
	return a.decimals
}

// Class returns the sizing class.
func (a *Asset) Class() Class {
	return a.class
}

// ChainID returns the chain ID.
func (a *Asset) ChainID() uint64 {
	return a.id.ChainID()
}

// Address returns the token contract address (zero for native coins).
func (a *Asset) Address() common.Address {
	return a.id.Address()
}

func (a *Asset) String() string {
	return a.symbol
}

// Equals compares two Assets by their ID.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id.Equals(other.id)
}
