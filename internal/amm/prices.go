package amm

import (
	"github.com/shopspring/decimal"
)

// PriceFeed returns the USD price of a base token for TVL valuation.
type PriceFeed interface {
	USDPrice(symbol string) (decimal.Decimal, bool)
}

// StaticPriceFeed serves prices from a fixed table.
type StaticPriceFeed struct {
	prices map[string]decimal.Decimal
}

// NewStaticPriceFeed builds a feed from symbol -> USD price.
func NewStaticPriceFeed(prices map[string]decimal.Decimal) *StaticPriceFeed {
	copied := make(map[string]decimal.Decimal, len(prices))
	for symbol, price := range prices {
		copied[symbol] = price
	}
	return &StaticPriceFeed{prices: copied}
}

// DefaultPriceFeed covers the standard base tokens.
func DefaultPriceFeed() *StaticPriceFeed {
	return NewStaticPriceFeed(map[string]decimal.Decimal{
		"USDC":  decimal.NewFromInt(1),
		"ETH":   decimal.NewFromInt(2000),
		"MATIC": decimal.NewFromFloat(0.8),
	})
}

func (f *StaticPriceFeed) USDPrice(symbol string) (decimal.Decimal, bool) {
	price, ok := f.prices[symbol]
	return price, ok
}
