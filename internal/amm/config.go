package amm

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the engine's trading and reward parameters.
type Config struct {
	DefaultFeeRate       decimal.Decimal
	DefaultSlippage      decimal.Decimal
	MinimumLiquidity     decimal.Decimal
	PriceImpactThreshold decimal.Decimal
	QuoteTTL             time.Duration

	BaseAPY          decimal.Decimal
	VolumeMultiplier decimal.Decimal
	LoyaltyBonus     decimal.Decimal
	LoyaltyAfterDays int

	// StrictRevalidation makes execution recompute the output from
	// current reserves and reject quotes the pool has moved away from.
	// Off, it applies quoted amounts verbatim (deferred settlement mode).
	StrictRevalidation bool
}

// DefaultConfig returns the standard engine parameters.
func DefaultConfig() Config {
	return Config{
		DefaultFeeRate:       decimal.NewFromFloat(0.003),
		DefaultSlippage:      decimal.NewFromFloat(0.02),
		MinimumLiquidity:     decimal.NewFromInt(1000),
		PriceImpactThreshold: decimal.NewFromFloat(0.05),
		QuoteTTL:             5 * time.Minute,
		BaseAPY:              decimal.NewFromFloat(0.05),
		VolumeMultiplier:     decimal.NewFromFloat(0.1),
		LoyaltyBonus:         decimal.NewFromFloat(0.02),
		LoyaltyAfterDays:     30,
		StrictRevalidation:   true,
	}
}

func (c Config) validate() error {
	one := decimal.NewFromInt(1)
	if c.DefaultFeeRate.IsNegative() || c.DefaultFeeRate.GreaterThanOrEqual(one) {
		return fmt.Errorf("default fee rate %s outside [0,1)", c.DefaultFeeRate)
	}
	if c.DefaultSlippage.IsNegative() || c.DefaultSlippage.GreaterThanOrEqual(one) {
		return fmt.Errorf("default slippage %s outside [0,1)", c.DefaultSlippage)
	}
	if c.MinimumLiquidity.IsNegative() {
		return fmt.Errorf("minimum liquidity must be non-negative")
	}
	if c.QuoteTTL <= 0 {
		return fmt.Errorf("quote ttl must be positive")
	}
	return nil
}
