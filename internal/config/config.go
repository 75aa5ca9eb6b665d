package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"domainSwap/internal/amm"
)

// Config holds engine and pipeline settings loaded from flags, env, or a
// config file.
type Config struct {
	FeeRate              float64
	SlippageTolerance    float64
	MinimumLiquidity     float64
	PriceImpactThreshold float64
	QuoteTTL             time.Duration
	BaseAPY              float64
	VolumeMultiplier     float64
	LoyaltyBonus         float64
	LoyaltyAfterDays     int
	StrictRevalidation   bool

	RPCURL   string
	PGDSN    string
	Journal  string
	Input    string
	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("fee-rate", 0.003)
	v.SetDefault("slippage-tolerance", 0.02)
	v.SetDefault("minimum-liquidity", 1000.0)
	v.SetDefault("price-impact-threshold", 0.05)
	v.SetDefault("quote-ttl", 5*time.Minute)
	v.SetDefault("base-apy", 0.05)
	v.SetDefault("volume-multiplier", 0.1)
	v.SetDefault("loyalty-bonus", 0.02)
	v.SetDefault("loyalty-after-days", 30)
	v.SetDefault("strict-revalidation", true)
	v.SetDefault("journal", "./data/trades.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		FeeRate:              v.GetFloat64("fee-rate"),
		SlippageTolerance:    v.GetFloat64("slippage-tolerance"),
		MinimumLiquidity:     v.GetFloat64("minimum-liquidity"),
		PriceImpactThreshold: v.GetFloat64("price-impact-threshold"),
		QuoteTTL:             v.GetDuration("quote-ttl"),
		BaseAPY:              v.GetFloat64("base-apy"),
		VolumeMultiplier:     v.GetFloat64("volume-multiplier"),
		LoyaltyBonus:         v.GetFloat64("loyalty-bonus"),
		LoyaltyAfterDays:     v.GetInt("loyalty-after-days"),
		StrictRevalidation:   v.GetBool("strict-revalidation"),
		RPCURL:               v.GetString("rpc"),
		PGDSN:                v.GetString("pg-dsn"),
		Journal:              v.GetString("journal"),
		Input:                v.GetString("in"),
		LogLevel:             v.GetString("log-level"),
	}

	return cfg, nil
}

// Engine converts the loaded values into engine parameters.
func (c Config) Engine() amm.Config {
	return amm.Config{
		DefaultFeeRate:       decimal.NewFromFloat(c.FeeRate),
		DefaultSlippage:      decimal.NewFromFloat(c.SlippageTolerance),
		MinimumLiquidity:     decimal.NewFromFloat(c.MinimumLiquidity),
		PriceImpactThreshold: decimal.NewFromFloat(c.PriceImpactThreshold),
		QuoteTTL:             c.QuoteTTL,
		BaseAPY:              decimal.NewFromFloat(c.BaseAPY),
		VolumeMultiplier:     decimal.NewFromFloat(c.VolumeMultiplier),
		LoyaltyBonus:         decimal.NewFromFloat(c.LoyaltyBonus),
		LoyaltyAfterDays:     c.LoyaltyAfterDays,
		StrictRevalidation:   c.StrictRevalidation,
	}
}
