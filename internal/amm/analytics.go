package amm

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"domainSwap/internal/model"
)

// PoolAnalytics assembles the provider-facing pool view: price, 24h
// movement, TVL in USD, trading volume, and the APY implied by 24h fee
// income on TVL plus the base reward APY.
func (e *Engine) PoolAnalytics(ctx context.Context, poolID string) (model.PoolAnalytics, error) {
	pool, err := e.ledger.Get(poolID)
	if err != nil {
		return model.PoolAnalytics{}, err
	}
	now := e.clock.Now()

	price, _ := pool.Price()
	basePrice, ok := e.prices.USDPrice(pool.BaseToken)
	if !ok {
		e.logger.Warn("no usd price for base token", zap.String("base_token", pool.BaseToken))
		basePrice = decimal.Zero
	}
	tvl := pool.BaseReserve.Mul(decimal.NewFromInt(2)).Mul(basePrice)

	volume24h := e.volume.Volume24h(poolID, now)
	apy := e.cfg.BaseAPY
	if tvl.IsPositive() {
		feeYield24h := volume24h.Mul(pool.FeeRate).Mul(basePrice).Div(tvl)
		apy = apy.Add(feeYield24h.Mul(daysPerYear))
	}

	positions, err := e.store.ListPoolPositions(ctx, poolID)
	if err != nil {
		return model.PoolAnalytics{}, fmt.Errorf("list pool positions: %w", err)
	}

	return model.PoolAnalytics{
		PoolID:             pool.PoolID,
		DomainAsset:        pool.DomainAsset,
		BaseToken:          pool.BaseToken,
		CurrentPrice:       price,
		PriceChange24h:     e.volume.PriceChange24h(poolID, price, now).Mul(decimal.NewFromInt(100)),
		DomainReserve:      pool.DomainReserve,
		BaseReserve:        pool.BaseReserve,
		TVL:                tvl,
		Volume24h:          volume24h,
		FeeRate:            pool.FeeRate,
		APY:                apy.Mul(decimal.NewFromInt(100)),
		LiquidityProviders: len(positions),
		TotalShares:        pool.TotalShares,
		CreatedAt:          pool.CreatedAt,
		LastUpdated:        pool.LastUpdated,
	}, nil
}
