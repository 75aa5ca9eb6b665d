package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoolAnalytics is the provider-facing view of a pool's health.
type PoolAnalytics struct {
	PoolID             string          `json:"pool_id"`
	DomainAsset        string          `json:"domain_asset"`
	BaseToken          string          `json:"base_token"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	PriceChange24h     decimal.Decimal `json:"price_change_24h"`
	DomainReserve      decimal.Decimal `json:"domain_reserve"`
	BaseReserve        decimal.Decimal `json:"base_reserve"`
	TVL                decimal.Decimal `json:"tvl"`
	Volume24h          decimal.Decimal `json:"volume_24h"`
	FeeRate            decimal.Decimal `json:"fee_rate"`
	APY                decimal.Decimal `json:"apy"`
	LiquidityProviders int             `json:"liquidity_providers"`
	TotalShares        decimal.Decimal `json:"total_shares"`
	CreatedAt          time.Time       `json:"created_at"`
	LastUpdated        time.Time       `json:"last_updated"`
}

// PositionView is the provider-facing view of one liquidity position,
// including redemption value, impermanent loss, and pending rewards.
type PositionView struct {
	PositionID         string          `json:"position_id"`
	PoolID             string          `json:"pool_id"`
	DomainAsset        string          `json:"domain_asset"`
	BaseToken          string          `json:"base_token"`
	Shares             decimal.Decimal `json:"shares"`
	PoolSharePct       decimal.Decimal `json:"pool_share_pct"`
	PrincipalDomain    decimal.Decimal `json:"principal_domain"`
	PrincipalBase      decimal.Decimal `json:"principal_base"`
	CurrentDomain      decimal.Decimal `json:"current_domain"`
	CurrentBase        decimal.Decimal `json:"current_base"`
	ImpermanentLossPct decimal.Decimal `json:"impermanent_loss_pct"`
	RewardsClaimed     decimal.Decimal `json:"rewards_claimed"`
	PendingRewards     decimal.Decimal `json:"pending_rewards"`
	CreatedAt          time.Time       `json:"created_at"`
}
