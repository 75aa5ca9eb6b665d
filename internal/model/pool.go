package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AssetDomain is the tag for the domain-token side of a pool. The other
// side is tagged by the pool's base token symbol (e.g. "USDC").
const AssetDomain = "domain"

// Pool is a constant-product liquidity pool pairing a tokenized domain
// asset against a base token.
type Pool struct {
	PoolID        string          `json:"pool_id"`
	DomainAsset   string          `json:"domain_asset"`
	BaseToken     string          `json:"base_token"`
	DomainReserve decimal.Decimal `json:"domain_reserve"`
	BaseReserve   decimal.Decimal `json:"base_reserve"`
	TotalShares   decimal.Decimal `json:"total_shares"`
	FeeRate       decimal.Decimal `json:"fee_rate"`
	CreatedAt     time.Time       `json:"created_at"`
	LastUpdated   time.Time       `json:"last_updated"`
}

// NewPool validates field combinations and builds a pool record.
func NewPool(poolID, domainAsset, baseToken string, domainReserve, baseReserve, totalShares, feeRate decimal.Decimal, now time.Time) (Pool, error) {
	if poolID == "" || domainAsset == "" || baseToken == "" {
		return Pool{}, fmt.Errorf("pool id and asset pair are required")
	}
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Pool{}, fmt.Errorf("fee rate %s outside [0,1)", feeRate)
	}
	if domainReserve.IsNegative() || baseReserve.IsNegative() || totalShares.IsNegative() {
		return Pool{}, fmt.Errorf("reserves and shares must be non-negative")
	}
	if totalShares.IsPositive() && (!domainReserve.IsPositive() || !baseReserve.IsPositive()) {
		return Pool{}, fmt.Errorf("pool with outstanding shares must hold both reserves")
	}
	return Pool{
		PoolID:        poolID,
		DomainAsset:   domainAsset,
		BaseToken:     baseToken,
		DomainReserve: domainReserve,
		BaseReserve:   baseReserve,
		TotalShares:   totalShares,
		FeeRate:       feeRate,
		CreatedAt:     now,
		LastUpdated:   now,
	}, nil
}

// PairKey identifies the (domain asset, base token) pair a pool serves.
func PairKey(domainAsset, baseToken string) string {
	return domainAsset + "/" + baseToken
}

// Pair returns the pool's pair key.
func (p Pool) Pair() string {
	return PairKey(p.DomainAsset, p.BaseToken)
}

// Active reports whether the pool has outstanding liquidity shares. A
// drained pool stays registered but is logically empty and can be
// recreated for the same pair.
func (p Pool) Active() bool {
	return p.TotalShares.IsPositive()
}

// Price returns the spot price of the domain token in base tokens.
func (p Pool) Price() (decimal.Decimal, bool) {
	if !p.DomainReserve.IsPositive() {
		return decimal.Zero, false
	}
	return p.BaseReserve.Div(p.DomainReserve), true
}

// Product returns the constant-product invariant value k.
func (p Pool) Product() decimal.Decimal {
	return p.DomainReserve.Mul(p.BaseReserve)
}
