package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Position is a provider's claim on a pool: a share balance plus the
// deposited principal used as the baseline for rewards and impermanent
// loss. A position whose shares reach zero is removed.
type Position struct {
	PositionID      string          `json:"position_id"`
	PoolID          string          `json:"pool_id"`
	Owner           string          `json:"owner"`
	Shares          decimal.Decimal `json:"shares"`
	PrincipalDomain decimal.Decimal `json:"principal_domain"`
	PrincipalBase   decimal.Decimal `json:"principal_base"`
	RewardsClaimed  decimal.Decimal `json:"rewards_claimed"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewPosition validates field combinations and builds a position record.
func NewPosition(positionID, poolID, owner string, shares, principalDomain, principalBase decimal.Decimal, now time.Time) (Position, error) {
	if positionID == "" || poolID == "" || owner == "" {
		return Position{}, fmt.Errorf("position id, pool id, and owner are required")
	}
	if !shares.IsPositive() {
		return Position{}, fmt.Errorf("position shares must be positive")
	}
	if principalDomain.IsNegative() || principalBase.IsNegative() {
		return Position{}, fmt.Errorf("principal amounts must be non-negative")
	}
	return Position{
		PositionID:      positionID,
		PoolID:          poolID,
		Owner:           owner,
		Shares:          shares,
		PrincipalDomain: principalDomain,
		PrincipalBase:   principalBase,
		RewardsClaimed:  decimal.Zero,
		CreatedAt:       now,
	}, nil
}
