package amm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"domainSwap/internal/model"
)

var daysPerYear = decimal.NewFromInt(365)

// ImpermanentLoss returns the standard two-asset constant-product IL for
// a position against current pool reserves, as a fraction (always <= 0,
// zero only when the price ratio is unchanged since deposit).
func ImpermanentLoss(position model.Position, pool model.Pool) (decimal.Decimal, error) {
	if !position.PrincipalDomain.IsPositive() || !pool.DomainReserve.IsPositive() {
		return decimal.Zero, nil
	}
	initialRatio := position.PrincipalBase.Div(position.PrincipalDomain)
	if !initialRatio.IsPositive() {
		return decimal.Zero, nil
	}
	currentRatio := pool.BaseReserve.Div(pool.DomainReserve)
	ratioChange := currentRatio.Div(initialRatio)

	root, err := model.Sqrt(ratioChange)
	if err != nil {
		return decimal.Zero, fmt.Errorf("impermanent loss: %w", err)
	}
	two := decimal.NewFromInt(2)
	one := decimal.NewFromInt(1)
	return two.Mul(root).Div(one.Add(ratioChange)).Sub(one), nil
}

// pendingRewards computes time-prorated yield: base APY on the deposited
// base principal, a bonus linked to recent pool volume, and a flat
// loyalty bonus once the position has been held past the threshold.
func (e *Engine) pendingRewards(position model.Position, poolID string, now time.Time) decimal.Decimal {
	days := decimal.NewFromInt(int64(now.Sub(position.CreatedAt) / (24 * time.Hour)))
	if days.IsNegative() {
		return decimal.Zero
	}
	yearFraction := days.Div(daysPerYear)

	baseRewards := position.PrincipalBase.Mul(e.cfg.BaseAPY).Mul(yearFraction)
	volumeBonus := e.volume.Volume24h(poolID, now).Mul(e.cfg.VolumeMultiplier).Mul(yearFraction)

	total := baseRewards.Add(volumeBonus)
	if days.GreaterThan(decimal.NewFromInt(int64(e.cfg.LoyaltyAfterDays))) {
		total = total.Add(baseRewards.Mul(e.cfg.LoyaltyBonus))
	}
	return total
}

// GetPosition returns the provider-facing view of one position.
func (e *Engine) GetPosition(ctx context.Context, poolID, owner string) (model.PositionView, error) {
	position, err := e.store.LoadPosition(ctx, poolID, owner)
	if err != nil {
		return model.PositionView{}, fmt.Errorf("position of %s in %s: %w", owner, poolID, err)
	}
	pool, err := e.ledger.Get(poolID)
	if err != nil {
		return model.PositionView{}, err
	}
	return e.positionView(position, pool)
}

// UserPositions returns views of every position held by an owner. Pools
// missing from the ledger are skipped.
func (e *Engine) UserPositions(ctx context.Context, owner string) ([]model.PositionView, error) {
	positions, err := e.store.ListOwnerPositions(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list positions of %s: %w", owner, err)
	}

	out := make([]model.PositionView, 0, len(positions))
	for _, position := range positions {
		pool, err := e.ledger.Get(position.PoolID)
		if err != nil {
			if errors.Is(err, model.ErrPoolNotFound) {
				continue
			}
			return nil, err
		}
		view, err := e.positionView(position, pool)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

func (e *Engine) positionView(position model.Position, pool model.Pool) (model.PositionView, error) {
	hundred := decimal.NewFromInt(100)

	share := decimal.Zero
	if pool.TotalShares.IsPositive() {
		share = position.Shares.Div(pool.TotalShares)
	}

	il, err := ImpermanentLoss(position, pool)
	if err != nil {
		return model.PositionView{}, err
	}

	return model.PositionView{
		PositionID:         position.PositionID,
		PoolID:             position.PoolID,
		DomainAsset:        pool.DomainAsset,
		BaseToken:          pool.BaseToken,
		Shares:             position.Shares,
		PoolSharePct:       share.Mul(hundred),
		PrincipalDomain:    position.PrincipalDomain,
		PrincipalBase:      position.PrincipalBase,
		CurrentDomain:      pool.DomainReserve.Mul(share),
		CurrentBase:        pool.BaseReserve.Mul(share),
		ImpermanentLossPct: il.Mul(hundred),
		RewardsClaimed:     position.RewardsClaimed,
		PendingRewards:     e.pendingRewards(position, position.PoolID, e.clock.Now()),
		CreatedAt:          position.CreatedAt,
	}, nil
}
