package amm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"domainSwap/internal/model"
)

// AddLiquidityResult reports what a deposit actually consumed. Amounts
// beyond the pool ratio are returned to the caller, not consumed.
type AddLiquidityResult struct {
	SharesMinted decimal.Decimal `json:"shares_minted"`
	DomainUsed   decimal.Decimal `json:"domain_used"`
	BaseUsed     decimal.Decimal `json:"base_used"`
	UnusedDomain decimal.Decimal `json:"unused_domain"`
	UnusedBase   decimal.Decimal `json:"unused_base"`
	PoolSharePct decimal.Decimal `json:"pool_share_pct"`
	TransferRefs []string        `json:"transfer_refs"`
}

// RemoveLiquidityResult reports a withdrawal and its settled rewards.
type RemoveLiquidityResult struct {
	DomainAmount    decimal.Decimal `json:"domain_amount"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	SharesBurned    decimal.Decimal `json:"shares_burned"`
	RemainingShares decimal.Decimal `json:"remaining_shares"`
	Rewards         decimal.Decimal `json:"rewards"`
	TransferRefs    []string        `json:"transfer_refs"`
}

// CreatePool creates a pool for a (domain asset, base token) pair, seeds
// it with the creator's deposit, and mints the initial shares as the
// geometric mean of the two amounts.
func (e *Engine) CreatePool(ctx context.Context, domainAsset, baseToken string, domainAmount, baseAmount, feeRate decimal.Decimal, creator string) (model.Pool, model.Position, error) {
	if !domainAmount.IsPositive() || !baseAmount.IsPositive() {
		return model.Pool{}, model.Position{}, fmt.Errorf("initial amounts: %w", model.ErrInvalidAmount)
	}
	if _, ok := e.tokens.Lookup(baseToken); !ok {
		return model.Pool{}, model.Position{}, fmt.Errorf("base token %s: %w", baseToken, model.ErrInvalidAsset)
	}
	if baseAmount.LessThan(e.cfg.MinimumLiquidity) {
		return model.Pool{}, model.Position{}, fmt.Errorf("initial base amount %s below floor %s: %w", baseAmount, e.cfg.MinimumLiquidity, model.ErrInsufficientLiquidity)
	}
	if feeRate.IsZero() {
		feeRate = e.cfg.DefaultFeeRate
	}

	pair := model.PairKey(domainAsset, baseToken)
	lk := e.ops.acquire(pair)
	lk.Lock()
	defer lk.Unlock()

	if !e.ledger.PairAvailable(pair) {
		return model.Pool{}, model.Position{}, fmt.Errorf("pair %s: %w", pair, model.ErrPoolExists)
	}

	initialShares, err := model.Sqrt(domainAmount.Mul(baseAmount))
	if err != nil {
		return model.Pool{}, model.Position{}, fmt.Errorf("initial shares: %w", err)
	}

	now := e.clock.Now()
	poolID := fmt.Sprintf("POOL_%s_%s_%d", domainAsset, baseToken, now.Unix())
	pool, err := model.NewPool(poolID, domainAsset, baseToken, domainAmount, baseAmount, initialShares, feeRate, now)
	if err != nil {
		return model.Pool{}, model.Position{}, err
	}

	// The pool is registered only after both transfers confirm, so it is
	// never quotable while its funding is still in flight.
	domainRef, err := e.settler.Transfer(ctx, domainAsset, domainAmount, creator, poolID)
	if err != nil {
		return model.Pool{}, model.Position{}, fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
	}
	baseRef, err := e.settler.Transfer(ctx, baseToken, baseAmount, creator, poolID)
	if err != nil {
		e.refundTransfer(ctx, domainAsset, domainAmount, poolID, creator)
		return model.Pool{}, model.Position{}, fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
	}

	if err := e.ledger.Create(pool); err != nil {
		e.refundTransfer(ctx, domainAsset, domainAmount, poolID, creator)
		e.refundTransfer(ctx, baseToken, baseAmount, poolID, creator)
		return model.Pool{}, model.Position{}, err
	}

	position, err := model.NewPosition(positionID(poolID, creator), poolID, creator, initialShares, domainAmount, baseAmount, now)
	if err != nil {
		e.ledger.Discard(poolID)
		e.refundTransfer(ctx, domainAsset, domainAmount, poolID, creator)
		e.refundTransfer(ctx, baseToken, baseAmount, poolID, creator)
		return model.Pool{}, model.Position{}, err
	}

	e.savePool(ctx, pool)
	if err := e.store.SavePosition(ctx, position); err != nil {
		e.logger.Error("persist position", zap.String("position_id", position.PositionID), zap.Error(err))
	}
	e.appendJournal(ctx, model.TransactionRecord{
		Type:         model.OpCreatePool,
		PoolID:       poolID,
		Actor:        creator,
		DomainAmount: domainAmount,
		BaseAmount:   baseAmount,
		Shares:       initialShares,
		TransferRefs: []string{domainRef, baseRef},
		Timestamp:    now,
	})

	e.logger.Info("pool created",
		zap.String("pool_id", poolID),
		zap.String("pair", pool.Pair()),
		zap.String("initial_shares", initialShares.String()),
	)
	return pool, position, nil
}

// AddLiquidity deposits into an existing pool at the current reserve
// ratio. The deposit is scaled down to the smaller of the two supplied
// amounts so existing providers are not diluted off-market; the surplus
// is reported back unused.
func (e *Engine) AddLiquidity(ctx context.Context, poolID, provider string, domainAmount, baseAmount decimal.Decimal) (AddLiquidityResult, error) {
	if !domainAmount.IsPositive() || !baseAmount.IsPositive() {
		return AddLiquidityResult{}, fmt.Errorf("deposit amounts: %w", model.ErrInvalidAmount)
	}

	// Position bookkeeping must stay consistent with the share mint, so
	// liquidity operations on a pool run one at a time.
	lk := e.ops.acquire(poolID)
	lk.Lock()
	defer lk.Unlock()

	now := e.clock.Now()
	var (
		domainUsed, baseUsed, sharesMinted decimal.Decimal
		applied                            Mutation
	)
	pool, err := e.ledger.Update(poolID, now, func(p model.Pool) (Mutation, error) {
		if !p.Active() {
			return Mutation{}, fmt.Errorf("pool %s is drained: %w", poolID, model.ErrInsufficientLiquidity)
		}

		ratio := p.BaseReserve.Div(p.DomainReserve)
		optimalBase := domainAmount.Mul(ratio)
		if optimalBase.LessThanOrEqual(baseAmount) {
			domainUsed = domainAmount
			baseUsed = optimalBase
		} else {
			baseUsed = baseAmount
			domainUsed = baseAmount.Div(ratio)
		}

		sharesMinted = decimal.Min(
			domainUsed.Div(p.DomainReserve).Mul(p.TotalShares),
			baseUsed.Div(p.BaseReserve).Mul(p.TotalShares),
		)

		applied = Mutation{
			Kind:        MutationDeposit,
			DomainDelta: domainUsed,
			BaseDelta:   baseUsed,
			SharesDelta: sharesMinted,
		}
		return applied, nil
	})
	if err != nil {
		return AddLiquidityResult{}, err
	}

	refs, err := e.settleDeposit(ctx, pool, provider, domainUsed, baseUsed)
	if err != nil {
		if _, revertErr := e.ledger.Apply(poolID, applied.Inverse(), now); revertErr != nil {
			e.logger.Error("revert deposit bookkeeping", zap.String("pool_id", poolID), zap.Error(revertErr))
		}
		return AddLiquidityResult{}, err
	}

	position, err := e.upsertPosition(ctx, pool, provider, sharesMinted, domainUsed, baseUsed, now)
	if err != nil {
		return AddLiquidityResult{}, err
	}

	e.savePool(ctx, pool)
	e.appendJournal(ctx, model.TransactionRecord{
		Type:         model.OpAddLiquidity,
		PoolID:       poolID,
		Actor:        provider,
		DomainAmount: domainUsed,
		BaseAmount:   baseUsed,
		Shares:       sharesMinted,
		TransferRefs: refs,
		Timestamp:    now,
	})

	e.logger.Info("liquidity added",
		zap.String("pool_id", poolID),
		zap.String("provider", provider),
		zap.String("shares_minted", sharesMinted.String()),
	)
	return AddLiquidityResult{
		SharesMinted: sharesMinted,
		DomainUsed:   domainUsed,
		BaseUsed:     baseUsed,
		UnusedDomain: domainAmount.Sub(domainUsed),
		UnusedBase:   baseAmount.Sub(baseUsed),
		PoolSharePct: position.Shares.Div(pool.TotalShares).Mul(decimal.NewFromInt(100)),
		TransferRefs: refs,
	}, nil
}

// RemoveLiquidity burns shares for a proportional slice of both
// reserves, settling accrued rewards at the same time. The pool price is
// unchanged by a withdrawal.
func (e *Engine) RemoveLiquidity(ctx context.Context, poolID, provider string, shares decimal.Decimal) (RemoveLiquidityResult, error) {
	if !shares.IsPositive() {
		return RemoveLiquidityResult{}, fmt.Errorf("shares to burn: %w", model.ErrInvalidAmount)
	}

	// The overdraw check reads the position, so it must run inside the
	// same critical section as the burn and the position update.
	lk := e.ops.acquire(poolID)
	lk.Lock()
	defer lk.Unlock()

	position, err := e.store.LoadPosition(ctx, poolID, provider)
	if err != nil {
		return RemoveLiquidityResult{}, fmt.Errorf("provider %s in pool %s: %w", provider, poolID, err)
	}
	if position.Shares.LessThan(shares) {
		return RemoveLiquidityResult{}, fmt.Errorf("burn %s exceeds held %s: %w", shares, position.Shares, model.ErrInsufficientLiquidity)
	}

	now := e.clock.Now()
	rewards := e.pendingRewards(position, poolID, now)

	var (
		domainOut, baseOut decimal.Decimal
		applied            Mutation
	)
	pool, err := e.ledger.Update(poolID, now, func(p model.Pool) (Mutation, error) {
		if p.TotalShares.LessThan(shares) {
			return Mutation{}, fmt.Errorf("burn %s exceeds total shares %s: %w", shares, p.TotalShares, model.ErrInsufficientLiquidity)
		}
		proportion := shares.Div(p.TotalShares)
		domainOut = p.DomainReserve.Mul(proportion)
		baseOut = p.BaseReserve.Mul(proportion)

		applied = Mutation{
			Kind:        MutationWithdraw,
			DomainDelta: domainOut.Neg(),
			BaseDelta:   baseOut.Neg(),
			SharesDelta: shares.Neg(),
		}
		return applied, nil
	})
	if err != nil {
		return RemoveLiquidityResult{}, err
	}

	refs, err := e.settleWithdrawal(ctx, pool, provider, domainOut, baseOut, rewards)
	if err != nil {
		if _, revertErr := e.ledger.Apply(poolID, applied.Inverse(), now); revertErr != nil {
			e.logger.Error("revert withdrawal bookkeeping", zap.String("pool_id", poolID), zap.Error(revertErr))
		}
		return RemoveLiquidityResult{}, err
	}

	remaining := position.Shares.Sub(shares)
	if remaining.IsPositive() {
		position.Shares = remaining
		position.RewardsClaimed = position.RewardsClaimed.Add(rewards)
		if err := e.store.SavePosition(ctx, position); err != nil {
			e.logger.Error("persist position", zap.String("position_id", position.PositionID), zap.Error(err))
		}
	} else {
		if err := e.store.DeletePosition(ctx, poolID, provider); err != nil {
			e.logger.Error("delete position", zap.String("position_id", position.PositionID), zap.Error(err))
		}
	}

	e.savePool(ctx, pool)
	e.appendJournal(ctx, model.TransactionRecord{
		Type:         model.OpRemoveLiquidity,
		PoolID:       poolID,
		Actor:        provider,
		DomainAmount: domainOut,
		BaseAmount:   baseOut,
		Shares:       shares,
		TransferRefs: refs,
		Timestamp:    now,
	})

	e.logger.Info("liquidity removed",
		zap.String("pool_id", poolID),
		zap.String("provider", provider),
		zap.String("shares_burned", shares.String()),
		zap.String("rewards", rewards.String()),
	)
	return RemoveLiquidityResult{
		DomainAmount:    domainOut,
		BaseAmount:      baseOut,
		SharesBurned:    shares,
		RemainingShares: remaining,
		Rewards:         rewards,
		TransferRefs:    refs,
	}, nil
}

// refundTransfer returns funds already moved for an operation that could
// not complete. The original transfer confirmed, so a refund failure is
// an operator problem and only gets logged.
func (e *Engine) refundTransfer(ctx context.Context, asset string, amount decimal.Decimal, from, to string) {
	if _, err := e.settler.Transfer(ctx, asset, amount, from, to); err != nil {
		e.logger.Error("refund transfer",
			zap.String("asset", asset),
			zap.String("amount", amount.String()),
			zap.String("to", to),
			zap.Error(err),
		)
	}
}

func (e *Engine) settleDeposit(ctx context.Context, pool model.Pool, provider string, domainUsed, baseUsed decimal.Decimal) ([]string, error) {
	domainRef, err := e.settler.Transfer(ctx, pool.DomainAsset, domainUsed, provider, pool.PoolID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
	}
	baseRef, err := e.settler.Transfer(ctx, pool.BaseToken, baseUsed, provider, pool.PoolID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
	}
	return []string{domainRef, baseRef}, nil
}

func (e *Engine) settleWithdrawal(ctx context.Context, pool model.Pool, provider string, domainOut, baseOut, rewards decimal.Decimal) ([]string, error) {
	domainRef, err := e.settler.Transfer(ctx, pool.DomainAsset, domainOut, pool.PoolID, provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
	}
	baseRef, err := e.settler.Transfer(ctx, pool.BaseToken, baseOut, pool.PoolID, provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
	}
	refs := []string{domainRef, baseRef}
	if rewards.IsPositive() {
		rewardsRef, err := e.settler.Transfer(ctx, pool.BaseToken, rewards, "rewards_treasury", provider)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
		}
		refs = append(refs, rewardsRef)
	}
	return refs, nil
}

func (e *Engine) upsertPosition(ctx context.Context, pool model.Pool, provider string, sharesMinted, domainUsed, baseUsed decimal.Decimal, now time.Time) (model.Position, error) {
	position, err := e.store.LoadPosition(ctx, pool.PoolID, provider)
	switch {
	case err == nil:
		position.Shares = position.Shares.Add(sharesMinted)
		position.PrincipalDomain = position.PrincipalDomain.Add(domainUsed)
		position.PrincipalBase = position.PrincipalBase.Add(baseUsed)
	case errors.Is(err, model.ErrPositionNotFound):
		position, err = model.NewPosition(positionID(pool.PoolID, provider), pool.PoolID, provider, sharesMinted, domainUsed, baseUsed, now)
		if err != nil {
			return model.Position{}, err
		}
	default:
		return model.Position{}, fmt.Errorf("load position: %w", err)
	}

	if err := e.store.SavePosition(ctx, position); err != nil {
		e.logger.Error("persist position", zap.String("position_id", position.PositionID), zap.Error(err))
	}
	return position, nil
}

func positionID(poolID, owner string) string {
	return fmt.Sprintf("POS_%s_%s", poolID, owner)
}
