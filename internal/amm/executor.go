package amm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"domainSwap/internal/model"
)

// Execute applies a quote against the pool. Validation order: the quote
// must have been priced for this pool, then quote expiry, price impact
// threshold, pool existence, then (with strict revalidation) a
// re-pricing against current reserves. The fee stays in the input-side
// reserve, raising the redemption value of every share.
func (e *Engine) Execute(ctx context.Context, poolID string, quote model.Quote, trader string) (model.TradeResult, error) {
	if quote.PoolID != poolID {
		return model.TradeResult{}, fmt.Errorf("quote priced pool %s, not %s: %w", quote.PoolID, poolID, model.ErrInvalidAsset)
	}
	now := e.clock.Now()
	if quote.Expired(now) {
		return model.TradeResult{}, fmt.Errorf("quote valid until %s: %w", quote.ValidUntil, model.ErrQuoteExpired)
	}
	if quote.PriceImpact.GreaterThan(e.cfg.PriceImpactThreshold) {
		return model.TradeResult{}, fmt.Errorf("impact %s over threshold %s: %w", quote.PriceImpact, e.cfg.PriceImpactThreshold, model.ErrExcessivePriceImpact)
	}

	var applied Mutation
	pool, err := e.ledger.Update(poolID, now, func(p model.Pool) (Mutation, error) {
		if quote.InputToken != model.AssetDomain && quote.InputToken != p.BaseToken {
			return Mutation{}, fmt.Errorf("input token %s: %w", quote.InputToken, model.ErrInvalidAsset)
		}

		if e.cfg.StrictRevalidation {
			current, err := ComputeQuote(p, quote.InputToken, quote.InputAmount, quote.SlippageTolerance, quote.ValidUntil)
			if err != nil {
				return Mutation{}, err
			}
			drift := current.OutputAmount.Sub(quote.OutputAmount).Abs()
			if drift.GreaterThan(quote.OutputAmount.Mul(quote.SlippageTolerance)) {
				return Mutation{}, fmt.Errorf("requoted output %s vs quoted %s: %w", current.OutputAmount, quote.OutputAmount, model.ErrPriceMoved)
			}
		}

		if quote.InputToken == model.AssetDomain {
			applied = Mutation{
				Kind:        MutationSwap,
				DomainDelta: quote.InputAmount,
				BaseDelta:   quote.OutputAmount.Neg(),
			}
		} else {
			applied = Mutation{
				Kind:        MutationSwap,
				DomainDelta: quote.OutputAmount.Neg(),
				BaseDelta:   quote.InputAmount,
			}
		}
		return applied, nil
	})
	if err != nil {
		return model.TradeResult{}, err
	}

	inputAsset, outputAsset := pool.DomainAsset, pool.BaseToken
	if quote.InputToken != model.AssetDomain {
		inputAsset, outputAsset = pool.BaseToken, pool.DomainAsset
	}

	inputRef, err := e.settler.Transfer(ctx, inputAsset, quote.InputAmount, trader, poolID)
	if err != nil {
		e.revertSwap(poolID, applied, now)
		return model.TradeResult{}, fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
	}
	outputRef, err := e.settler.Transfer(ctx, outputAsset, quote.OutputAmount, poolID, trader)
	if err != nil {
		e.revertSwap(poolID, applied, now)
		return model.TradeResult{}, fmt.Errorf("%w: %v", model.ErrTransferFailed, err)
	}

	baseVolume := quote.InputAmount
	if quote.InputToken == model.AssetDomain {
		baseVolume = quote.OutputAmount
	}
	if price, ok := pool.Price(); ok {
		e.volume.Record(poolID, baseVolume, price, now)
	}

	e.savePool(ctx, pool)
	result := model.TradeResult{
		PoolID:         poolID,
		Trader:         trader,
		InputToken:     quote.InputToken,
		OutputToken:    quote.OutputToken,
		InputAmount:    quote.InputAmount,
		OutputAmount:   quote.OutputAmount,
		PriceImpact:    quote.PriceImpact,
		FeeAmount:      quote.FeeAmount,
		ExecutionPrice: quote.OutputAmount.Div(quote.InputAmount),
		InputTransfer:  inputRef,
		OutputTransfer: outputRef,
		ExecutedAt:     now,
	}

	domainAmount, baseAmount := quote.InputAmount, quote.OutputAmount
	if quote.InputToken != model.AssetDomain {
		domainAmount, baseAmount = quote.OutputAmount, quote.InputAmount
	}
	e.appendJournal(ctx, model.TransactionRecord{
		Type:         model.OpSwap,
		PoolID:       poolID,
		Actor:        trader,
		DomainAmount: domainAmount,
		BaseAmount:   baseAmount,
		FeeAmount:    quote.FeeAmount,
		TransferRefs: []string{inputRef, outputRef},
		Timestamp:    now,
	})

	e.logger.Info("trade executed",
		zap.String("pool_id", poolID),
		zap.String("trader", trader),
		zap.String("input_token", quote.InputToken),
		zap.String("input_amount", quote.InputAmount.String()),
		zap.String("output_amount", quote.OutputAmount.String()),
	)
	return result, nil
}

func (e *Engine) revertSwap(poolID string, applied Mutation, now time.Time) {
	if _, err := e.ledger.Apply(poolID, applied.Inverse(), now); err != nil {
		e.logger.Error("revert swap bookkeeping", zap.String("pool_id", poolID), zap.Error(err))
	}
}
