package amm

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"domainSwap/internal/model"
)

// ComputeQuote prices a swap against a pool snapshot using the
// constant-product formula. The trading fee is taken from the input
// before pricing, so the fee stays in the pool and compounds into the
// reserves. Pure function: it never mutates pool state.
func ComputeQuote(pool model.Pool, inputToken string, inputAmount, slippage decimal.Decimal, validUntil time.Time) (model.Quote, error) {
	if !inputAmount.IsPositive() {
		return model.Quote{}, fmt.Errorf("input amount %s: %w", inputAmount, model.ErrInvalidAmount)
	}
	if slippage.IsNegative() || slippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return model.Quote{}, fmt.Errorf("slippage tolerance %s outside [0,1)", slippage)
	}
	if !pool.Active() {
		return model.Quote{}, fmt.Errorf("pool %s has no liquidity: %w", pool.PoolID, model.ErrInsufficientLiquidity)
	}

	var inputReserve, outputReserve decimal.Decimal
	var outputToken string
	switch inputToken {
	case model.AssetDomain:
		inputReserve = pool.DomainReserve
		outputReserve = pool.BaseReserve
		outputToken = pool.BaseToken
	case pool.BaseToken:
		inputReserve = pool.BaseReserve
		outputReserve = pool.DomainReserve
		outputToken = model.AssetDomain
	default:
		return model.Quote{}, fmt.Errorf("input token %s: %w", inputToken, model.ErrInvalidAsset)
	}

	one := decimal.NewFromInt(1)
	effectiveInput := inputAmount.Mul(one.Sub(pool.FeeRate))
	outputAmount := outputReserve.Mul(effectiveInput).Div(inputReserve.Add(effectiveInput))

	priceBefore := outputReserve.Div(inputReserve)
	priceAfter := outputReserve.Sub(outputAmount).Div(inputReserve.Add(inputAmount))
	priceImpact := priceAfter.Sub(priceBefore).Abs().Div(priceBefore)

	return model.Quote{
		PoolID:            pool.PoolID,
		InputToken:        inputToken,
		OutputToken:       outputToken,
		InputAmount:       inputAmount,
		OutputAmount:      outputAmount,
		PriceImpact:       priceImpact,
		FeeAmount:         inputAmount.Mul(pool.FeeRate),
		MinimumOutput:     outputAmount.Mul(one.Sub(slippage)),
		SlippageTolerance: slippage,
		ValidUntil:        validUntil,
	}, nil
}

// Quote prices a swap against the pool's current state. Slippage zero
// uses the configured default. The quote is valid for the configured TTL.
func (e *Engine) Quote(poolID, inputToken string, inputAmount, slippage decimal.Decimal) (model.Quote, error) {
	pool, err := e.ledger.Get(poolID)
	if err != nil {
		return model.Quote{}, err
	}
	if slippage.IsZero() {
		slippage = e.cfg.DefaultSlippage
	}
	return ComputeQuote(pool, inputToken, inputAmount, slippage, e.clock.Now().Add(e.cfg.QuoteTTL))
}
