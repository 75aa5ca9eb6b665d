package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is an immutable trade quote computed from a pool snapshot. It is
// never persisted; it is consumed by execution or discarded at expiry.
type Quote struct {
	PoolID            string          `json:"pool_id"`
	InputToken        string          `json:"input_token"`
	OutputToken       string          `json:"output_token"`
	InputAmount       decimal.Decimal `json:"input_amount"`
	OutputAmount      decimal.Decimal `json:"output_amount"`
	PriceImpact       decimal.Decimal `json:"price_impact"`
	FeeAmount         decimal.Decimal `json:"fee_amount"`
	MinimumOutput     decimal.Decimal `json:"minimum_output"`
	SlippageTolerance decimal.Decimal `json:"slippage_tolerance"`
	ValidUntil        time.Time       `json:"valid_until"`
}

// Expired reports whether the quote is past its validity window.
func (q Quote) Expired(now time.Time) bool {
	return now.After(q.ValidUntil)
}

// TradeResult records an executed swap.
type TradeResult struct {
	PoolID         string          `json:"pool_id"`
	Trader         string          `json:"trader"`
	InputToken     string          `json:"input_token"`
	OutputToken    string          `json:"output_token"`
	InputAmount    decimal.Decimal `json:"input_amount"`
	OutputAmount   decimal.Decimal `json:"output_amount"`
	PriceImpact    decimal.Decimal `json:"price_impact"`
	FeeAmount      decimal.Decimal `json:"fee_amount"`
	ExecutionPrice decimal.Decimal `json:"execution_price"`
	InputTransfer  string          `json:"input_transfer"`
	OutputTransfer string          `json:"output_transfer"`
	ExecutedAt     time.Time       `json:"executed_at"`
}
