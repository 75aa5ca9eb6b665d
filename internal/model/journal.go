package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Operation names recorded in the transaction journal.
const (
	OpCreatePool      = "create_pool"
	OpAddLiquidity    = "add_liquidity"
	OpRemoveLiquidity = "remove_liquidity"
	OpSwap            = "swap"
)

// TransactionRecord is one journal line describing an applied operation
// and the transfers that settled it.
type TransactionRecord struct {
	Type         string          `json:"type"`
	PoolID       string          `json:"pool_id"`
	Actor        string          `json:"actor"`
	DomainAmount decimal.Decimal `json:"domain_amount"`
	BaseAmount   decimal.Decimal `json:"base_amount"`
	Shares       decimal.Decimal `json:"shares"`
	FeeAmount    decimal.Decimal `json:"fee_amount"`
	TransferRefs []string        `json:"transfer_refs"`
	Timestamp    time.Time       `json:"timestamp"`
}
