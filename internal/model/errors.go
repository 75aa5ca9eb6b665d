package model

import "errors"

// Sentinel errors surfaced by engine operations. Callers match them with
// errors.Is; wrapping adds the pool, position, or amount context.
var (
	ErrPoolNotFound     = errors.New("pool not found")
	ErrPoolExists       = errors.New("pool already exists")
	ErrPositionNotFound = errors.New("position not found")

	ErrInvalidAsset  = errors.New("invalid asset")
	ErrInvalidAmount = errors.New("invalid amount")

	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrInsufficientReserves  = errors.New("insufficient reserves")

	ErrQuoteExpired         = errors.New("quote expired")
	ErrExcessivePriceImpact = errors.New("price impact exceeds threshold")
	ErrPriceMoved           = errors.New("price moved beyond slippage tolerance")
	ErrTransferFailed       = errors.New("token transfer failed")
)
