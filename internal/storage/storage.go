package storage

import (
	"context"

	"domainSwap/internal/model"
)

// Store persists pool and position records. Implementations return
// model.ErrPoolNotFound / model.ErrPositionNotFound for missing records.
type Store interface {
	LoadPool(ctx context.Context, poolID string) (model.Pool, error)
	SavePool(ctx context.Context, pool model.Pool) error
	ListPools(ctx context.Context) ([]model.Pool, error)

	LoadPosition(ctx context.Context, poolID, owner string) (model.Position, error)
	SavePosition(ctx context.Context, position model.Position) error
	DeletePosition(ctx context.Context, poolID, owner string) error
	ListPoolPositions(ctx context.Context, poolID string) ([]model.Position, error)
	ListOwnerPositions(ctx context.Context, owner string) ([]model.Position, error)
}

// Journal is a sink for applied-operation records.
type Journal interface {
	Append(ctx context.Context, record model.TransactionRecord) error
}
