package amm

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"domainSwap/internal/model"
	"domainSwap/internal/settlement"
	"domainSwap/internal/storage"
)

// Deps are the engine's external collaborators.
type Deps struct {
	Store   storage.Store
	Journal storage.Journal
	Settler settlement.Settler
	Tokens  *model.BaseTokenRegistry
	Prices  PriceFeed
	Clock   Clock
	Logger  *zap.Logger
}

// Engine is the constant-product AMM for domain-token pools. All pool
// mutation flows through the ledger; persistence and settlement are
// injected collaborators, never reached while a pool arithmetic lock is
// held. Liquidity operations additionally serialize per pool through
// opLocks, so the position read-modify-write and the share mint stay
// consistent: the sum of position shares always equals total_shares.
type Engine struct {
	cfg     Config
	ledger  *Ledger
	ops     *opLocks
	store   storage.Store
	journal storage.Journal
	settler settlement.Settler
	tokens  *model.BaseTokenRegistry
	prices  PriceFeed
	volume  *volumeTracker
	clock   Clock
	logger  *zap.Logger
}

// opLocks hands out one mutex per key. Liquidity operations lock their
// pool id, pool creation locks the pair key, so deposits, withdrawals,
// and creations over the same pool run one at a time while swaps and
// other pools proceed.
type opLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newOpLocks() *opLocks {
	return &opLocks{locks: make(map[string]*sync.Mutex)}
}

func (o *opLocks) acquire(key string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lk, ok := o.locks[key]
	if !ok {
		lk = &sync.Mutex{}
		o.locks[key] = lk
	}
	return lk
}

// New builds an engine. Store and Settler are required; the remaining
// dependencies default to in-process implementations.
func New(cfg Config, deps Deps) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Settler == nil {
		return nil, fmt.Errorf("settler is required")
	}
	if deps.Tokens == nil {
		deps.Tokens = model.DefaultBaseTokens()
	}
	if deps.Prices == nil {
		deps.Prices = DefaultPriceFeed()
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Engine{
		cfg:     cfg,
		ledger:  NewLedger(),
		ops:     newOpLocks(),
		store:   deps.Store,
		journal: deps.Journal,
		settler: deps.Settler,
		tokens:  deps.Tokens,
		prices:  deps.Prices,
		volume:  newVolumeTracker(),
		clock:   deps.Clock,
		logger:  deps.Logger,
	}, nil
}

// Hydrate loads persisted pools into the ledger.
func (e *Engine) Hydrate(ctx context.Context) error {
	pools, err := e.store.ListPools(ctx)
	if err != nil {
		return fmt.Errorf("list pools: %w", err)
	}
	e.ledger.Hydrate(pools)
	e.logger.Info("ledger hydrated", zap.Int("pools", len(pools)))
	return nil
}

// Pool returns a snapshot of a pool.
func (e *Engine) Pool(poolID string) (model.Pool, error) {
	return e.ledger.Get(poolID)
}

// Pools returns snapshots of every registered pool.
func (e *Engine) Pools() []model.Pool {
	return e.ledger.Pools()
}

func (e *Engine) savePool(ctx context.Context, pool model.Pool) {
	if err := e.store.SavePool(ctx, pool); err != nil {
		e.logger.Error("persist pool", zap.String("pool_id", pool.PoolID), zap.Error(err))
	}
}

func (e *Engine) appendJournal(ctx context.Context, record model.TransactionRecord) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Append(ctx, record); err != nil {
		e.logger.Error("append journal", zap.String("pool_id", record.PoolID), zap.Error(err))
	}
}
