package amm

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"domainSwap/internal/model"
)

// MutationKind tags a ledger mutation.
type MutationKind int

const (
	// MutationDeposit adds reserves and mints shares.
	MutationDeposit MutationKind = iota
	// MutationWithdraw removes reserves and burns shares.
	MutationWithdraw
	// MutationSwap shifts reserves between the two sides; shares unchanged.
	MutationSwap
)

// Mutation is a signed delta applied to a pool's reserves and shares.
type Mutation struct {
	Kind        MutationKind
	DomainDelta decimal.Decimal
	BaseDelta   decimal.Decimal
	SharesDelta decimal.Decimal
}

// Inverse returns the mutation that undoes m.
func (m Mutation) Inverse() Mutation {
	inv := Mutation{
		Kind:        m.Kind,
		DomainDelta: m.DomainDelta.Neg(),
		BaseDelta:   m.BaseDelta.Neg(),
		SharesDelta: m.SharesDelta.Neg(),
	}
	switch m.Kind {
	case MutationDeposit:
		inv.Kind = MutationWithdraw
	case MutationWithdraw:
		inv.Kind = MutationDeposit
	}
	return inv
}

type poolEntry struct {
	mu   sync.Mutex
	pool model.Pool
}

// Ledger is the sole mutation entry point for pool state. Every pool is
// guarded by its own mutex, so mutations on one pool serialize while
// distinct pools proceed in parallel. The mutex covers only arithmetic;
// callers settle transfers outside it.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*poolEntry
	byPair  map[string]string // pair key -> pool id of the registered pool
}

func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[string]*poolEntry),
		byPair:  make(map[string]string),
	}
}

// Create registers a pool. It fails with model.ErrPoolExists when an
// active pool already serves the pair; a drained pool is replaced.
func (l *Ledger) Create(pool model.Pool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[pool.PoolID]; ok {
		return fmt.Errorf("pool id %s: %w", pool.PoolID, model.ErrPoolExists)
	}
	if existingID, ok := l.byPair[pool.Pair()]; ok {
		existing := l.entries[existingID]
		existing.mu.Lock()
		active := existing.pool.Active()
		existing.mu.Unlock()
		if active {
			return fmt.Errorf("pair %s: %w", pool.Pair(), model.ErrPoolExists)
		}
	}

	l.entries[pool.PoolID] = &poolEntry{pool: pool}
	l.byPair[pool.Pair()] = pool.PoolID
	return nil
}

// PairAvailable reports whether no active pool serves the pair.
func (l *Ledger) PairAvailable(pair string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	existingID, ok := l.byPair[pair]
	if !ok {
		return true
	}
	existing := l.entries[existingID]
	existing.mu.Lock()
	defer existing.mu.Unlock()
	return !existing.pool.Active()
}

// Discard deregisters a pool whose creation could not be settled. It is
// only valid before the pool has been exposed to other operations.
func (l *Ledger) Discard(poolID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[poolID]
	if !ok {
		return
	}
	delete(l.entries, poolID)
	if l.byPair[entry.pool.Pair()] == poolID {
		delete(l.byPair, entry.pool.Pair())
	}
}

// Hydrate loads persisted pools, keeping the newest pool per pair as the
// registered one.
func (l *Ledger) Hydrate(pools []model.Pool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, pool := range pools {
		l.entries[pool.PoolID] = &poolEntry{pool: pool}
		if currentID, ok := l.byPair[pool.Pair()]; ok {
			if l.entries[currentID].pool.CreatedAt.After(pool.CreatedAt) {
				continue
			}
		}
		l.byPair[pool.Pair()] = pool.PoolID
	}
}

// Get returns a snapshot of the pool.
func (l *Ledger) Get(poolID string) (model.Pool, error) {
	entry, err := l.entry(poolID)
	if err != nil {
		return model.Pool{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.pool, nil
}

// Pools returns snapshots of every registered pool.
func (l *Ledger) Pools() []model.Pool {
	l.mu.RLock()
	entries := make([]*poolEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		entries = append(entries, entry)
	}
	l.mu.RUnlock()

	out := make([]model.Pool, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		out = append(out, entry.pool)
		entry.mu.Unlock()
	}
	return out
}

// Apply runs one mutation against the pool under its lock.
func (l *Ledger) Apply(poolID string, m Mutation, now time.Time) (model.Pool, error) {
	return l.Update(poolID, now, func(model.Pool) (Mutation, error) {
		return m, nil
	})
}

// Update locks the pool, lets fn derive a mutation from the current
// snapshot, validates it, and applies it atomically. Returning an error
// from fn leaves the pool untouched.
func (l *Ledger) Update(poolID string, now time.Time, fn func(model.Pool) (Mutation, error)) (model.Pool, error) {
	entry, err := l.entry(poolID)
	if err != nil {
		return model.Pool{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	m, err := fn(entry.pool)
	if err != nil {
		return model.Pool{}, err
	}

	next, err := applyMutation(entry.pool, m, now)
	if err != nil {
		return model.Pool{}, err
	}
	entry.pool = next
	return next, nil
}

func (l *Ledger) entry(poolID string) (*poolEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.entries[poolID]
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", poolID, model.ErrPoolNotFound)
	}
	return entry, nil
}

func applyMutation(pool model.Pool, m Mutation, now time.Time) (model.Pool, error) {
	if m.Kind == MutationSwap && !m.SharesDelta.IsZero() {
		return model.Pool{}, fmt.Errorf("swap mutation cannot change shares")
	}

	domain := pool.DomainReserve.Add(m.DomainDelta)
	base := pool.BaseReserve.Add(m.BaseDelta)
	shares := pool.TotalShares.Add(m.SharesDelta)

	if domain.IsNegative() || base.IsNegative() {
		return model.Pool{}, fmt.Errorf("pool %s: %w", pool.PoolID, model.ErrInsufficientReserves)
	}
	if shares.IsNegative() {
		return model.Pool{}, fmt.Errorf("pool %s shares would go negative: %w", pool.PoolID, model.ErrInsufficientLiquidity)
	}

	pool.DomainReserve = domain
	pool.BaseReserve = base
	pool.TotalShares = shares
	pool.LastUpdated = now
	return pool, nil
}
