package storage

import (
	"context"
	"sync"

	"domainSwap/internal/model"
)

// MemoryStore keeps pools and positions in process memory. It backs tests
// and the replay pipeline.
type MemoryStore struct {
	mu        sync.RWMutex
	pools     map[string]model.Pool
	positions map[string]map[string]model.Position // poolID -> owner -> position
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pools:     make(map[string]model.Pool),
		positions: make(map[string]map[string]model.Position),
	}
}

func (s *MemoryStore) LoadPool(_ context.Context, poolID string) (model.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pool, ok := s.pools[poolID]
	if !ok {
		return model.Pool{}, model.ErrPoolNotFound
	}
	return pool, nil
}

// SavePool persists a pool snapshot. Snapshots may arrive out of order
// from concurrent operations, so an older snapshot never overwrites a
// newer one.
func (s *MemoryStore) SavePool(_ context.Context, pool model.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.pools[pool.PoolID]; ok && existing.LastUpdated.After(pool.LastUpdated) {
		return nil
	}
	s.pools[pool.PoolID] = pool
	return nil
}

func (s *MemoryStore) ListPools(_ context.Context) ([]model.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Pool, 0, len(s.pools))
	for _, pool := range s.pools {
		out = append(out, pool)
	}
	return out, nil
}

func (s *MemoryStore) LoadPosition(_ context.Context, poolID, owner string) (model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	position, ok := s.positions[poolID][owner]
	if !ok {
		return model.Position{}, model.ErrPositionNotFound
	}
	return position, nil
}

func (s *MemoryStore) SavePosition(_ context.Context, position model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byOwner, ok := s.positions[position.PoolID]
	if !ok {
		byOwner = make(map[string]model.Position)
		s.positions[position.PoolID] = byOwner
	}
	byOwner[position.Owner] = position
	return nil
}

func (s *MemoryStore) DeletePosition(_ context.Context, poolID, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions[poolID], owner)
	return nil
}

func (s *MemoryStore) ListPoolPositions(_ context.Context, poolID string) ([]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Position, 0, len(s.positions[poolID]))
	for _, position := range s.positions[poolID] {
		out = append(out, position)
	}
	return out, nil
}

func (s *MemoryStore) ListOwnerPositions(_ context.Context, owner string) ([]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Position
	for _, byOwner := range s.positions {
		if position, ok := byOwner[owner]; ok {
			out = append(out, position)
		}
	}
	return out, nil
}

// MemoryJournal collects records in memory for tests.
type MemoryJournal struct {
	mu      sync.Mutex
	records []model.TransactionRecord
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Append(_ context.Context, record model.TransactionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, record)
	return nil
}

// Records returns a copy of everything appended so far.
func (j *MemoryJournal) Records() []model.TransactionRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]model.TransactionRecord, len(j.records))
	copy(out, j.records)
	return out
}
