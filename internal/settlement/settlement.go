package settlement

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Settler moves underlying tokens between parties and the pool. A failed
// transfer must leave AMM state unchanged, so callers apply or revert
// their bookkeeping around Transfer.
type Settler interface {
	Transfer(ctx context.Context, asset string, amount decimal.Decimal, from, to string) (string, error)
}

// Record is one transfer executed by the memory settler.
type Record struct {
	Asset  string
	Amount decimal.Decimal
	From   string
	To     string
	Ref    string
}

// MemorySettler settles transfers in memory with deterministic reference
// hashes. It backs tests and the replay pipeline.
type MemorySettler struct {
	mu        sync.Mutex
	seq       uint64
	transfers []Record

	// FailOn makes transfers of the given asset fail, for rollback tests.
	FailOn string
}

func NewMemorySettler() *MemorySettler {
	return &MemorySettler{}
}

func (s *MemorySettler) Transfer(_ context.Context, asset string, amount decimal.Decimal, from, to string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailOn != "" && s.FailOn == asset {
		return "", fmt.Errorf("transfer %s rejected", asset)
	}

	s.seq++
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s|%d", asset, amount, from, to, s.seq)))
	ref := "0x" + hex.EncodeToString(sum[:])
	s.transfers = append(s.transfers, Record{Asset: asset, Amount: amount, From: from, To: to, Ref: ref})
	return ref, nil
}

// Transfers returns a copy of all settled transfers.
func (s *MemorySettler) Transfers() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.transfers))
	copy(out, s.transfers)
	return out
}
