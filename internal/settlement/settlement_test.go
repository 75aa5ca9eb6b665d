package settlement

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMemorySettlerRefsAreDistinct(t *testing.T) {
	settler := NewMemorySettler()
	ctx := context.Background()

	ref1, err := settler.Transfer(ctx, "USDC", decimal.NewFromInt(100), "alice", "pool-1")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	// Same parameters, new sequence number, different ref.
	ref2, err := settler.Transfer(ctx, "USDC", decimal.NewFromInt(100), "alice", "pool-1")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if ref1 == ref2 {
		t.Fatalf("expected distinct refs, both %s", ref1)
	}
	if !strings.HasPrefix(ref1, "0x") || len(ref1) != 66 {
		t.Fatalf("ref %q is not a 32-byte hex hash", ref1)
	}

	transfers := settler.Transfers()
	if len(transfers) != 2 {
		t.Fatalf("expected 2 records, got %d", len(transfers))
	}
	if transfers[0].Ref != ref1 || transfers[1].Ref != ref2 {
		t.Fatalf("records out of order: %+v", transfers)
	}
}

func TestMemorySettlerFailOn(t *testing.T) {
	settler := NewMemorySettler()
	settler.FailOn = "ETH"
	ctx := context.Background()

	if _, err := settler.Transfer(ctx, "ETH", decimal.NewFromInt(1), "alice", "pool-1"); err == nil {
		t.Fatalf("expected failure for ETH transfer")
	}
	if _, err := settler.Transfer(ctx, "USDC", decimal.NewFromInt(1), "alice", "pool-1"); err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	if got := len(settler.Transfers()); got != 1 {
		t.Fatalf("failed transfer must not be recorded, got %d records", got)
	}
}
