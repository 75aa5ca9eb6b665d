package amm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"domainSwap/internal/model"
)

func TestImpermanentLossZeroAtUnchangedRatio(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)

	position, err := h.store.LoadPosition(context.Background(), pool.PoolID, "alice")
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	il, err := ImpermanentLoss(position, pool)
	if err != nil {
		t.Fatalf("impermanent loss: %v", err)
	}
	if !il.IsZero() {
		t.Fatalf("loss at unchanged ratio = %s, want 0", il)
	}
}

func TestImpermanentLossAtDoubledRatio(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)

	position, err := h.store.LoadPosition(context.Background(), pool.PoolID, "alice")
	if err != nil {
		t.Fatalf("position: %v", err)
	}

	// Price ratio doubles: 2*sqrt(2)/3 - 1.
	pool.BaseReserve = decimal.NewFromInt(10000)
	il, err := ImpermanentLoss(position, pool)
	if err != nil {
		t.Fatalf("impermanent loss: %v", err)
	}
	approxEqual(t, il, decimal.NewFromFloat(-0.05719095841793653), 1e-9)
	if il.IsPositive() {
		t.Fatalf("impermanent loss must not be positive: %s", il)
	}
}

func TestImpermanentLossDegenerateInputs(t *testing.T) {
	il, err := ImpermanentLoss(model.Position{}, model.Pool{})
	if err != nil {
		t.Fatalf("impermanent loss: %v", err)
	}
	if !il.IsZero() {
		t.Fatalf("degenerate inputs should yield 0, got %s", il)
	}
}

func TestPendingRewardsAccrual(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)

	position, err := h.store.LoadPosition(context.Background(), pool.PoolID, "alice")
	if err != nil {
		t.Fatalf("position: %v", err)
	}

	// Day zero: nothing accrued yet.
	if got := h.engine.pendingRewards(position, pool.PoolID, h.clock.Now()); !got.IsZero() {
		t.Fatalf("rewards on day 0 = %s, want 0", got)
	}

	// Ten days of 5% APY on the 5000 base principal.
	h.clock.Advance(10 * 24 * time.Hour)
	got := h.engine.pendingRewards(position, pool.PoolID, h.clock.Now())
	want := decimal.NewFromInt(5000).
		Mul(decimal.NewFromFloat(0.05)).
		Mul(decimal.NewFromInt(10)).
		Div(decimal.NewFromInt(365))
	approxEqual(t, got, want, 1e-9)
}

func TestPendingRewardsLoyaltyBonus(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)

	position, err := h.store.LoadPosition(context.Background(), pool.PoolID, "alice")
	if err != nil {
		t.Fatalf("position: %v", err)
	}

	h.clock.Advance(31 * 24 * time.Hour)
	got := h.engine.pendingRewards(position, pool.PoolID, h.clock.Now())
	base := decimal.NewFromInt(5000).
		Mul(decimal.NewFromFloat(0.05)).
		Mul(decimal.NewFromInt(31)).
		Div(decimal.NewFromInt(365))
	want := base.Add(base.Mul(decimal.NewFromFloat(0.02)))
	approxEqual(t, got, want, 1e-9)
}

func TestGetPositionView(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)
	ctx := context.Background()

	view, err := h.engine.GetPosition(ctx, pool.PoolID, "alice")
	if err != nil {
		t.Fatalf("get position: %v", err)
	}
	// Sole provider owns 100% of the pool.
	approxEqual(t, view.PoolSharePct, decimal.NewFromInt(100), 1e-9)
	approxEqual(t, view.CurrentDomain, decimal.NewFromInt(1000), 1e-9)
	approxEqual(t, view.CurrentBase, decimal.NewFromInt(5000), 1e-9)
	if !view.ImpermanentLossPct.IsZero() {
		t.Fatalf("loss pct = %s, want 0", view.ImpermanentLossPct)
	}

	if _, err := h.engine.GetPosition(ctx, pool.PoolID, "mallory"); !errors.Is(err, model.ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound, got %v", err)
	}
}

func TestUserPositionsAcrossPools(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)
	ctx := context.Background()

	h.clock.Advance(time.Second)
	if _, _, err := h.engine.CreatePool(ctx, "another.io", "ETH",
		decimal.NewFromInt(500), decimal.NewFromInt(2000), decimal.Zero, "alice"); err != nil {
		t.Fatalf("second pool: %v", err)
	}

	views, err := h.engine.UserPositions(ctx, "alice")
	if err != nil {
		t.Fatalf("user positions: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(views))
	}

	found := false
	for _, view := range views {
		if view.PoolID == pool.PoolID {
			found = true
		}
	}
	if !found {
		t.Fatalf("first pool missing from views: %+v", views)
	}

	views, err = h.engine.UserPositions(ctx, "nobody")
	if err != nil {
		t.Fatalf("user positions: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("expected no positions, got %d", len(views))
	}
}
