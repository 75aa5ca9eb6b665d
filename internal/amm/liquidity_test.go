package amm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"domainSwap/internal/model"
)

func TestCreatePoolMintsGeometricMeanShares(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)

	// sqrt(1000 * 5000)
	approxEqual(t, pool.TotalShares, decimal.NewFromFloat(2236.06797749979), 1e-6)
	if !pool.FeeRate.Equal(decimal.NewFromFloat(0.003)) {
		t.Fatalf("fee rate = %s, want default 0.003", pool.FeeRate)
	}

	position, err := h.store.LoadPosition(context.Background(), pool.PoolID, "alice")
	if err != nil {
		t.Fatalf("creator position: %v", err)
	}
	if !position.Shares.Equal(pool.TotalShares) {
		t.Fatalf("creator holds %s of %s shares", position.Shares, pool.TotalShares)
	}

	transfers := h.settler.Transfers()
	if len(transfers) != 2 {
		t.Fatalf("expected 2 settlement transfers, got %d", len(transfers))
	}
	records := h.journal.Records()
	if len(records) != 1 || records[0].Type != model.OpCreatePool {
		t.Fatalf("expected one create_pool journal record, got %+v", records)
	}
}

func TestCreatePoolRejections(t *testing.T) {
	h := newTestEngine(t)
	ctx := context.Background()

	_, _, err := h.engine.CreatePool(ctx, "example.com", "USDC",
		decimal.NewFromInt(1000), decimal.NewFromInt(999), decimal.Zero, "alice")
	if !errors.Is(err, model.ErrInsufficientLiquidity) {
		t.Fatalf("below floor: expected ErrInsufficientLiquidity, got %v", err)
	}

	_, _, err = h.engine.CreatePool(ctx, "example.com", "DOGE",
		decimal.NewFromInt(1000), decimal.NewFromInt(5000), decimal.Zero, "alice")
	if !errors.Is(err, model.ErrInvalidAsset) {
		t.Fatalf("unknown base token: expected ErrInvalidAsset, got %v", err)
	}

	_, _, err = h.engine.CreatePool(ctx, "example.com", "USDC",
		decimal.Zero, decimal.NewFromInt(5000), decimal.Zero, "alice")
	if !errors.Is(err, model.ErrInvalidAmount) {
		t.Fatalf("zero amount: expected ErrInvalidAmount, got %v", err)
	}

	h.createPool(t)
	_, _, err = h.engine.CreatePool(ctx, "example.com", "USDC",
		decimal.NewFromInt(10), decimal.NewFromInt(5000), decimal.Zero, "bob")
	if !errors.Is(err, model.ErrPoolExists) {
		t.Fatalf("duplicate pair: expected ErrPoolExists, got %v", err)
	}
}

func TestCreatePoolTransferFailureLeavesNoPool(t *testing.T) {
	h := newTestEngine(t)
	h.settler.FailOn = "USDC"

	_, _, err := h.engine.CreatePool(context.Background(), "example.com", "USDC",
		decimal.NewFromInt(1000), decimal.NewFromInt(5000), decimal.Zero, "alice")
	if !errors.Is(err, model.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	// No pool was left behind, so the pair is immediately retryable.
	if len(h.engine.Pools()) != 0 {
		t.Fatalf("failed creation must not register a pool")
	}

	// The domain leg that had already settled was refunded to the creator.
	transfers := h.settler.Transfers()
	if len(transfers) != 2 {
		t.Fatalf("expected funding leg plus refund, got %d transfers", len(transfers))
	}
	refund := transfers[1]
	if refund.Asset != "example.com" || refund.To != "alice" {
		t.Fatalf("refund = %+v, want example.com back to alice", refund)
	}

	h.settler.FailOn = ""
	h.createPool(t)
}

func TestCreatePoolDuplicatePairMovesNoFunds(t *testing.T) {
	h := newTestEngine(t)
	h.createPool(t)
	funded := len(h.settler.Transfers())

	_, _, err := h.engine.CreatePool(context.Background(), "example.com", "USDC",
		decimal.NewFromInt(10), decimal.NewFromInt(5000), decimal.Zero, "bob")
	if !errors.Is(err, model.ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists, got %v", err)
	}
	if got := len(h.settler.Transfers()); got != funded {
		t.Fatalf("duplicate creation moved funds: %d -> %d transfers", funded, got)
	}
}

func TestAddLiquidityMatchesPoolRatio(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)
	ctx := context.Background()

	// 100 domain needs 500 base at the 1:5 ratio; the extra 100 base
	// is returned unused.
	res, err := h.engine.AddLiquidity(ctx, pool.PoolID, "bob",
		decimal.NewFromInt(100), decimal.NewFromInt(600))
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if !res.DomainUsed.Equal(decimal.NewFromInt(100)) || !res.BaseUsed.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("used %s/%s, want 100/500", res.DomainUsed, res.BaseUsed)
	}
	if !res.UnusedDomain.IsZero() || !res.UnusedBase.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unused %s/%s, want 0/100", res.UnusedDomain, res.UnusedBase)
	}
	// A 10% deposit mints 10% of the prior share supply.
	approxEqual(t, res.SharesMinted, pool.TotalShares.Mul(decimal.NewFromFloat(0.1)), 1e-9)
	// Bob now owns 0.1/1.1 of the pool.
	approxEqual(t, res.PoolSharePct, decimal.NewFromFloat(9.090909090909), 1e-9)

	got, err := h.engine.Pool(pool.PoolID)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	before, _ := pool.Price()
	after, _ := got.Price()
	if !after.Equal(before) {
		t.Fatalf("deposit moved the price: %s -> %s", before, after)
	}
}

func TestAddLiquidityBaseLimited(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)

	// 200 domain would need 1000 base; only 500 is offered, so the
	// deposit scales down to 100 domain.
	res, err := h.engine.AddLiquidity(context.Background(), pool.PoolID, "bob",
		decimal.NewFromInt(200), decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if !res.BaseUsed.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("base used = %s, want 500", res.BaseUsed)
	}
	approxEqual(t, res.DomainUsed, decimal.NewFromInt(100), 1e-9)
	approxEqual(t, res.UnusedDomain, decimal.NewFromInt(100), 1e-9)
}

func TestAddLiquidityRejectsDrainedPool(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)
	ctx := context.Background()

	position, err := h.store.LoadPosition(ctx, pool.PoolID, "alice")
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if _, err := h.engine.RemoveLiquidity(ctx, pool.PoolID, "alice", position.Shares); err != nil {
		t.Fatalf("drain pool: %v", err)
	}

	_, err = h.engine.AddLiquidity(ctx, pool.PoolID, "bob",
		decimal.NewFromInt(100), decimal.NewFromInt(500))
	if !errors.Is(err, model.ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity on drained pool, got %v", err)
	}
}

func TestAddLiquidityRollsBackOnTransferFailure(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)
	h.settler.FailOn = "USDC"

	_, err := h.engine.AddLiquidity(context.Background(), pool.PoolID, "bob",
		decimal.NewFromInt(100), decimal.NewFromInt(500))
	if !errors.Is(err, model.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	got, err := h.engine.Pool(pool.PoolID)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if !got.DomainReserve.Equal(pool.DomainReserve) ||
		!got.BaseReserve.Equal(pool.BaseReserve) ||
		!got.TotalShares.Equal(pool.TotalShares) {
		t.Fatalf("failed deposit changed pool state: %+v", got)
	}
	if _, err := h.store.LoadPosition(context.Background(), pool.PoolID, "bob"); !errors.Is(err, model.ErrPositionNotFound) {
		t.Fatalf("failed deposit must not create a position, got %v", err)
	}
}

func TestRemoveLiquidityProportional(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)
	ctx := context.Background()

	position, err := h.store.LoadPosition(ctx, pool.PoolID, "alice")
	if err != nil {
		t.Fatalf("position: %v", err)
	}

	half := position.Shares.Div(decimal.NewFromInt(2))
	res, err := h.engine.RemoveLiquidity(ctx, pool.PoolID, "alice", half)
	if err != nil {
		t.Fatalf("remove liquidity: %v", err)
	}
	approxEqual(t, res.DomainAmount, decimal.NewFromInt(500), 1e-9)
	approxEqual(t, res.BaseAmount, decimal.NewFromInt(2500), 1e-9)
	approxEqual(t, res.RemainingShares, half, 1e-9)

	got, err := h.engine.Pool(pool.PoolID)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	// Withdrawal never moves the price.
	before, _ := pool.Price()
	after, _ := got.Price()
	if !after.Equal(before) {
		t.Fatalf("withdrawal moved the price: %s -> %s", before, after)
	}
}

func TestRemoveLiquidityRejectsOverdraw(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)
	ctx := context.Background()

	position, err := h.store.LoadPosition(ctx, pool.PoolID, "alice")
	if err != nil {
		t.Fatalf("position: %v", err)
	}

	_, err = h.engine.RemoveLiquidity(ctx, pool.PoolID, "alice", position.Shares.Add(decimal.NewFromInt(1)))
	if !errors.Is(err, model.ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	if _, err := h.engine.RemoveLiquidity(ctx, pool.PoolID, "bob", decimal.NewFromInt(1)); !errors.Is(err, model.ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound for stranger, got %v", err)
	}
}

func TestRemoveLiquidityFullDrainsAndFreesPair(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)
	ctx := context.Background()

	position, err := h.store.LoadPosition(ctx, pool.PoolID, "alice")
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	res, err := h.engine.RemoveLiquidity(ctx, pool.PoolID, "alice", position.Shares)
	if err != nil {
		t.Fatalf("remove liquidity: %v", err)
	}
	if !res.RemainingShares.IsZero() {
		t.Fatalf("remaining shares = %s, want 0", res.RemainingShares)
	}

	if _, err := h.store.LoadPosition(ctx, pool.PoolID, "alice"); !errors.Is(err, model.ErrPositionNotFound) {
		t.Fatalf("full withdrawal must delete the position, got %v", err)
	}

	got, err := h.engine.Pool(pool.PoolID)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if got.Active() {
		t.Fatalf("pool should be drained, reserves %s/%s", got.DomainReserve, got.BaseReserve)
	}

	// The pair can be recreated as a fresh pool.
	h.clock.Advance(time.Second)
	fresh, _, err := h.engine.CreatePool(ctx, "example.com", "USDC",
		decimal.NewFromInt(2000), decimal.NewFromInt(4000), decimal.Zero, "bob")
	if err != nil {
		t.Fatalf("recreate pair: %v", err)
	}
	if fresh.PoolID == pool.PoolID {
		t.Fatalf("recreated pool reused the old id")
	}
}

func TestRemoveLiquidityRollsBackOnTransferFailure(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)
	ctx := context.Background()
	h.settler.FailOn = "example.com"

	position, err := h.store.LoadPosition(ctx, pool.PoolID, "alice")
	if err != nil {
		t.Fatalf("position: %v", err)
	}

	_, err = h.engine.RemoveLiquidity(ctx, pool.PoolID, "alice", position.Shares)
	if !errors.Is(err, model.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	got, err := h.engine.Pool(pool.PoolID)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if !got.DomainReserve.Equal(pool.DomainReserve) || !got.TotalShares.Equal(pool.TotalShares) {
		t.Fatalf("failed withdrawal changed pool state: %+v", got)
	}
	if _, err := h.store.LoadPosition(ctx, pool.PoolID, "alice"); err != nil {
		t.Fatalf("position must survive a failed withdrawal: %v", err)
	}
}

func TestConcurrentDepositsConserveShares(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)
	ctx := context.Background()

	// Deposits by one provider race each other; the position record and
	// the pool's share supply must still agree afterwards.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				if _, err := h.engine.AddLiquidity(ctx, pool.PoolID, "bob",
					decimal.NewFromInt(10), decimal.NewFromInt(50)); err != nil {
					t.Errorf("add liquidity: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, err := h.engine.Pool(pool.PoolID)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	positions, err := h.store.ListPoolPositions(ctx, pool.PoolID)
	if err != nil {
		t.Fatalf("list positions: %v", err)
	}
	sum := decimal.Zero
	for _, position := range positions {
		sum = sum.Add(position.Shares)
	}
	if !sum.Equal(got.TotalShares) {
		t.Fatalf("sum of position shares %s != total shares %s", sum, got.TotalShares)
	}
}

func TestConcurrentFullWithdrawalsBurnOnce(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)
	ctx := context.Background()

	added, err := h.engine.AddLiquidity(ctx, pool.PoolID, "bob",
		decimal.NewFromInt(100), decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}

	// Both withdrawals target bob's full balance; only one may burn.
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = h.engine.RemoveLiquidity(ctx, pool.PoolID, "bob", added.SharesMinted)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, model.ErrPositionNotFound) && !errors.Is(err, model.ErrInsufficientLiquidity) {
			t.Fatalf("unexpected withdrawal error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d withdrawals succeeded, want exactly 1", succeeded)
	}

	got, err := h.engine.Pool(pool.PoolID)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	alice, err := h.store.LoadPosition(ctx, pool.PoolID, "alice")
	if err != nil {
		t.Fatalf("alice position: %v", err)
	}
	if !got.TotalShares.Equal(alice.Shares) {
		t.Fatalf("total shares %s != alice's %s after bob's exit", got.TotalShares, alice.Shares)
	}
}

func TestAddThenRemoveRoundTrip(t *testing.T) {
	h := newTestEngine(t)
	pool := h.createPool(t)
	ctx := context.Background()

	added, err := h.engine.AddLiquidity(ctx, pool.PoolID, "bob",
		decimal.NewFromInt(100), decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	removed, err := h.engine.RemoveLiquidity(ctx, pool.PoolID, "bob", added.SharesMinted)
	if err != nil {
		t.Fatalf("remove liquidity: %v", err)
	}

	// Without intervening trades a provider gets back what they put in.
	approxEqual(t, removed.DomainAmount, decimal.NewFromInt(100), 1e-9)
	approxEqual(t, removed.BaseAmount, decimal.NewFromInt(500), 1e-9)
}
