package amm

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const volumeWindow = 24 * time.Hour

type volumeSample struct {
	ts    time.Time
	base  decimal.Decimal // base-token volume of the trade
	price decimal.Decimal // pool price after the trade
}

// volumeTracker keeps a rolling 24h window of trades per pool, feeding
// analytics (volume, price change) and the volume-linked reward bonus.
type volumeTracker struct {
	mu      sync.Mutex
	samples map[string][]volumeSample
}

func newVolumeTracker() *volumeTracker {
	return &volumeTracker{samples: make(map[string][]volumeSample)}
}

func (t *volumeTracker) Record(poolID string, baseVolume, priceAfter decimal.Decimal, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pruned := prune(t.samples[poolID], now)
	t.samples[poolID] = append(pruned, volumeSample{ts: now, base: baseVolume, price: priceAfter})
}

// Volume24h returns total base-token volume within the window.
func (t *volumeTracker) Volume24h(poolID string, now time.Time) decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples[poolID] = prune(t.samples[poolID], now)

	total := decimal.Zero
	for _, sample := range t.samples[poolID] {
		total = total.Add(sample.base)
	}
	return total
}

// PriceChange24h returns the relative change between the oldest in-window
// trade price and the current price, as a fraction. Zero when no trades.
func (t *volumeTracker) PriceChange24h(poolID string, currentPrice decimal.Decimal, now time.Time) decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples[poolID] = prune(t.samples[poolID], now)

	samples := t.samples[poolID]
	if len(samples) == 0 || !samples[0].price.IsPositive() {
		return decimal.Zero
	}
	return currentPrice.Sub(samples[0].price).Div(samples[0].price)
}

func prune(samples []volumeSample, now time.Time) []volumeSample {
	cutoff := now.Add(-volumeWindow)
	idx := 0
	for idx < len(samples) && samples[idx].ts.Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return samples
	}
	return append([]volumeSample(nil), samples[idx:]...)
}
