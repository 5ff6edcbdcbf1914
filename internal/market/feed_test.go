package market

import (
	"math"
	"testing"
	"time"
)

func points(prices ...float64) []pricePoint {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	out := make([]pricePoint, len(prices))
	for i, p := range prices {
		out[i] = pricePoint{ts: base.Add(time.Duration(i) * time.Second), price: p}
	}
	return out
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestWindowStats_ChangeAndVolatility(t *testing.T) {
	change, vol := windowStats(points(100, 110, 105))
	if !almostEqual(change, 5) {
		t.Fatalf("change=%v want=5", change)
	}
	if !almostEqual(vol, 0.1) {
		t.Fatalf("vol=%v want=0.1", vol)
	}
}

func TestWindowStats_NegativeChange(t *testing.T) {
	change, _ := windowStats(points(200, 190))
	if !almostEqual(change, -5) {
		t.Fatalf("change=%v want=-5", change)
	}
}

func TestWindowStats_TooFewPoints(t *testing.T) {
	change, vol := windowStats(points(100))
	if change != 0 || vol != 0 {
		t.Fatalf("change=%v vol=%v want=0,0 for a single point", change, vol)
	}
	change, vol = windowStats(nil)
	if change != 0 || vol != 0 {
		t.Fatalf("change=%v vol=%v want=0,0 for empty window", change, vol)
	}
}

func TestObserve_TrimsOldPoints(t *testing.T) {
	f := &Feed{WindowSeconds: 60}
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	f.observe("BTCUSDT", base, 100)
	f.observe("BTCUSDT", base.Add(30*time.Second), 110)
	// Two minutes later: both earlier points have fallen out of the window.
	change, _ := f.observe("BTCUSDT", base.Add(2*time.Minute), 120)
	if change != 0 {
		t.Fatalf("change=%v want=0 after trim left one point", change)
	}

	change, _ = f.observe("BTCUSDT", base.Add(2*time.Minute+10*time.Second), 126)
	if !almostEqual(change, 5) {
		t.Fatalf("change=%v want=5 over surviving window", change)
	}
}

func TestVolatility_EmptyWindowIsZero(t *testing.T) {
	f := &Feed{}
	if v := f.Volatility("BTCUSDT"); v != 0 {
		t.Fatalf("vol=%v want=0", v)
	}
}
