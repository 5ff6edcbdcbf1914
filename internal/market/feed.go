// Package market polls exchange REST price endpoints and turns them into
// ticks for the threshold-rule path, plus a volatility figure for the
// smart-timing gate.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Tick is one observed price with window-relative derived values.
type Tick struct {
	Symbol string
	Price  decimal.Decimal
	// ChangePct is the percent change across the sliding window.
	ChangePct float64
	// Volatility is the window high-low range as a fraction of the low.
	Volatility float64
	At         time.Time
}

// TickHandler consumes each poll result. Handlers must not block; the
// feed runs them synchronously between polls.
type TickHandler func(ctx context.Context, tick Tick)

type pricePoint struct {
	ts    time.Time
	price float64
}

// Feed polls a ticker-price endpoint for a set of symbols on a fixed
// interval and keeps a sliding window per symbol.
type Feed struct {
	HTTP   *http.Client
	Logger *zap.Logger

	Endpoint      string
	Symbols       []string
	PollInterval  time.Duration
	WindowSeconds int

	OnTick TickHandler

	mu     sync.Mutex
	series map[string][]pricePoint
}

func (f *Feed) Run(ctx context.Context) error {
	if f == nil || len(f.Symbols) == 0 {
		return nil
	}
	if f.HTTP == nil {
		f.HTTP = &http.Client{Timeout: 10 * time.Second}
	}
	interval := f.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	f.pollOnce(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			f.pollOnce(ctx)
		}
	}
}

func (f *Feed) pollOnce(ctx context.Context) {
	for _, symbol := range f.Symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		price, err := f.fetchPrice(ctx, symbol)
		if err != nil {
			if f.Logger != nil {
				f.Logger.Warn("price poll failed", zap.String("symbol", symbol), zap.Error(err))
			}
			continue
		}
		now := time.Now().UTC()
		changePct, vol := f.observe(symbol, now, price)
		if f.OnTick != nil {
			f.OnTick(ctx, Tick{
				Symbol:     symbol,
				Price:      decimal.NewFromFloat(price),
				ChangePct:  changePct,
				Volatility: vol,
				At:         now,
			})
		}
	}
}

func (f *Feed) fetchPrice(ctx context.Context, symbol string) (float64, error) {
	endpoint := strings.TrimSpace(f.Endpoint)
	if endpoint == "" {
		return 0, fmt.Errorf("missing endpoint")
	}
	u := endpoint + "?symbol=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("price endpoint status=%d body=%s", resp.StatusCode, string(raw))
	}
	var payload struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}
	price, err := decimal.NewFromString(strings.TrimSpace(payload.Price))
	if err != nil {
		return 0, fmt.Errorf("bad price %q: %w", payload.Price, err)
	}
	out, _ := price.Float64()
	if out <= 0 {
		return 0, fmt.Errorf("non-positive price %q", payload.Price)
	}
	return out, nil
}

// observe appends the point, trims the window, and returns the window
// percent change and volatility.
func (f *Feed) observe(symbol string, now time.Time, price float64) (changePct, vol float64) {
	window := f.WindowSeconds
	if window <= 0 {
		window = 300
	}
	cutoff := now.Add(-time.Duration(window) * time.Second)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.series == nil {
		f.series = map[string][]pricePoint{}
	}
	series := append(f.series[symbol], pricePoint{ts: now, price: price})
	trimmed := series[:0]
	for _, p := range series {
		if p.ts.Before(cutoff) {
			continue
		}
		trimmed = append(trimmed, p)
	}
	f.series[symbol] = trimmed

	return windowStats(trimmed)
}

// Volatility reports the current window volatility for symbol; zero when
// the window is empty.
func (f *Feed) Volatility(symbol string) float64 {
	if f == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, vol := windowStats(f.series[strings.ToUpper(strings.TrimSpace(symbol))])
	return vol
}

func windowStats(series []pricePoint) (changePct, vol float64) {
	if len(series) < 2 {
		return 0, 0
	}
	first := series[0].price
	last := series[len(series)-1].price
	low, high := series[0].price, series[0].price
	for _, p := range series[1:] {
		if p.price < low {
			low = p.price
		}
		if p.price > high {
			high = p.price
		}
	}
	if first > 0 {
		changePct = (last - first) / first * 100
	}
	if low > 0 {
		vol = (high - low) / low
	}
	return changePct, vol
}
