package oracle

import (
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"
)

// Base quotes for the simulated venue. Stablecoins are pinned at 1.00;
// everything else gets a small random walk around its base on each read.
var defaultBasePrices = map[string]string{
	"BTC":      "45000.00",
	"ETH":      "2500.00",
	"SOL":      "100.00",
	"USDC":     "1.00",
	"USDT":     "1.00",
	"BTC-PERP": "45000.00",
	"ETH-PERP": "2500.00",
	"SOL-PERP": "100.00",
}

var stableSymbols = map[string]bool{
	"USDC": true,
	"USDT": true,
}

// Simulated is a PriceSource that jitters base prices by up to ±2% per
// quote. It stands in for a real market-data feed.
type Simulated struct {
	mu     sync.Mutex
	base   map[string]decimal.Decimal
	rng    *rand.Rand
	jitter decimal.Decimal // max relative deviation, e.g. 0.02
}

// NewSimulated creates a simulated feed with the default base quotes
func NewSimulated(seed int64) *Simulated {
	base := make(map[string]decimal.Decimal, len(defaultBasePrices))
	for symbol, price := range defaultBasePrices {
		base[symbol] = decimal.RequireFromString(price)
	}

	return &Simulated{
		base:   base,
		rng:    rand.New(rand.NewSource(seed)),
		jitter: decimal.RequireFromString("0.02"),
	}
}

// SetBase overrides or adds a base quote for a symbol
func (s *Simulated) SetBase(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base[symbol] = price
}

// Price implements PriceSource
func (s *Simulated) Price(symbol string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, ok := s.base[symbol]
	if !ok {
		return decimal.Zero, ErrNoQuote
	}

	if stableSymbols[symbol] {
		return base, nil
	}

	return s.jittered(base), nil
}

// Prices implements PriceSource
func (s *Simulated) Prices() map[string]decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]decimal.Decimal, len(s.base))
	for symbol, base := range s.base {
		if stableSymbols[symbol] {
			out[symbol] = base
			continue
		}
		out[symbol] = s.jittered(base)
	}
	return out
}

// jittered applies a uniform relative deviation in [-jitter, +jitter].
// Caller must hold s.mu.
func (s *Simulated) jittered(base decimal.Decimal) decimal.Decimal {
	// (rng in [0,1) - 0.5) * 2 * jitter
	deviation := decimal.NewFromFloat(s.rng.Float64() - 0.5).
		Mul(decimal.NewFromInt(2)).
		Mul(s.jitter)
	return base.Mul(decimal.NewFromInt(1).Add(deviation)).Round(8)
}
