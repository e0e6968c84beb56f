package oracle

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNoQuote means the source has no price for the symbol.
var ErrNoQuote = errors.New("no quote for symbol")

// PriceSource supplies the current reference price per symbol. Prices are
// externally supplied inputs as far as the ledger engine is concerned;
// this package only defines the boundary plus a simulated feed.
type PriceSource interface {
	// Price returns the current reference price for a symbol.
	Price(symbol string) (decimal.Decimal, error)

	// Prices returns current quotes for every known symbol.
	Prices() map[string]decimal.Decimal
}

// Static is a fixed-quote PriceSource for tests and offline valuation.
type Static map[string]decimal.Decimal

// Price implements PriceSource
func (s Static) Price(symbol string) (decimal.Decimal, error) {
	p, ok := s[symbol]
	if !ok {
		return decimal.Zero, ErrNoQuote
	}
	return p, nil
}

// Prices implements PriceSource
func (s Static) Prices() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(s))
	for symbol, p := range s {
		out[symbol] = p
	}
	return out
}
