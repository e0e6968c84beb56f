package portfolio

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lungfish-labs/simex/internal/modules/ledger"
	"github.com/lungfish-labs/simex/internal/oracle"
	"github.com/lungfish-labs/simex/pkg/formulas"
)

// Valuator prices portfolios. It holds no state of its own: every call
// reads the ledger and the oracle fresh, so a valuation is always
// consistent with the trades committed before it.
type Valuator struct {
	ledger *ledger.Store
	prices oracle.PriceSource
	log    zerolog.Logger
}

// NewValuator creates a new portfolio valuator
func NewValuator(ledgerStore *ledger.Store, prices oracle.PriceSource, log zerolog.Logger) *Valuator {
	return &Valuator{
		ledger: ledgerStore,
		prices: prices,
		log:    log.With().Str("service", "valuator").Logger(),
	}
}

// Valuate prices every holding at the oracle's current quote and returns
// the full portfolio response. PnL is measured against the account's
// starting balance, so it reflects both realized and unrealized results.
func (v *Valuator) Valuate(accountID string) (*Response, error) {
	account, err := v.ledger.GetAccount(accountID)
	if err != nil {
		return nil, err
	}

	holdings, err := v.ledger.GetHoldings(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	totalValue := account.CashBalance
	views := make([]HoldingView, 0, len(holdings))

	for _, h := range holdings {
		currentPrice, err := v.prices.Price(h.Symbol)
		if errors.Is(err, oracle.ErrNoQuote) {
			// No quote means no mark; carry the position at cost.
			v.log.Warn().Str("symbol", h.Symbol).Msg("No oracle quote, valuing at cost")
			currentPrice = h.AvgPrice
		} else if err != nil {
			return nil, fmt.Errorf("failed to price %s: %w", h.Symbol, err)
		}

		value := h.Quantity.Mul(currentPrice)
		cost := h.Quantity.Mul(h.AvgPrice)
		pnl := value.Sub(cost)

		views = append(views, HoldingView{
			Asset: AssetRef{
				Symbol: h.Symbol,
				Name:   h.Name,
				Kind:   string(h.Kind),
			},
			Quantity:     h.Quantity,
			AvgPrice:     h.AvgPrice,
			CurrentPrice: currentPrice,
			Value:        value,
			PnL:          pnl,
			PnLPercent:   formulas.PnLPercent(pnl, cost),
		})

		totalValue = totalValue.Add(value)
	}

	return &Response{
		TotalValue: totalValue,
		Cash:       account.CashBalance,
		PnL:        totalValue.Sub(account.StartingBalance),
		Holdings:   views,
	}, nil
}

// TotalValue returns just the headline number, for snapshotting
func (v *Valuator) TotalValue(accountID string) (total, cash, pnl decimal.Decimal, err error) {
	resp, err := v.Valuate(accountID)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	return resp.TotalValue, resp.Cash, resp.PnL, nil
}
