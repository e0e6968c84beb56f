package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetRef identifies an asset in portfolio responses
type AssetRef struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
}

// HoldingView is one valued position in a portfolio response
type HoldingView struct {
	Asset        AssetRef        `json:"asset"`
	Quantity     decimal.Decimal `json:"quantity"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Value        decimal.Decimal `json:"value"`
	PnL          decimal.Decimal `json:"pnl"`
	PnLPercent   decimal.Decimal `json:"pnl_percent"`
}

// Response is the full portfolio valuation returned to clients.
// Recomputed from scratch on every request; never cached.
type Response struct {
	TotalValue decimal.Decimal `json:"total_value"`
	Cash       decimal.Decimal `json:"cash"`
	PnL        decimal.Decimal `json:"pnl"`
	Holdings   []HoldingView   `json:"holdings"`
}

// Snapshot is one end-of-day portfolio valuation
type Snapshot struct {
	AccountID   string          `json:"account_id"`
	Date        string          `json:"date"`
	TotalValue  decimal.Decimal `json:"total_value"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	PnL         decimal.Decimal `json:"pnl"`
	CreatedAt   time.Time       `json:"created_at"`
}
