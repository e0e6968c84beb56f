package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lungfish-labs/simex/internal/domain"
)

// Account is a trading account. Cash balance is mutated only by
// ApplyTrade; accounts are never deleted.
type Account struct {
	ID              string          `json:"id"`
	Username        string          `json:"username"`
	CashBalance     decimal.Decimal `json:"cash_balance"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Holding is an (account, asset) position with its average entry price.
// A zero-quantity holding is deleted rather than stored; the average
// entry price is meaningless without quantity.
type Holding struct {
	AccountID string           `json:"account_id"`
	AssetID   int64            `json:"asset_id"`
	Symbol    string           `json:"symbol"`
	Name      string           `json:"name"`
	Kind      domain.AssetKind `json:"kind"`
	Quantity  decimal.Decimal  `json:"quantity"`
	AvgPrice  decimal.Decimal  `json:"avg_price"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
