package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side represents the trade direction (BUY or SELL)
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// IsValid checks if the trade side is valid
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// IsBuy returns true if this is a BUY trade
func (s Side) IsBuy() bool {
	return s == SideBuy
}

// IsSell returns true if this is a SELL trade
func (s Side) IsSell() bool {
	return s == SideSell
}

// SideFromString creates Side from string (case-insensitive)
func SideFromString(value string) (Side, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("invalid trade side: empty string")
	}

	switch strings.ToUpper(value) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return "", fmt.Errorf("invalid trade side: %s", value)
	}
}

// AssetKind distinguishes spot assets from derivative contracts
type AssetKind string

const (
	AssetKindSpot       AssetKind = "SPOT"
	AssetKindDerivative AssetKind = "DERIVATIVE"
)

// IsValid checks if the asset kind is valid
func (k AssetKind) IsValid() bool {
	return k == AssetKindSpot || k == AssetKindDerivative
}

// Asset represents a tradable symbol from the catalog.
// Immutable reference data, seeded at startup.
type Asset struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Kind      AssetKind `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Trade represents an executed trade record. Append-only: created exactly
// once per successful execution, never mutated afterwards except for the
// optional settlement-reference enrichment, which is keyed by trade id and
// never a precondition for the trade's validity.
type Trade struct {
	Seq           int64           `json:"-"`
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	AssetID       int64           `json:"asset_id"`
	AssetSymbol   string          `json:"asset_symbol,omitempty"`
	AssetName     string          `json:"asset_name,omitempty"`
	Side          Side            `json:"trade_type"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	SettlementRef string          `json:"solana_signature,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Validate checks trade invariants before it is applied
func (t *Trade) Validate() error {
	if !t.Side.IsValid() {
		return fmt.Errorf("invalid trade side: %s", t.Side)
	}

	if t.Quantity.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidQuantity
	}

	if t.Price.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidPrice
	}

	return nil
}
