package trading

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lungfish-labs/simex/internal/domain"
)

// TradeRequest is the JSON body for POST /api/trade/buy and /api/trade/sell
type TradeRequest struct {
	AssetSymbol string          `json:"asset_symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// SettlementRequest is the JSON body for attaching a settlement reference
type SettlementRequest struct {
	Reference string `json:"reference"`
}

// AssetRef identifies an asset in responses
type AssetRef struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// TradeView is the client-facing shape of a trade record
type TradeView struct {
	ID              string          `json:"id"`
	TradeType       string          `json:"trade_type"`
	Asset           AssetRef        `json:"asset"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	SolanaSignature string          `json:"solana_signature,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewTradeView converts a trade record into its response shape
func NewTradeView(t *domain.Trade) TradeView {
	return TradeView{
		ID:              t.ID,
		TradeType:       string(t.Side),
		Asset:           AssetRef{Symbol: t.AssetSymbol, Name: t.AssetName},
		Quantity:        t.Quantity,
		Price:           t.Price,
		TotalAmount:     t.TotalAmount,
		SolanaSignature: t.SettlementRef,
		CreatedAt:       t.CreatedAt,
	}
}
