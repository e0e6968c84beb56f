package trading

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lungfish-labs/simex/internal/domain"
)

// TradeRepository reads the append-only trade ledger. Records are written
// by the ledger store inside the trade transaction; the only write path
// here is the settlement-reference enrichment, which never touches the
// financial fields.
type TradeRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		db:  db,
		log: log.With().Str("repo", "trade").Logger(),
	}
}

const tradeColumns = `
	t.seq, t.id, t.account_id, t.asset_id, a.symbol, a.name,
	t.side, t.quantity, t.price, t.total_amount, t.settlement_ref, t.created_at
`

// History returns an account's trades newest first. The offset cursor
// makes the sequence restartable from any point.
func (r *TradeRepository) History(accountID string, limit, offset int) ([]domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades t
		JOIN assets a ON a.id = t.asset_id
		WHERE t.account_id = ?
		ORDER BY t.seq DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Query(query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade history: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		trade, err := scanTrade(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// GetByID returns a trade record, or ErrUnknownTrade.
func (r *TradeRepository) GetByID(tradeID string) (*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades t
		JOIN assets a ON a.id = t.asset_id
		WHERE t.id = ?
	`

	row := r.db.QueryRow(query, tradeID)

	trade, err := scanTrade(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUnknownTrade
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}

	return &trade, nil
}

// AttachSettlement attaches an opaque settlement reference to a final
// trade. First writer wins; re-attaching the same value is a no-op,
// a different value is ErrSettlementConflict.
func (r *TradeRepository) AttachSettlement(tradeID, reference string) error {
	if reference == "" {
		return fmt.Errorf("settlement reference cannot be empty")
	}

	result, err := r.db.Exec(`
		UPDATE trades SET settlement_ref = ?
		WHERE id = ? AND (settlement_ref IS NULL OR settlement_ref = ?)
	`, reference, tradeID, reference)
	if err != nil {
		return fmt.Errorf("failed to attach settlement reference: %w", err)
	}

	if n, _ := result.RowsAffected(); n > 0 {
		r.log.Info().Str("trade_id", tradeID).Msg("Settlement reference attached")
		return nil
	}

	var exists int
	err = r.db.QueryRow("SELECT 1 FROM trades WHERE id = ?", tradeID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrUnknownTrade
	}
	if err != nil {
		return fmt.Errorf("failed to check trade existence: %w", err)
	}

	return domain.ErrSettlementConflict
}

// Unsettled returns the oldest trades without a settlement reference,
// for the background enrichment sweep.
func (r *TradeRepository) Unsettled(limit int) ([]domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades t
		JOIN assets a ON a.id = t.asset_id
		WHERE t.settlement_ref IS NULL
		ORDER BY t.seq ASC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unsettled trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		trade, err := scanTrade(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// Count returns the number of trade records for an account
func (r *TradeRepository) Count(accountID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM trades WHERE account_id = ?", accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

func scanTrade(scan func(dest ...interface{}) error) (domain.Trade, error) {
	var trade domain.Trade
	var side, qty, price, total, createdAt string
	var settlementRef sql.NullString

	if err := scan(
		&trade.Seq,
		&trade.ID,
		&trade.AccountID,
		&trade.AssetID,
		&trade.AssetSymbol,
		&trade.AssetName,
		&side,
		&qty,
		&price,
		&total,
		&settlementRef,
		&createdAt,
	); err != nil {
		return trade, err
	}

	trade.Side = domain.Side(side)

	var err error
	if trade.Quantity, err = decimal.NewFromString(qty); err != nil {
		return trade, fmt.Errorf("corrupt quantity %q: %w", qty, err)
	}
	if trade.Price, err = decimal.NewFromString(price); err != nil {
		return trade, fmt.Errorf("corrupt price %q: %w", price, err)
	}
	if trade.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return trade, fmt.Errorf("corrupt total amount %q: %w", total, err)
	}

	if settlementRef.Valid {
		trade.SettlementRef = settlementRef.String
	}

	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		trade.CreatedAt = t
	}

	return trade, nil
}
