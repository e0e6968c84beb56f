package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SnapshotRepository persists end-of-day portfolio valuations, one row
// per account per date.
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "snapshot").Logger(),
	}
}

// Upsert records a valuation for the given date, replacing any earlier
// snapshot taken the same day.
func (r *SnapshotRepository) Upsert(accountID, date string, totalValue, cashBalance, pnl decimal.Decimal) error {
	_, err := r.db.Exec(`
		INSERT INTO portfolio_snapshots (account_id, date, total_value, cash_balance, pnl, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, date) DO UPDATE SET
			total_value = excluded.total_value,
			cash_balance = excluded.cash_balance,
			pnl = excluded.pnl
	`, accountID, date, totalValue.String(), cashBalance.String(), pnl.String(),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return nil
}

// GetHistory returns up to days of snapshots for an account, oldest
// first so clients can chart the series directly.
func (r *SnapshotRepository) GetHistory(accountID string, days int) ([]Snapshot, error) {
	rows, err := r.db.Query(`
		SELECT account_id, date, total_value, cash_balance, pnl, created_at
		FROM (
			SELECT account_id, date, total_value, cash_balance, pnl, created_at
			FROM portfolio_snapshots
			WHERE account_id = ?
			ORDER BY date DESC
			LIMIT ?
		)
		ORDER BY date ASC
	`, accountID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		var total, cash, pnl, createdAt string

		if err := rows.Scan(&s.AccountID, &s.Date, &total, &cash, &pnl, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		if s.TotalValue, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("corrupt total value %q: %w", total, err)
		}
		if s.CashBalance, err = decimal.NewFromString(cash); err != nil {
			return nil, fmt.Errorf("corrupt cash balance %q: %w", cash, err)
		}
		if s.PnL, err = decimal.NewFromString(pnl); err != nil {
			return nil, fmt.Errorf("corrupt pnl %q: %w", pnl, err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			s.CreatedAt = t
		}

		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}
