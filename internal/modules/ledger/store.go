package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lungfish-labs/simex/internal/domain"
	"github.com/lungfish-labs/simex/pkg/formulas"
)

// busyRetries bounds the internal retry loop for SQLITE_BUSY commits.
// Business-rule rejections are never retried.
const busyRetries = 3

// Store is the single source of truth for account state. ApplyTrade is
// atomic: cash, holding, and the trade record commit together or not at
// all, and concurrent trades on one account are strictly serialized.
type Store struct {
	db    *sql.DB
	locks *accountLocks
	log   zerolog.Logger
}

// NewStore creates a new ledger store
func NewStore(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		db:    db,
		locks: newAccountLocks(),
		log:   log.With().Str("repo", "ledger").Logger(),
	}
}

// CreateAccount opens an account with the fixed starting balance and an
// opaque bearer token used by the auth middleware.
func (s *Store) CreateAccount(username, apiToken string, startingBalance decimal.Decimal) (*Account, error) {
	if startingBalance.IsNegative() {
		return nil, fmt.Errorf("starting balance must not be negative")
	}

	now := time.Now().UTC()
	account := &Account{
		ID:              uuid.New().String(),
		Username:        strings.TrimSpace(username),
		CashBalance:     startingBalance,
		StartingBalance: startingBalance,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	query := `
		INSERT INTO accounts
		(id, username, api_token, cash_balance, starting_balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		account.ID,
		account.Username,
		apiToken,
		account.CashBalance.String(),
		account.StartingBalance.String(),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.log.Info().
		Str("account_id", account.ID).
		Str("username", account.Username).
		Str("starting_balance", startingBalance.String()).
		Msg("Account created")

	return account, nil
}

// GetAccount returns the account for an id, or ErrUnknownAccount.
func (s *Store) GetAccount(accountID string) (*Account, error) {
	row := s.db.QueryRow(`
		SELECT id, username, cash_balance, starting_balance, created_at, updated_at
		FROM accounts
		WHERE id = ?
	`, accountID)

	account, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUnknownAccount
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// GetAccountByToken resolves a bearer token to its account, or
// ErrUnknownAccount. Used by the auth middleware.
func (s *Store) GetAccountByToken(apiToken string) (*Account, error) {
	row := s.db.QueryRow(`
		SELECT id, username, cash_balance, starting_balance, created_at, updated_at
		FROM accounts
		WHERE api_token = ?
	`, apiToken)

	account, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUnknownAccount
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by token: %w", err)
	}

	return &account, nil
}

// ListAccountIDs returns every account id. Used by background jobs.
func (s *Store) ListAccountIDs() ([]string, error) {
	rows, err := s.db.Query("SELECT id FROM accounts ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return ids, nil
}

// GetHoldings returns all non-zero holdings for an account, joined with
// asset reference data, ordered by symbol.
func (s *Store) GetHoldings(accountID string) ([]Holding, error) {
	query := `
		SELECT h.account_id, h.asset_id, a.symbol, a.name, a.kind,
		       h.quantity, h.avg_price, h.created_at, h.updated_at
		FROM holdings h
		JOIN assets a ON a.id = h.asset_id
		WHERE h.account_id = ?
		ORDER BY a.symbol ASC
	`

	rows, err := s.db.Query(query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		holding, err := scanHolding(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, holding)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// GetHolding returns the holding for (account, asset), or nil when the
// account holds none of the asset.
func (s *Store) GetHolding(accountID string, assetID int64) (*Holding, error) {
	query := `
		SELECT h.account_id, h.asset_id, a.symbol, a.name, a.kind,
		       h.quantity, h.avg_price, h.created_at, h.updated_at
		FROM holdings h
		JOIN assets a ON a.id = h.asset_id
		WHERE h.account_id = ? AND h.asset_id = ?
	`

	row := s.db.QueryRow(query, accountID, assetID)

	holding, err := scanHolding(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}

	return &holding, nil
}

// ApplyTrade atomically applies a validated buy/sell against the account:
// cash balance, holding row, and the appended trade record commit in one
// transaction. Returns the post-trade account, the post-trade holding
// (nil when the position was closed), and the immutable trade record.
//
// BUY uses weighted-average cost: newAvg = (oldQty*oldAvg + qty*price) /
// (oldQty+qty). SELL leaves the average untouched and only reduces
// quantity. Rejections leave no trace.
func (s *Store) ApplyTrade(
	accountID string,
	asset domain.Asset,
	side domain.Side,
	quantity, price decimal.Decimal,
) (*Account, *Holding, *domain.Trade, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, nil, nil, domain.ErrInvalidQuantity
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, nil, nil, domain.ErrInvalidPrice
	}
	if !side.IsValid() {
		return nil, nil, nil, fmt.Errorf("invalid trade side: %s", side)
	}

	// Serialize per account; other accounts proceed in parallel.
	lock := s.locks.forAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	var (
		account *Account
		holding *Holding
		trade   *domain.Trade
	)

	err := s.withBusyRetry(func() error {
		var txErr error
		account, holding, trade, txErr = s.applyTradeTx(accountID, asset, side, quantity, price)
		return txErr
	})
	if err != nil {
		return nil, nil, nil, err
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("symbol", asset.Symbol).
		Str("side", string(side)).
		Str("quantity", quantity.String()).
		Str("price", price.String()).
		Str("trade_id", trade.ID).
		Msg("Trade applied")

	return account, holding, trade, nil
}

// applyTradeTx runs the read-modify-write inside one transaction.
func (s *Store) applyTradeTx(
	accountID string,
	asset domain.Asset,
	side domain.Side,
	quantity, price decimal.Decimal,
) (*Account, *Holding, *domain.Trade, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRow(`
		SELECT id, username, cash_balance, starting_balance, created_at, updated_at
		FROM accounts
		WHERE id = ?
	`, accountID)

	account, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil, domain.ErrUnknownAccount
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read account: %w", err)
	}

	var oldQty, oldAvg decimal.Decimal
	var holdingExists bool

	hRow := tx.QueryRow(`
		SELECT quantity, avg_price FROM holdings
		WHERE account_id = ? AND asset_id = ?
	`, accountID, asset.ID)

	switch err := hRow.Scan(&oldQty, &oldAvg); {
	case errors.Is(err, sql.ErrNoRows):
		holdingExists = false
	case err != nil:
		return nil, nil, nil, fmt.Errorf("failed to read holding: %w", err)
	default:
		holdingExists = true
	}

	total := quantity.Mul(price)
	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339Nano)

	var newCash, newQty, newAvg decimal.Decimal

	if side.IsBuy() {
		if account.CashBalance.LessThan(total) {
			return nil, nil, nil, domain.ErrInsufficientBalance
		}
		newCash = account.CashBalance.Sub(total)
		if holdingExists {
			newQty = oldQty.Add(quantity)
			newAvg = formulas.WeightedAverageCost(oldQty, oldAvg, quantity, price)
		} else {
			newQty = quantity
			newAvg = price
		}
	} else {
		if !holdingExists || oldQty.LessThan(quantity) {
			return nil, nil, nil, domain.ErrInsufficientHoldings
		}
		newCash = account.CashBalance.Add(total)
		newQty = oldQty.Sub(quantity)
		newAvg = oldAvg // cost basis unchanged on sell
	}

	if _, err := tx.Exec(
		"UPDATE accounts SET cash_balance = ?, updated_at = ? WHERE id = ?",
		newCash.String(), nowStr, accountID,
	); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to update balance: %w", err)
	}

	var holding *Holding
	switch {
	case newQty.IsZero():
		// Position closed; a zero-quantity holding is logically absent.
		if _, err := tx.Exec(
			"DELETE FROM holdings WHERE account_id = ? AND asset_id = ?",
			accountID, asset.ID,
		); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to remove holding: %w", err)
		}
	case holdingExists:
		if _, err := tx.Exec(`
			UPDATE holdings SET quantity = ?, avg_price = ?, updated_at = ?
			WHERE account_id = ? AND asset_id = ?
		`, newQty.String(), newAvg.String(), nowStr, accountID, asset.ID); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to update holding: %w", err)
		}
	default:
		if _, err := tx.Exec(`
			INSERT INTO holdings (account_id, asset_id, quantity, avg_price, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, accountID, asset.ID, newQty.String(), newAvg.String(), nowStr, nowStr); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create holding: %w", err)
		}
	}

	trade := &domain.Trade{
		ID:          uuid.New().String(),
		AccountID:   accountID,
		AssetID:     asset.ID,
		AssetSymbol: asset.Symbol,
		AssetName:   asset.Name,
		Side:        side,
		Quantity:    quantity,
		Price:       price,
		TotalAmount: total,
		CreatedAt:   now,
	}

	if _, err := tx.Exec(`
		INSERT INTO trades (id, account_id, asset_id, side, quantity, price, total_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		trade.ID,
		trade.AccountID,
		trade.AssetID,
		string(trade.Side),
		trade.Quantity.String(),
		trade.Price.String(),
		trade.TotalAmount.String(),
		now.Format(time.RFC3339Nano),
	); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to append trade record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to commit trade: %w", err)
	}

	account.CashBalance = newCash
	account.UpdatedAt = now

	if !newQty.IsZero() {
		holding = &Holding{
			AccountID: accountID,
			AssetID:   asset.ID,
			Symbol:    asset.Symbol,
			Name:      asset.Name,
			Kind:      asset.Kind,
			Quantity:  newQty,
			AvgPrice:  newAvg,
			UpdatedAt: now,
		}
	}

	return &account, holding, trade, nil
}

// withBusyRetry retries fn on SQLITE_BUSY-style failures. Business errors
// pass through untouched; exhaustion maps to ErrConcurrencyConflict.
func (s *Store) withBusyRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt <= busyRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 10 * time.Millisecond)
		}

		err = fn()
		if err == nil || !isBusy(err) {
			return err
		}

		s.log.Warn().Err(err).Int("attempt", attempt+1).Msg("Retrying busy transaction")
	}

	return fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, err)
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// Scan helpers

func scanAccount(scan func(dest ...interface{}) error) (Account, error) {
	var account Account
	var cash, starting, createdAt, updatedAt string

	if err := scan(&account.ID, &account.Username, &cash, &starting, &createdAt, &updatedAt); err != nil {
		return account, err
	}

	var err error
	if account.CashBalance, err = decimal.NewFromString(cash); err != nil {
		return account, fmt.Errorf("corrupt cash balance %q: %w", cash, err)
	}
	if account.StartingBalance, err = decimal.NewFromString(starting); err != nil {
		return account, fmt.Errorf("corrupt starting balance %q: %w", starting, err)
	}

	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		account.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		account.UpdatedAt = t
	}

	return account, nil
}

func scanHolding(scan func(dest ...interface{}) error) (Holding, error) {
	var holding Holding
	var kind, qty, avg, createdAt, updatedAt string

	if err := scan(
		&holding.AccountID,
		&holding.AssetID,
		&holding.Symbol,
		&holding.Name,
		&kind,
		&qty,
		&avg,
		&createdAt,
		&updatedAt,
	); err != nil {
		return holding, err
	}

	holding.Kind = domain.AssetKind(kind)

	var err error
	if holding.Quantity, err = decimal.NewFromString(qty); err != nil {
		return holding, fmt.Errorf("corrupt quantity %q: %w", qty, err)
	}
	if holding.AvgPrice, err = decimal.NewFromString(avg); err != nil {
		return holding, fmt.Errorf("corrupt avg price %q: %w", avg, err)
	}

	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		holding.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		holding.UpdatedAt = t
	}

	return holding, nil
}
