package domain

import "errors"

// Financial-rule violations are resolved at the executor boundary and
// surfaced to the caller as structured errors. Only storage faults
// propagate as opaque failures.
var (
	// ErrUnknownAccount means no account exists for the given id or token.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrUnknownAsset means the symbol is not in the asset catalog.
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrUnknownTrade means no trade record exists for the given id.
	ErrUnknownTrade = errors.New("unknown trade")

	// ErrInvalidQuantity means the requested quantity is zero or negative.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidPrice means the submitted price is zero or negative.
	ErrInvalidPrice = errors.New("price must be positive")

	// ErrInsufficientBalance means a BUY exceeds the account's cash balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientHoldings means a SELL exceeds the held quantity.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrPriceOutOfBand means the submitted price deviates from the oracle
	// quote beyond the configured slippage tolerance.
	ErrPriceOutOfBand = errors.New("price outside slippage tolerance")

	// ErrConcurrencyConflict means a serialization race could not be
	// resolved within the store's internal retry limit. No partial state
	// is recorded when this is returned.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")

	// ErrSettlementConflict means a trade already carries a different
	// settlement reference.
	ErrSettlementConflict = errors.New("settlement reference already attached")
)
