package trading

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lungfish-labs/simex/internal/domain"
	"github.com/lungfish-labs/simex/internal/metrics"
	"github.com/lungfish-labs/simex/internal/modules/catalog"
	"github.com/lungfish-labs/simex/internal/modules/ledger"
	"github.com/lungfish-labs/simex/internal/oracle"
)

// SettlementNotifier is notified after a trade commits so the settlement
// reference can be attached out of band. Implementations must not block.
type SettlementNotifier interface {
	Enqueue(tradeID string)
}

// Executor validates and executes trades. Price sanity checks happen
// here, against the oracle; the atomic ledger mutation happens in the
// ledger store.
type Executor struct {
	catalog     *catalog.Repository
	ledger      *ledger.Store
	prices      oracle.PriceSource
	settlements SettlementNotifier
	slippagePct decimal.Decimal
	log         zerolog.Logger
}

// NewExecutor creates a trade executor. settlements may be nil to
// disable post-trade settlement enrichment. slippagePct of zero
// disables the oracle deviation check.
func NewExecutor(
	catalogRepo *catalog.Repository,
	ledgerStore *ledger.Store,
	prices oracle.PriceSource,
	settlements SettlementNotifier,
	slippagePct decimal.Decimal,
	log zerolog.Logger,
) *Executor {
	return &Executor{
		catalog:     catalogRepo,
		ledger:      ledgerStore,
		prices:      prices,
		settlements: settlements,
		slippagePct: slippagePct,
		log:         log.With().Str("service", "executor").Logger(),
	}
}

// Result is the outcome of a successful trade execution
type Result struct {
	Trade            *domain.Trade
	RemainingBalance decimal.Decimal
}

// Execute runs one trade end to end: resolve the asset, check the
// client price against the oracle, apply the atomic ledger mutation,
// then hand the trade off for settlement enrichment.
func (e *Executor) Execute(
	accountID, assetSymbol string,
	side domain.Side,
	quantity, price decimal.Decimal,
) (*Result, error) {
	start := time.Now()

	asset, err := e.catalog.GetBySymbol(assetSymbol)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownAsset) {
			metrics.TradeRejectionsTotal.WithLabelValues("unknown_asset").Inc()
		}
		return nil, err
	}

	if err := e.checkSlippage(asset.Symbol, price); err != nil {
		metrics.TradeRejectionsTotal.WithLabelValues("price_out_of_band").Inc()
		return nil, err
	}

	account, _, trade, err := e.ledger.ApplyTrade(accountID, *asset, side, quantity, price)
	if err != nil {
		e.recordRejection(err)
		return nil, err
	}

	metrics.TradesTotal.WithLabelValues(string(side)).Inc()
	metrics.TradeDuration.WithLabelValues(string(side)).Observe(time.Since(start).Seconds())

	if e.settlements != nil {
		e.settlements.Enqueue(trade.ID)
	}

	return &Result{
		Trade:            trade,
		RemainingBalance: account.CashBalance,
	}, nil
}

// checkSlippage rejects trades whose client price deviates from the
// oracle by more than the configured tolerance. When the oracle has no
// quote for the symbol the trade proceeds at the client's price.
func (e *Executor) checkSlippage(symbol string, price decimal.Decimal) error {
	if e.slippagePct.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	oraclePrice, err := e.prices.Price(symbol)
	if err != nil {
		if errors.Is(err, oracle.ErrNoQuote) {
			e.log.Warn().Str("symbol", symbol).Msg("No oracle quote, skipping price check")
			return nil
		}
		return fmt.Errorf("failed to fetch oracle price: %w", err)
	}

	if oraclePrice.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	deviation := price.Sub(oraclePrice).Abs().Div(oraclePrice).Mul(decimal.NewFromInt(100))
	if deviation.GreaterThan(e.slippagePct) {
		e.log.Warn().
			Str("symbol", symbol).
			Str("client_price", price.String()).
			Str("oracle_price", oraclePrice.String()).
			Str("deviation_pct", deviation.StringFixed(4)).
			Msg("Price outside slippage tolerance")
		return fmt.Errorf("%w: price %s deviates %s%% from oracle %s",
			domain.ErrPriceOutOfBand, price.String(), deviation.StringFixed(2), oraclePrice.String())
	}

	return nil
}

func (e *Executor) recordRejection(err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		metrics.TradeRejectionsTotal.WithLabelValues("insufficient_balance").Inc()
	case errors.Is(err, domain.ErrInsufficientHoldings):
		metrics.TradeRejectionsTotal.WithLabelValues("insufficient_holdings").Inc()
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidPrice):
		metrics.TradeRejectionsTotal.WithLabelValues("invalid_request").Inc()
	case errors.Is(err, domain.ErrConcurrencyConflict):
		metrics.TradeRejectionsTotal.WithLabelValues("conflict").Inc()
	default:
		metrics.TradeRejectionsTotal.WithLabelValues("internal").Inc()
	}
}
