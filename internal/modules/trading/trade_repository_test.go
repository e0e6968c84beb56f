package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lungfish-labs/simex/internal/domain"
)

func (e *testEnv) buy(t *testing.T, symbol, qty, price string) *domain.Trade {
	t.Helper()

	asset, err := e.catalog.GetBySymbol(symbol)
	require.NoError(t, err)

	_, _, trade, err := e.ledger.ApplyTrade(e.account.ID, *asset, domain.SideBuy, dec(t, qty), dec(t, price))
	require.NoError(t, err)
	return trade
}

func TestTradeRepository_History_NewestFirst(t *testing.T) {
	env := newTestEnv(t)

	first := env.buy(t, "BTC", "0.01", "45000")
	second := env.buy(t, "ETH", "0.1", "2500")
	third := env.buy(t, "SOL", "1", "100")

	trades, err := env.trades.History(env.account.ID, 100, 0)
	require.NoError(t, err)
	require.Len(t, trades, 3)

	assert.Equal(t, third.ID, trades[0].ID)
	assert.Equal(t, second.ID, trades[1].ID)
	assert.Equal(t, first.ID, trades[2].ID)

	// Joined asset fields come back populated.
	assert.Equal(t, "SOL", trades[0].AssetSymbol)
	assert.Equal(t, "Solana", trades[0].AssetName)
}

func TestTradeRepository_History_Pagination(t *testing.T) {
	env := newTestEnv(t)

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, env.buy(t, "SOL", "1", "100").ID)
	}

	page1, err := env.trades.History(env.account.ID, 2, 0)
	require.NoError(t, err)
	page2, err := env.trades.History(env.account.ID, 2, 2)
	require.NoError(t, err)
	page3, err := env.trades.History(env.account.ID, 2, 4)
	require.NoError(t, err)

	require.Len(t, page1, 2)
	require.Len(t, page2, 2)
	require.Len(t, page3, 1)

	// Pages walk the series newest to oldest without gaps or overlaps.
	got := []string{page1[0].ID, page1[1].ID, page2[0].ID, page2[1].ID, page3[0].ID}
	want := []string{ids[4], ids[3], ids[2], ids[1], ids[0]}
	assert.Equal(t, want, got)
}

func TestTradeRepository_History_OtherAccountsExcluded(t *testing.T) {
	env := newTestEnv(t)
	env.buy(t, "BTC", "0.01", "45000")

	other, err := env.ledger.CreateAccount("bob", "token-bob", dec(t, "10000"))
	require.NoError(t, err)

	trades, err := env.trades.History(other.ID, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestTradeRepository_GetByID_Unknown(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.trades.GetByID("no-such-trade")
	assert.ErrorIs(t, err, domain.ErrUnknownTrade)
}

func TestTradeRepository_AttachSettlement(t *testing.T) {
	env := newTestEnv(t)
	trade := env.buy(t, "BTC", "0.01", "45000")

	require.NoError(t, env.trades.AttachSettlement(trade.ID, "sig-1"))

	reloaded, err := env.trades.GetByID(trade.ID)
	require.NoError(t, err)
	assert.Equal(t, "sig-1", reloaded.SettlementRef)

	// Same reference again is a no-op.
	require.NoError(t, env.trades.AttachSettlement(trade.ID, "sig-1"))

	// A different reference loses to the first writer.
	err = env.trades.AttachSettlement(trade.ID, "sig-2")
	assert.ErrorIs(t, err, domain.ErrSettlementConflict)

	reloaded, err = env.trades.GetByID(trade.ID)
	require.NoError(t, err)
	assert.Equal(t, "sig-1", reloaded.SettlementRef)
}

func TestTradeRepository_AttachSettlement_UnknownTrade(t *testing.T) {
	env := newTestEnv(t)

	err := env.trades.AttachSettlement("no-such-trade", "sig-1")
	assert.ErrorIs(t, err, domain.ErrUnknownTrade)
}

func TestTradeRepository_Unsettled(t *testing.T) {
	env := newTestEnv(t)

	first := env.buy(t, "BTC", "0.01", "45000")
	second := env.buy(t, "ETH", "0.1", "2500")

	require.NoError(t, env.trades.AttachSettlement(second.ID, "sig-2"))

	unsettled, err := env.trades.Unsettled(100)
	require.NoError(t, err)
	require.Len(t, unsettled, 1)
	assert.Equal(t, first.ID, unsettled[0].ID)
}
