package oracle

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulated_Price_WithinJitterBand(t *testing.T) {
	sim := NewSimulated(42)
	base := decimal.RequireFromString("45000")
	lo := base.Mul(decimal.RequireFromString("0.98"))
	hi := base.Mul(decimal.RequireFromString("1.02"))

	for i := 0; i < 200; i++ {
		price, err := sim.Price("BTC")
		require.NoError(t, err)
		assert.True(t, price.GreaterThanOrEqual(lo) && price.LessThanOrEqual(hi),
			"price %s outside ±2%% of %s", price, base)
	}
}

func TestSimulated_Price_StablecoinsPinned(t *testing.T) {
	sim := NewSimulated(42)
	one := decimal.RequireFromString("1.00")

	for _, symbol := range []string{"USDC", "USDT"} {
		for i := 0; i < 10; i++ {
			price, err := sim.Price(symbol)
			require.NoError(t, err)
			assert.True(t, price.Equal(one), "%s = %s", symbol, price)
		}
	}
}

func TestSimulated_Price_UnknownSymbol(t *testing.T) {
	sim := NewSimulated(42)

	_, err := sim.Price("DOGE")
	assert.ErrorIs(t, err, ErrNoQuote)
}

func TestSimulated_SetBase(t *testing.T) {
	sim := NewSimulated(42)
	sim.SetBase("DOGE", decimal.RequireFromString("0.10"))

	price, err := sim.Price("DOGE")
	require.NoError(t, err)
	assert.True(t, price.GreaterThan(decimal.Zero))
}

func TestSimulated_Prices_CoversCatalog(t *testing.T) {
	sim := NewSimulated(42)
	prices := sim.Prices()

	for _, symbol := range []string{"BTC", "ETH", "SOL", "USDC", "USDT", "BTC-PERP", "ETH-PERP", "SOL-PERP"} {
		assert.Contains(t, prices, symbol)
	}
}

func TestStatic_Price(t *testing.T) {
	static := Static{"BTC": decimal.RequireFromString("45000")}

	price, err := static.Price("BTC")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("45000")))

	_, err = static.Price("ETH")
	assert.ErrorIs(t, err, ErrNoQuote)
}
