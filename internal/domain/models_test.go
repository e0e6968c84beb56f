package domain

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSideFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{"BUY", SideBuy, false},
		{"buy", SideBuy, false},
		{" Sell ", SideSell, false},
		{"", "", true},
		{"HOLD", "", true},
	}

	for _, tt := range tests {
		got, err := SideFromString(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestTrade_Validate(t *testing.T) {
	valid := Trade{
		ID:          "t1",
		AccountID:   "a1",
		AssetID:     1,
		Side:        SideBuy,
		Quantity:    decimal.RequireFromString("0.1"),
		Price:       decimal.RequireFromString("45000"),
		TotalAmount: decimal.RequireFromString("4500"),
	}
	assert.NoError(t, valid.Validate())

	zeroQty := valid
	zeroQty.Quantity = decimal.Zero
	assert.ErrorIs(t, zeroQty.Validate(), ErrInvalidQuantity)

	negPrice := valid
	negPrice.Price = decimal.RequireFromString("-1")
	assert.ErrorIs(t, negPrice.Validate(), ErrInvalidPrice)

	badSide := valid
	badSide.Side = "HOLD"
	assert.Error(t, badSide.Validate())
}

func TestAccountIDContext(t *testing.T) {
	ctx := context.Background()

	_, ok := AccountIDFromContext(ctx)
	assert.False(t, ok)

	ctx = WithAccountID(ctx, "acct-1")
	id, ok := AccountIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "acct-1", id)
}
