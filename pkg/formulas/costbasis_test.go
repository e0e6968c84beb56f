package formulas

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestWeightedAverageCost(t *testing.T) {
	tests := []struct {
		name     string
		oldQty   string
		oldAvg   string
		addQty   string
		addPrice string
		want     string
	}{
		{"equal lots", "0.1", "45000", "0.1", "50000", "47500"},
		{"fresh position", "0", "0", "1", "2500", "2500"},
		{"heavier old lot", "3", "100", "1", "200", "125"},
		{"tiny add", "1", "100", "0.0001", "200", "100.00999900009999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeightedAverageCost(d(tt.oldQty), d(tt.oldAvg), d(tt.addQty), d(tt.addPrice))
			assert.True(t, got.Equal(d(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestWeightedAverageCost_ZeroTotal(t *testing.T) {
	got := WeightedAverageCost(d("0"), d("0"), d("0"), d("100"))
	assert.True(t, got.IsZero())
}

func TestPnLPercent(t *testing.T) {
	assert.True(t, PnLPercent(d("500"), d("4000")).Equal(d("12.5")))
	assert.True(t, PnLPercent(d("-100"), d("1000")).Equal(d("-10")))
	assert.True(t, PnLPercent(d("123"), d("0")).IsZero(), "zero cost never divides")
}
