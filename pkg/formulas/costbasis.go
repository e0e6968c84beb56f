package formulas

import "github.com/shopspring/decimal"

// WeightedAverageCost computes the new average entry price after buying
// addQty units at addPrice on top of an existing position of oldQty
// units at oldAvg.
//
// newAvg = (oldQty*oldAvg + addQty*addPrice) / (oldQty + addQty)
func WeightedAverageCost(oldQty, oldAvg, addQty, addPrice decimal.Decimal) decimal.Decimal {
	newQty := oldQty.Add(addQty)
	if newQty.IsZero() {
		return decimal.Zero
	}
	return oldQty.Mul(oldAvg).Add(addQty.Mul(addPrice)).Div(newQty)
}

// PnLPercent returns profit/loss as a percentage of cost. Zero cost
// yields zero rather than a division error.
func PnLPercent(pnl, cost decimal.Decimal) decimal.Decimal {
	if cost.IsZero() {
		return decimal.Zero
	}
	return pnl.Div(cost).Mul(decimal.NewFromInt(100))
}
