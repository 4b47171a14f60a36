package restock

// ComputeTotals sums a plan and derives utilisation, ROI and average cover.
func ComputeTotals(items []Item, budget float64) Totals {
	t := Totals{TotalItems: len(items)}
	var daysSum float64
	for _, it := range items {
		t.TotalQty += it.Qty
		t.TotalCost += it.TotalCost
		t.ExpectedRevenue += it.ExpectedRevenue
		t.ExpectedProfit += it.ExpectedProfit
		daysSum += it.DaysOfStock
	}
	if t.ExpectedProfit < 0 {
		t.ExpectedProfit = 0
	}

	if budget > 0 {
		t.BudgetUsedPct = t.TotalCost / budget * 100
	}
	if t.TotalCost > 0 {
		t.ExpectedROI = t.ExpectedProfit / t.TotalCost * 100
	}
	if t.TotalItems > 0 {
		t.AvgDaysOfStock = daysSum / float64(t.TotalItems)
	}
	return t
}
