package restock

import (
	"fmt"
	"sort"
	"strings"
)

const (
	lowUtilizationPct  = 50.0
	overstockDays      = 45.0
	thinCoverDays      = 7.0
	lowStockAlertDays  = 3.0
	DefaultLowStockCap = 10
)

type lowStock struct {
	name string
	days float64
}

// Diagnose explains what the plan leaves on the table: budget utilisation, cover extremes,
// low-stock candidates that were not funded, and how many products the filter removed.
// At most limit low-stock products are listed individually.
func Diagnose(items []Item, candidates []Product, totals Totals, excluded, limit int) []string {
	if limit <= 0 {
		limit = DefaultLowStockCap
	}
	warnings := make([]string, 0, 4)

	if totals.BudgetUsedPct < lowUtilizationPct {
		warnings = append(warnings, fmt.Sprintf("Only %.1f%% of budget utilized. "+
			"Consider lowering restock_days or reviewing product selection.", totals.BudgetUsedPct))
	}
	if totals.AvgDaysOfStock > overstockDays {
		warnings = append(warnings, fmt.Sprintf("Average %.0f days of stock may tie up capital. "+
			"Consider reducing order quantities.", totals.AvgDaysOfStock))
	}
	if totals.AvgDaysOfStock < thinCoverDays {
		warnings = append(warnings, fmt.Sprintf("Average %.0f days of stock is quite low. "+
			"May need frequent restocking.", totals.AvgDaysOfStock))
	}

	warnings = append(warnings, lowStockWarnings(items, candidates, limit)...)

	if excluded > 0 {
		warnings = append(warnings, fmt.Sprintf("%d product(s) were excluded due to cost >= price (would result in losses)", excluded))
	}
	return warnings
}

// lowStockWarnings uses unadjusted demand: it reports what the shelf looks like today.
func lowStockWarnings(items []Item, candidates []Product, limit int) []string {
	selected := make(map[string]struct{}, len(items))
	for _, it := range items {
		selected[it.ProductID] = struct{}{}
	}

	var low []lowStock
	for _, p := range candidates {
		if _, ok := selected[p.ID]; ok {
			continue
		}
		if p.AvgDailySales <= 0 {
			continue
		}
		days := DaysOfStock(float64(p.Stock), p.AvgDailySales)
		if days < lowStockAlertDays {
			low = append(low, lowStock{name: p.Name, days: days})
		}
	}
	if len(low) == 0 {
		return nil
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].days < low[j].days })

	var out []string
	shown := low
	if len(shown) > limit {
		shown = shown[:limit]
	}
	for _, l := range shown {
		out = append(out, fmt.Sprintf("%s has only %.1f days of stock remaining but wasn't selected (budget constraints).", l.name, l.days))
	}
	if rest := len(low) - limit; rest > 0 {
		out = append(out, fmt.Sprintf("... and %d more product(s) with low stock (< 3 days) "+
			"that couldn't be included due to budget constraints.", rest))
	}

	var critical, warning, info int
	for _, l := range low {
		switch {
		case l.days < 1:
			critical++
		case l.days < 2:
			warning++
		default:
			info++
		}
	}
	var parts []string
	if critical > 0 {
		parts = append(parts, fmt.Sprintf("%d critical (< 1 day)", critical))
	}
	if warning > 0 {
		parts = append(parts, fmt.Sprintf("%d warning (1-2 days)", warning))
	}
	if info > 0 {
		parts = append(parts, fmt.Sprintf("%d info (2-3 days)", info))
	}
	out = append(out, fmt.Sprintf("Summary: %s products need attention but couldn't be included.", strings.Join(parts, ", ")))
	return out
}
