package restock

import "fmt"

const urgentDaysOfStock = 3.0

// Allocate walks ordered candidates and commits spend against budget until the list ends
// or the remaining budget drops below minResidual. Critical candidates are never bought
// beyond their emergency quantity. It returns the committed items and how many of them
// were critical.
func Allocate(ordered []Scored, budget, minResidual float64, describe func(Scored) string) ([]Item, int) {
	items := make([]Item, 0, len(ordered))
	remaining := budget
	critical := 0

	for _, s := range ordered {
		qty, ok := commitQty(s, remaining)
		if !ok {
			continue
		}

		p := s.Product
		totalCost := p.Cost * float64(qty)
		profit := float64(qty) * s.UnitProfit
		if profit < 0 {
			profit = 0
		}

		var reason string
		if describe != nil {
			reason = describe(s)
		}

		items = append(items, Item{
			ProductID:       p.ID,
			Name:            p.Name,
			Qty:             qty,
			UnitCost:        p.Cost,
			TotalCost:       totalCost,
			ExpectedProfit:  profit,
			ExpectedRevenue: float64(qty) * p.Price,
			DaysOfStock:     DaysOfStock(float64(qty), p.AvgDailySales),
			PriorityScore:   s.Score,
			Reasoning:       reason + urgencyNote(s, qty),
		})
		if s.Critical {
			critical++
		}

		remaining -= totalCost
		if remaining < minResidual {
			break
		}
	}

	return items, critical
}

// commitQty decides how many units of s to buy with remaining budget. Unaffordable
// orders shrink to what the budget covers; below the minimum order they are skipped.
func commitQty(s Scored, remaining float64) (int, bool) {
	p := s.Product
	qty := s.NeededQty
	if s.Critical {
		qty = s.EmergencyQty
	}

	if p.Cost*float64(qty) > remaining {
		affordable := AffordableQty(remaining, p.Cost)
		if affordable < p.minOrder() {
			return 0, false
		}
		if affordable < qty {
			qty = affordable
		}
	}

	if qty <= 0 || p.Cost*float64(qty) > remaining {
		return 0, false
	}
	return qty, true
}

func urgencyNote(s Scored, qty int) string {
	switch {
	case s.Critical && qty == s.EmergencyQty:
		return fmt.Sprintf(", CRITICAL: %.1f days stock (emergency %d-day restock)", s.DaysOfStock, s.EmergencyDays)
	case s.Critical:
		return fmt.Sprintf(", CRITICAL: %.1f days stock (partial emergency restock)", s.DaysOfStock)
	case s.DaysOfStock < urgentDaysOfStock:
		return fmt.Sprintf(", urgent: %.1f days stock", s.DaysOfStock)
	}
	return ""
}
