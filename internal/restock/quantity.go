package restock

import "math"

// NeededQty is the full restock-cycle quantity: enough to cover restockDays of adjusted
// demand, raised to the minimum order and capped at the maximum order. Zero means the
// product is already stocked for the horizon.
func NeededQty(p Product, adjustedDemand float64, restockDays int) int {
	qty := floorQty(adjustedDemand*float64(restockDays) - float64(p.Stock))
	if qty <= 0 {
		return 0
	}
	if qty < p.minOrder() {
		qty = p.minOrder()
	}
	return p.capQty(qty)
}

// EmergencyDays picks the emergency cover horizon. Fast movers get a shorter horizon so a
// single item cannot drain the budget meant for several stockouts.
func EmergencyDays(adjustedDemand float64) int {
	switch {
	case adjustedDemand > 40:
		return 2
	case adjustedDemand > 20:
		return 3
	default:
		return 5
	}
}

// EmergencyQty is the small order placed for a critical product. It never drops to zero:
// when stock already covers the horizon the minimum order is used instead.
func EmergencyQty(p Product, adjustedDemand float64) int {
	qty := floorQty(adjustedDemand*float64(EmergencyDays(adjustedDemand)) - float64(p.Stock))
	if qty > 0 {
		if qty < p.minOrder() {
			qty = p.minOrder()
		}
	} else {
		qty = p.minOrder()
	}
	return p.capQty(qty)
}

// AffordableQty is how many whole units of cost fit into budget.
func AffordableQty(budget, cost float64) int {
	if cost <= 0 || budget <= 0 {
		return 0
	}
	return floorQty(budget / cost)
}

// floorQty truncates v to whole units, saturating at math.MaxInt.
func floorQty(v float64) int {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= math.MaxInt {
		return math.MaxInt
	}
	return int(math.Floor(v))
}
