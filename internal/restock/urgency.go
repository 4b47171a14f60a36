package restock

// NoDemandDaysOfStock stands in for "never runs out" when demand is zero.
const NoDemandDaysOfStock = 999.0

// CriticalDaysOfStock is the cover below which a product is bought at emergency quantity.
const CriticalDaysOfStock = 1.0

// step maps a days-of-stock upper bound to a value. Tables are ordered by bound.
type step struct {
	below float64
	value float64
}

// Urgency and stockout penalty tables. The breakpoints were tuned by hand and are kept
// as-is for compatibility with existing plans.
var (
	urgencySteps = []step{
		{0.5, 10.0},
		{1.0, 8.0},
		{2.0, 5.0},
		{3.0, 3.0},
		{7.0, 2.0},
	}
	stockoutPenaltySteps = []step{
		{0.5, 1.0},
		{1.0, 0.9},
		{2.0, 0.7},
		{3.0, 0.5},
		{7.0, 0.2},
	}
)

const (
	belowTargetUrgency = 1.5
	normalUrgency      = 1.0

	belowTargetPenalty = 0.1
	normalPenalty      = 0.0
)

// DaysOfStock returns stock/demand, or NoDemandDaysOfStock when demand is not positive.
func DaysOfStock(stock float64, demand float64) float64 {
	if demand <= 0 {
		return NoDemandDaysOfStock
	}
	return stock / demand
}

// UrgencyMultiplier is the strategy-independent boost for products nearing stockout.
func UrgencyMultiplier(daysOfStock float64, restockDays int) float64 {
	return lookupStep(urgencySteps, daysOfStock, restockDays, belowTargetUrgency, normalUrgency)
}

// StockoutPenalty is the additive boost used by the balanced objective.
func StockoutPenalty(daysOfStock float64, restockDays int) float64 {
	return lookupStep(stockoutPenaltySteps, daysOfStock, restockDays, belowTargetPenalty, normalPenalty)
}

// IsCritical reports whether a product will run out in under a day.
func IsCritical(daysOfStock float64) bool {
	return daysOfStock < CriticalDaysOfStock
}

func lookupStep(steps []step, days float64, restockDays int, belowTarget, normal float64) float64 {
	for _, s := range steps {
		if days < s.below {
			return s.value
		}
	}
	if days < float64(restockDays) {
		return belowTarget
	}
	return normal
}
