package restock

import "fmt"

// Metrics are the objective-independent inputs every scoring function draws from.
type Metrics struct {
	AdjustedDemand  float64
	DaysOfStock     float64
	Urgency         float64
	StockoutPenalty float64
	UnitProfit      float64
	ProfitScore     float64
	VolumeScore     float64
}

// Scale holds run-wide maxima used to normalise balanced scores.
type Scale struct {
	MaxProfit float64
	MaxVolume float64
}

// ScoreFunc turns metrics into a priority score for one objective.
type ScoreFunc func(m Metrics, scale Scale) float64

const balancedWeight = 0.5

// MeasureProduct derives the metrics of p under ctx.
func MeasureProduct(p Product, ctx Context) Metrics {
	demand := AdjustDemand(p.AvgDailySales, ctx)
	days := DaysOfStock(float64(p.Stock), demand)
	urgency := UrgencyMultiplier(days, ctx.RestockDays)

	unitProfit := p.Price - p.Cost
	if unitProfit < 0 {
		unitProfit = 0
	}

	var perCost float64
	if p.Cost > 0 {
		perCost = demand / p.Cost
	}

	return Metrics{
		AdjustedDemand:  demand,
		DaysOfStock:     days,
		Urgency:         urgency,
		StockoutPenalty: StockoutPenalty(days, ctx.RestockDays),
		UnitProfit:      unitProfit,
		ProfitScore:     unitProfit * demand * urgency,
		VolumeScore:     perCost * urgency,
	}
}

// ScaleOf returns the maximum profit and volume scores across metrics.
func ScaleOf(metrics []Metrics) Scale {
	var s Scale
	for _, m := range metrics {
		if m.ProfitScore > s.MaxProfit {
			s.MaxProfit = m.ProfitScore
		}
		if m.VolumeScore > s.MaxVolume {
			s.MaxVolume = m.VolumeScore
		}
	}
	return s
}

func ProfitScore(m Metrics, _ Scale) float64 { return m.ProfitScore }

func VolumeScore(m Metrics, _ Scale) float64 { return m.VolumeScore }

// BalancedScore mixes normalised profit and volume scores and adds the stockout penalty,
// so a near-empty shelf can outrank a better but safely stocked product.
func BalancedScore(m Metrics, s Scale) float64 {
	var normProfit, normVolume float64
	if s.MaxProfit > 0 {
		normProfit = m.ProfitScore / s.MaxProfit
	}
	if s.MaxVolume > 0 {
		normVolume = m.VolumeScore / s.MaxVolume
	}
	return balancedWeight*normProfit + balancedWeight*normVolume + balancedWeight*m.StockoutPenalty
}

// strategy bundles everything that differs between objectives. The allocation core is
// shared.
type strategy struct {
	score     ScoreFunc
	title     string
	target    string
	rationale func(s Scored, currency string) string
	summary   func(selected, critical int) string
	closing   string
}

var strategies = map[Objective]strategy{
	ObjectiveProfit: {
		score:  ProfitScore,
		title:  "Profit Maximization - Prioritize high-margin, fast-moving items",
		target: "days of stock",
		rationale: func(s Scored, _ string) string {
			return fmt.Sprintf("High profit margin (%s), %.1f units/day, urgency: %.1fx",
				formatPercent(s.Product.ProfitMargin), s.Product.AvgDailySales, s.Urgency)
		},
		summary: func(selected, critical int) string {
			if critical > 0 {
				return fmt.Sprintf("Selected %d products (%d critical stockout items prioritized)", selected, critical)
			}
			return fmt.Sprintf("Selected %d products with highest profit potential", selected)
		},
		closing: "Prioritized items with profit margin > 20% and strong sales velocity",
	},
	ObjectiveVolume: {
		score:  VolumeScore,
		title:  "Volume Maximization - Maximize inventory turnover",
		target: "days of fast-moving stock",
		rationale: func(s Scored, currency string) string {
			return fmt.Sprintf("High turnover (%.1f units/day), low cost (%s%.2f), efficiency: %.2f units/%s",
				s.Product.AvgDailySales, currency, s.Product.Cost, s.Score, currency)
		},
		summary: func(selected, critical int) string {
			if critical > 0 {
				return fmt.Sprintf("Selected %d fast-moving products (%d critical stockout items prioritized)", selected, critical)
			}
			return fmt.Sprintf("Selected %d fast-moving, cost-efficient products", selected)
		},
		closing: "Optimized for stockout prevention and inventory turnover",
	},
	ObjectiveBalanced: {
		score:  BalancedScore,
		title:  "Balanced Growth - 50% profit + 50% volume optimization with stockout prevention",
		target: "days of balanced inventory",
		rationale: func(s Scored, _ string) string {
			return fmt.Sprintf("Balanced score: %.2f, margin: %s, velocity: %.1f/day",
				s.Score, formatPercent(s.Product.ProfitMargin), s.Product.AvgDailySales)
		},
		summary: func(selected, critical int) string {
			if critical > 0 {
				return fmt.Sprintf("Selected %d products (%d critical stockout items prioritized)", selected, critical)
			}
			return fmt.Sprintf("Selected %d products balancing profit and turnover", selected)
		},
		closing: "Optimized for stockout prevention and sustainable growth",
	},
}

func strategyFor(o Objective) strategy {
	if s, ok := strategies[o]; ok {
		return s
	}
	return strategies[ObjectiveProfit]
}
