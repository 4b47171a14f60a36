package restock

import "sort"

// ScoreCandidates derives a Scored record for every product that still needs stock over
// the restock horizon. Balanced normalisation uses the maxima over all given products,
// including the ones that end up not needing an order.
func ScoreCandidates(products []Product, ctx Context) []Scored {
	score := strategyFor(ctx.Objective).score

	metrics := make([]Metrics, len(products))
	for i, p := range products {
		metrics[i] = MeasureProduct(p, ctx)
	}
	scale := ScaleOf(metrics)

	scored := make([]Scored, 0, len(products))
	for i, p := range products {
		m := metrics[i]
		needed := NeededQty(p, m.AdjustedDemand, ctx.RestockDays)
		if needed <= 0 {
			continue
		}
		scored = append(scored, newScored(p, m, score(m, scale), needed))
	}
	return scored
}

func newScored(p Product, m Metrics, score float64, needed int) Scored {
	s := Scored{
		Product:        p,
		AdjustedDemand: m.AdjustedDemand,
		DaysOfStock:    m.DaysOfStock,
		Urgency:        m.Urgency,
		UnitProfit:     m.UnitProfit,
		Score:          score,
		NeededQty:      needed,
	}
	if !IsCritical(m.DaysOfStock) {
		return s
	}

	s.Critical = true
	s.EmergencyDays = EmergencyDays(m.AdjustedDemand)
	s.EmergencyQty = EmergencyQty(p, m.AdjustedDemand)
	s.EmergencyCost = p.Cost * float64(s.EmergencyQty)
	if s.EmergencyCost > 0 {
		s.Efficiency = score / s.EmergencyCost
	}
	return s
}

// OrderCandidates puts critical candidates first, most score per emergency spend first,
// followed by the remaining candidates by descending score. Ties keep input order.
func OrderCandidates(candidates []Scored) []Scored {
	critical := make([]Scored, 0, len(candidates))
	rest := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if c.Critical {
			critical = append(critical, c)
		} else {
			rest = append(rest, c)
		}
	}

	sort.SliceStable(critical, func(i, j int) bool {
		return critical[i].Efficiency > critical[j].Efficiency
	})
	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].Score > rest[j].Score
	})

	return append(critical, rest...)
}
