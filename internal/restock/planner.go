// Package restock decides how to split a procurement budget across a product catalog.
//
// A run filters out loss-making products, adjusts demand for payday and sale events,
// scores each product for the requested objective and greedily commits spend: products
// that will run out within a day go first at a small emergency quantity, everything else
// follows by score at a full restock-cycle quantity. The package is pure and
// deterministic; callers may run plans concurrently.
package restock

import "fmt"

const DefaultRestockDays = 14

const (
	noValidProductsReason  = "No valid products found. All products have cost >= price, which would result in losses."
	noValidProductsWarning = "No products can be recommended. Please check product pricing."
)

// Options are the tunables that are not part of a request.
type Options struct {
	CurrencySymbol string
	// MinResidualBudget stops the allocation once less than this much budget is left.
	// The default of 1 assumes a currency whose minor unit is about 1.
	MinResidualBudget   float64
	MaxLowStockWarnings int
}

func DefaultOptions() Options {
	return Options{
		CurrencySymbol:      "₱",
		MinResidualBudget:   1.0,
		MaxLowStockWarnings: DefaultLowStockCap,
	}
}

// Planner runs allocations. It holds no per-run state.
type Planner struct {
	opts Options
}

func NewPlanner(opts Options) *Planner {
	def := DefaultOptions()
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = def.CurrencySymbol
	}
	if opts.MinResidualBudget <= 0 {
		opts.MinResidualBudget = def.MinResidualBudget
	}
	if opts.MaxLowStockWarnings <= 0 {
		opts.MaxLowStockWarnings = def.MaxLowStockWarnings
	}
	return &Planner{opts: opts}
}

// Plan produces a budget plan for products under ctx.
func (pl *Planner) Plan(products []Product, ctx Context) Result {
	if ctx.RestockDays <= 0 {
		ctx.RestockDays = DefaultRestockDays
	}
	if _, ok := ParseObjective(string(ctx.Objective)); !ok {
		ctx.Objective = ObjectiveProfit
	}

	result := Result{
		Objective:        ctx.Objective,
		Budget:           ctx.Budget,
		ProductsAnalyzed: len(products),
		RestockDays:      ctx.RestockDays,
	}

	valid, excluded := FilterCandidates(products)
	result.ProductsExcluded = excluded
	if len(valid) == 0 {
		result.Items = []Item{}
		result.Reasoning = []string{noValidProductsReason}
		result.Warnings = []string{noValidProductsWarning}
		return result
	}

	strat := strategyFor(ctx.Objective)
	ordered := OrderCandidates(ScoreCandidates(valid, ctx))
	describe := func(s Scored) string { return strat.rationale(s, pl.opts.CurrencySymbol) }

	items, critical := Allocate(ordered, ctx.Budget, pl.opts.MinResidualBudget, describe)
	totals := ComputeTotals(items, ctx.Budget)

	result.Items = items
	result.Totals = totals
	result.ProductsSelected = len(items)
	result.Reasoning = pl.reasoning(strat, ctx, len(items), critical)
	result.Warnings = Diagnose(items, valid, totals, excluded, pl.opts.MaxLowStockWarnings)
	return result
}

func (pl *Planner) reasoning(strat strategy, ctx Context, selected, critical int) []string {
	lines := []string{
		"Strategy: " + strat.title,
		"Budget: " + formatMoney(pl.opts.CurrencySymbol, ctx.Budget),
		fmt.Sprintf("Target: %d %s", ctx.RestockDays, strat.target),
	}
	if ctx.IsPayday {
		lines = append(lines, "Context: Payday period detected - demand increased by 20%")
	}
	if IsRecognizedEvent(ctx.UpcomingEvent) {
		lines = append(lines, fmt.Sprintf("Context: Upcoming holiday (%s) - demand increased by 50%%", ctx.UpcomingEvent))
	}
	return append(lines, strat.summary(selected, critical), strat.closing)
}
