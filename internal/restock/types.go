package restock

// Objective selects the scoring function used to rank candidates.
type Objective string

const (
	ObjectiveProfit   Objective = "profit"
	ObjectiveVolume   Objective = "volume"
	ObjectiveBalanced Objective = "balanced"
)

// ParseObjective returns the objective for a label (case-sensitive, as sent on the wire).
func ParseObjective(label string) (Objective, bool) {
	switch Objective(label) {
	case ObjectiveProfit, ObjectiveVolume, ObjectiveBalanced:
		return Objective(label), true
	}
	return "", false
}

// Product is one catalog item offered to the allocator.
type Product struct {
	ID            string
	Name          string
	Price         float64
	Cost          float64
	Stock         int
	AvgDailySales float64 // baseline daily demand, supplied by the forecasting side
	ProfitMargin  float64 // 0..1
	MinOrderQty   int     // values below 1 are treated as 1
	MaxOrderQty   int     // 0 means no cap
	Category      string
}

func (p Product) minOrder() int {
	if p.MinOrderQty < 1 {
		return 1
	}
	return p.MinOrderQty
}

// capQty applies MaxOrderQty when set.
func (p Product) capQty(qty int) int {
	if p.MaxOrderQty > 0 && qty > p.MaxOrderQty {
		return p.MaxOrderQty
	}
	return qty
}

// Context carries the request-scoped allocation parameters.
type Context struct {
	Budget        float64
	Objective     Objective
	RestockDays   int
	IsPayday      bool
	UpcomingEvent string
}

// Scored is the per-product derivation used by the allocator. It is built once per run
// and never mutated afterwards.
type Scored struct {
	Product        Product
	AdjustedDemand float64
	DaysOfStock    float64
	Urgency        float64
	UnitProfit     float64
	Score          float64
	NeededQty      int

	Critical      bool
	EmergencyDays int
	EmergencyQty  int
	EmergencyCost float64
	Efficiency    float64
}

// Item is a committed purchase line.
type Item struct {
	ProductID       string  `json:"product_id"`
	Name            string  `json:"name"`
	Qty             int     `json:"qty"`
	UnitCost        float64 `json:"unit_cost"`
	TotalCost       float64 `json:"total_cost"`
	ExpectedProfit  float64 `json:"expected_profit"`
	ExpectedRevenue float64 `json:"expected_revenue"`
	DaysOfStock     float64 `json:"days_of_stock"`
	PriorityScore   float64 `json:"priority_score"`
	Reasoning       string  `json:"reasoning"`
}

// Totals aggregates a plan.
type Totals struct {
	TotalItems      int     `json:"total_items"`
	TotalQty        int     `json:"total_qty"`
	TotalCost       float64 `json:"total_cost"`
	BudgetUsedPct   float64 `json:"budget_used_pct"`
	ExpectedRevenue float64 `json:"expected_revenue"`
	ExpectedProfit  float64 `json:"expected_profit"`
	ExpectedROI     float64 `json:"expected_roi"`
	AvgDaysOfStock  float64 `json:"avg_days_of_stock"`
}

// Result is the outcome of one allocation run.
type Result struct {
	Objective        Objective
	Budget           float64
	Items            []Item
	Totals           Totals
	Reasoning        []string
	Warnings         []string
	ProductsAnalyzed int
	ProductsSelected int
	ProductsExcluded int
	RestockDays      int
}
