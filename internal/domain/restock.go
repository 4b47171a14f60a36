package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/shelfplan/backend-go/internal/restock"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultGoal        = "profit"
	DefaultMinOrderQty = 1
	marginTolerance    = 0.01
	maxRestockDays     = 90
	defaultMaxProducts = 1000
)

// ProductID is a product identifier that clients may send either as a JSON string or a
// JSON number. It is always kept in its canonical string form.
type ProductID string

func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ProductID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product_id must be a string or a number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = ProductID(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("product_id must be a string or a number: %w", err)
	}
	if f == math.Trunc(f) {
		*id = ProductID(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*id = ProductID(n.String())
	return nil
}

// ProductInput is one product as it arrives on the wire.
type ProductInput struct {
	ProductID     ProductID `json:"product_id" binding:"required,max=128"`
	Name          string    `json:"name" binding:"required,max=256"`
	Price         float64   `json:"price" binding:"gt=0"`
	Cost          float64   `json:"cost" binding:"gt=0"`
	Stock         int       `json:"stock" binding:"gte=0"`
	Category      string    `json:"category,omitempty"`
	AvgDailySales float64   `json:"avg_daily_sales" binding:"gte=0"`
	ProfitMargin  float64   `json:"profit_margin" binding:"gte=0,lte=1"`
	MinOrderQty   int       `json:"min_order_qty,omitempty" binding:"omitempty,gte=1"`
	MaxOrderQty   *int      `json:"max_order_qty,omitempty" binding:"omitempty,gte=1"`
}

// RestockRequest asks for a plan over an explicit product list.
type RestockRequest struct {
	ShopID          string         `json:"shop_id" binding:"required,max=128"`
	Budget          float64        `json:"budget" binding:"gt=0"`
	Goal            string         `json:"goal,omitempty" binding:"omitempty,oneof=profit volume balanced"`
	Products        []ProductInput `json:"products" binding:"required,min=1,dive"`
	RestockDays     int            `json:"restock_days,omitempty" binding:"omitempty,gte=1,lte=90"`
	IsPayday        bool           `json:"is_payday"`
	UpcomingHoliday string         `json:"upcoming_holiday,omitempty" binding:"omitempty,max=64"`
}

// ShopStrategyRequest asks for a plan over a shop's stored catalog.
type ShopStrategyRequest struct {
	Budget          float64 `json:"budget" binding:"gt=0"`
	Goal            string  `json:"goal,omitempty" binding:"omitempty,oneof=profit volume balanced"`
	RestockDays     int     `json:"restock_days,omitempty" binding:"omitempty,gte=1,lte=90"`
	IsPayday        bool    `json:"is_payday"`
	UpcomingHoliday string  `json:"upcoming_holiday,omitempty" binding:"omitempty,max=64"`
}

// WithProducts turns a shop request into a full request over products.
func (r ShopStrategyRequest) WithProducts(shopID string, products []ProductInput) RestockRequest {
	return RestockRequest{
		ShopID:          shopID,
		Budget:          r.Budget,
		Goal:            r.Goal,
		Products:        products,
		RestockDays:     r.RestockDays,
		IsPayday:        r.IsPayday,
		UpcomingHoliday: r.UpcomingHoliday,
	}
}

type BatchRestockRequest struct {
	Requests []RestockRequest `json:"requests" binding:"required,min=1,dive"`
}

type BatchRestockResponse struct {
	Results []*RestockResponse `json:"results"`
}

type CatalogRequest struct {
	Products []ProductInput `json:"products" binding:"required,min=1,dive"`
}

// CatalogSnapshot is the last product list stored for a shop.
type CatalogSnapshot struct {
	ShopID    string         `json:"shop_id"`
	Products  []ProductInput `json:"products"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ResponseMeta describes the run that produced a response.
type ResponseMeta struct {
	ProductsAnalyzed int    `json:"products_analyzed"`
	ProductsSelected int    `json:"products_selected"`
	RestockDays      int    `json:"restock_days"`
	PlanID           string `json:"plan_id,omitempty"`
}

type RestockResponse struct {
	Strategy  string         `json:"strategy"`
	ShopID    string         `json:"shop_id"`
	Budget    float64        `json:"budget"`
	Items     []restock.Item `json:"items"`
	Totals    restock.Totals `json:"totals"`
	Reasoning []string       `json:"reasoning"`
	Warnings  []string       `json:"warnings"`
	Meta      ResponseMeta   `json:"meta"`
}

// PlanSummary is one row of a shop's plan history.
type PlanSummary struct {
	ID             string    `json:"id" db:"id"`
	ShopID         string    `json:"shop_id" db:"shop_id"`
	Objective      string    `json:"objective" db:"objective"`
	Budget         float64   `json:"budget" db:"budget"`
	RestockDays    int       `json:"restock_days" db:"restock_days"`
	TotalItems     int       `json:"total_items" db:"total_items"`
	TotalCost      float64   `json:"total_cost" db:"total_cost"`
	ExpectedProfit float64   `json:"expected_profit" db:"expected_profit"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// StoredPlan is a plan as kept in history.
type StoredPlan struct {
	PlanSummary
	Response RestockResponse `json:"response"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(JSONFieldName)
	return v
}

// JSONFieldName reports fields by their json name so validation errors match the wire.
func JSONFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// Validate checks r against its field rules and the cross-field rules the tags cannot
// express. maxProducts <= 0 falls back to 1000.
func (r *RestockRequest) Validate(maxProducts int) error {
	if maxProducts <= 0 {
		maxProducts = defaultMaxProducts
	}
	if err := validate.Struct(r); err != nil {
		return err
	}
	return checkProducts(r.Products, maxProducts)
}

// Validate applies the product rules to a catalog upload.
func (r *CatalogRequest) Validate(maxProducts int) error {
	if maxProducts <= 0 {
		maxProducts = defaultMaxProducts
	}
	if err := validate.Struct(r); err != nil {
		return err
	}
	return checkProducts(r.Products, maxProducts)
}

func checkProducts(products []ProductInput, maxProducts int) error {
	if len(products) > maxProducts {
		return fmt.Errorf("maximum %d products allowed per request", maxProducts)
	}
	for i, p := range products {
		if p.MaxOrderQty != nil && *p.MaxOrderQty < p.effectiveMinOrder() {
			return fmt.Errorf("products[%d]: max_order_qty %d is below min_order_qty %d", i, *p.MaxOrderQty, p.effectiveMinOrder())
		}
	}
	return nil
}

// Normalize fills defaults and reconciles each product's profit margin with its price
// and cost.
func (r *RestockRequest) Normalize(defaultDays int) {
	if r.Goal == "" {
		r.Goal = DefaultGoal
	}
	if r.RestockDays == 0 {
		if defaultDays <= 0 {
			defaultDays = restock.DefaultRestockDays
		}
		r.RestockDays = defaultDays
	}
	if r.RestockDays > maxRestockDays {
		r.RestockDays = maxRestockDays
	}
	r.UpcomingHoliday = strings.TrimSpace(r.UpcomingHoliday)
	for i := range r.Products {
		r.Products[i].Normalize()
	}
}

// Normalize defaults the minimum order and replaces a profit margin that is more than
// one point off the price/cost margin.
func (p *ProductInput) Normalize() {
	if p.MinOrderQty < DefaultMinOrderQty {
		p.MinOrderQty = DefaultMinOrderQty
	}
	if p.Price <= 0 {
		return
	}
	expected := (p.Price - p.Cost) / p.Price
	if math.Abs(p.ProfitMargin-expected) > marginTolerance {
		p.ProfitMargin = math.Max(0, math.Min(1, expected))
	}
}

func (p ProductInput) effectiveMinOrder() int {
	if p.MinOrderQty < DefaultMinOrderQty {
		return DefaultMinOrderQty
	}
	return p.MinOrderQty
}

func (p ProductInput) ToProduct() restock.Product {
	out := restock.Product{
		ID:            string(p.ProductID),
		Name:          p.Name,
		Price:         p.Price,
		Cost:          p.Cost,
		Stock:         p.Stock,
		AvgDailySales: p.AvgDailySales,
		ProfitMargin:  p.ProfitMargin,
		MinOrderQty:   p.MinOrderQty,
		Category:      p.Category,
	}
	if p.MaxOrderQty != nil {
		out.MaxOrderQty = *p.MaxOrderQty
	}
	return out
}

func (r RestockRequest) ToProducts() []restock.Product {
	products := make([]restock.Product, len(r.Products))
	for i, p := range r.Products {
		products[i] = p.ToProduct()
	}
	return products
}

func (r RestockRequest) ToContext() restock.Context {
	objective, ok := restock.ParseObjective(r.Goal)
	if !ok {
		objective = restock.ObjectiveProfit
	}
	return restock.Context{
		Budget:        r.Budget,
		Objective:     objective,
		RestockDays:   r.RestockDays,
		IsPayday:      r.IsPayday,
		UpcomingEvent: r.UpcomingHoliday,
	}
}

// NewRestockResponse wraps an allocation result for the wire.
func NewRestockResponse(shopID string, res restock.Result) *RestockResponse {
	items := res.Items
	if items == nil {
		items = []restock.Item{}
	}
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &RestockResponse{
		Strategy:  string(res.Objective),
		ShopID:    shopID,
		Budget:    res.Budget,
		Items:     items,
		Totals:    res.Totals,
		Reasoning: res.Reasoning,
		Warnings:  warnings,
		Meta: ResponseMeta{
			ProductsAnalyzed: res.ProductsAnalyzed,
			ProductsSelected: res.ProductsSelected,
			RestockDays:      res.RestockDays,
		},
	}
}

// Summary extracts the history row for a response.
func (r *RestockResponse) Summary(createdAt time.Time) PlanSummary {
	return PlanSummary{
		ID:             r.Meta.PlanID,
		ShopID:         r.ShopID,
		Objective:      r.Strategy,
		Budget:         r.Budget,
		RestockDays:    r.Meta.RestockDays,
		TotalItems:     r.Totals.TotalItems,
		TotalCost:      r.Totals.TotalCost,
		ExpectedProfit: r.Totals.ExpectedProfit,
		CreatedAt:      createdAt,
	}
}

// ValidationDetails flattens validator errors into field -> failed rule. Other errors
// are reported under "request".
func ValidationDetails(err error) map[string]string {
	details := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Namespace()] = fe.Tag()
		}
		return details
	}
	details["request"] = err.Error()
	return details
}
