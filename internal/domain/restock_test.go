package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/shelfplan/backend-go/internal/restock"
)

func intPtr(v int) *int { return &v }

func validRequest() RestockRequest {
	return RestockRequest{
		ShopID: "SHOP-001",
		Budget: 5000,
		Goal:   "profit",
		Products: []ProductInput{{
			ProductID:     "1",
			Name:          "UFC Banana Catsup",
			Price:         18,
			Cost:          12,
			Stock:         5,
			AvgDailySales: 12,
			ProfitMargin:  0.33,
		}},
		RestockDays: 14,
	}
}

func TestProductID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		raw   string
		wants ProductID
	}{
		{`"SKU-9"`, "SKU-9"},
		{`"  padded "`, "padded"},
		{`42`, "42"},
		{`42.0`, "42"},
		{`1e3`, "1000"},
		{`4.5`, "4.5"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var id ProductID
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &id), tt.raw)
		assert.Equal(t, tt.wants, id, tt.raw)
	}

	var id ProductID
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &id))
}

func TestRestockRequest_DecodesMixedProductIDs(t *testing.T) {
	body := `{"shop_id":"S","budget":100,"products":[
		{"product_id":7,"name":"a","price":2,"cost":1,"stock":0,"avg_daily_sales":1,"profit_margin":0.5},
		{"product_id":"b-8","name":"b","price":2,"cost":1,"stock":0,"avg_daily_sales":1,"profit_margin":0.5}]}`

	var req RestockRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, ProductID("7"), req.Products[0].ProductID)
	assert.Equal(t, ProductID("b-8"), req.Products[1].ProductID)
}

func TestRestockRequest_Validate(t *testing.T) {
	req := validRequest()
	require.NoError(t, req.Validate(1000))

	tests := []struct {
		name   string
		mutate func(r *RestockRequest)
		field  string
	}{
		{"zero budget", func(r *RestockRequest) { r.Budget = 0 }, "RestockRequest.budget"},
		{"no products", func(r *RestockRequest) { r.Products = nil }, "RestockRequest.products"},
		{"missing shop", func(r *RestockRequest) { r.ShopID = "" }, "RestockRequest.shop_id"},
		{"unknown goal", func(r *RestockRequest) { r.Goal = "revenue" }, "RestockRequest.goal"},
		{"horizon too long", func(r *RestockRequest) { r.RestockDays = 91 }, "RestockRequest.restock_days"},
		{"zero price", func(r *RestockRequest) { r.Products[0].Price = 0 }, "RestockRequest.products[0].price"},
		{"negative stock", func(r *RestockRequest) { r.Products[0].Stock = -1 }, "RestockRequest.products[0].stock"},
		{"margin above one", func(r *RestockRequest) { r.Products[0].ProfitMargin = 1.2 }, "RestockRequest.products[0].profit_margin"},
		{"zero max order", func(r *RestockRequest) { r.Products[0].MaxOrderQty = intPtr(0) }, "RestockRequest.products[0].max_order_qty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRequest()
			tt.mutate(&r)
			err := r.Validate(1000)
			require.Error(t, err)
			assert.Contains(t, ValidationDetails(err), tt.field)
		})
	}
}

func TestRestockRequest_ValidateCrossFieldRules(t *testing.T) {
	r := validRequest()
	r.Products[0].MinOrderQty = 10
	r.Products[0].MaxOrderQty = intPtr(5)
	err := r.Validate(1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_order_qty 5 is below min_order_qty 10")

	r = validRequest()
	r.Products = append(r.Products, r.Products[0], r.Products[0])
	err = r.Validate(2)
	require.Error(t, err)
	assert.Equal(t, "maximum 2 products allowed per request", err.Error())
	assert.Equal(t, map[string]string{"request": err.Error()}, ValidationDetails(err))
}

func TestRestockRequest_Normalize(t *testing.T) {
	r := validRequest()
	r.Goal = ""
	r.RestockDays = 0
	r.UpcomingHoliday = "  christmas "
	r.Products[0].ProfitMargin = 0.9
	r.Normalize(21)

	assert.Equal(t, "profit", r.Goal)
	assert.Equal(t, 21, r.RestockDays)
	assert.Equal(t, "christmas", r.UpcomingHoliday)
	assert.Equal(t, 1, r.Products[0].MinOrderQty)
	assert.InDelta(t, 1.0/3.0, r.Products[0].ProfitMargin, 1e-9)
}

func TestProductInput_NormalizeKeepsCloseMargin(t *testing.T) {
	p := ProductInput{Price: 18, Cost: 12, ProfitMargin: 0.33, MinOrderQty: 6}
	p.Normalize()

	assert.Equal(t, 0.33, p.ProfitMargin)
	assert.Equal(t, 6, p.MinOrderQty)
}

func TestProductInput_NormalizeClampsLossMargin(t *testing.T) {
	p := ProductInput{Price: 10, Cost: 12, ProfitMargin: 0.5}
	p.Normalize()

	assert.Equal(t, 0.0, p.ProfitMargin)
}

func TestRestockRequest_ToProductsAndContext(t *testing.T) {
	r := validRequest()
	r.Goal = "balanced"
	r.IsPayday = true
	r.UpcomingHoliday = "11.11"
	r.Products[0].MaxOrderQty = intPtr(50)
	r.Products[0].Category = "Condiments"

	products := r.ToProducts()
	require.Len(t, products, 1)
	assert.Equal(t, restock.Product{
		ID:            "1",
		Name:          "UFC Banana Catsup",
		Price:         18,
		Cost:          12,
		Stock:         5,
		AvgDailySales: 12,
		ProfitMargin:  0.33,
		MaxOrderQty:   50,
		Category:      "Condiments",
	}, products[0])

	assert.Equal(t, restock.Context{
		Budget:        5000,
		Objective:     restock.ObjectiveBalanced,
		RestockDays:   14,
		IsPayday:      true,
		UpcomingEvent: "11.11",
	}, r.ToContext())
}

func TestNewRestockResponse(t *testing.T) {
	res := restock.Result{
		Objective:        restock.ObjectiveVolume,
		Budget:           100,
		Reasoning:        []string{"r"},
		ProductsAnalyzed: 3,
		RestockDays:      7,
	}
	resp := NewRestockResponse("S1", res)

	assert.Equal(t, "volume", resp.Strategy)
	assert.Equal(t, "S1", resp.ShopID)
	assert.NotNil(t, resp.Items)
	assert.NotNil(t, resp.Warnings)
	assert.Equal(t, ResponseMeta{ProductsAnalyzed: 3, RestockDays: 7}, resp.Meta)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"items":[]`)
	assert.NotContains(t, string(raw), "plan_id")
}

func TestCatalogRequest_Validate(t *testing.T) {
	ok := CatalogRequest{Products: validRequest().Products}
	assert.NoError(t, ok.Validate(0))

	empty := CatalogRequest{}
	assert.Error(t, empty.Validate(0))
}
