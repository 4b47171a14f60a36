package catalog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/shelfplan/backend-go/internal/domain"
)

const sampleCSV = `Product_ID,Name,Price,Cost,Stock,Avg_Daily_Sales,Profit_Margin,Min_Order_Qty,Max_Order_Qty,Category
1,Catsup,18,12,5,10,0.33,6,,Condiments
SKU-2,"Soap, bar",45,30,40,12.5,,,"1,000",Personal care

3,Rice 5kg,300,250,0,4,20%,,50,
`

func TestParseCSV(t *testing.T) {
	products, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, products, 3)

	first := products[0]
	assert.Equal(t, domain.ProductID("1"), first.ProductID)
	assert.Equal(t, "Catsup", first.Name)
	assert.Equal(t, 18.0, first.Price)
	assert.Equal(t, 12.0, first.Cost)
	assert.Equal(t, 5, first.Stock)
	assert.Equal(t, 10.0, first.AvgDailySales)
	assert.Equal(t, 0.33, first.ProfitMargin)
	assert.Equal(t, 6, first.MinOrderQty)
	assert.Nil(t, first.MaxOrderQty)
	assert.Equal(t, "Condiments", first.Category)

	second := products[1]
	assert.Equal(t, "Soap, bar", second.Name)
	assert.Equal(t, 0.0, second.ProfitMargin)
	assert.Equal(t, 0, second.MinOrderQty)
	require.NotNil(t, second.MaxOrderQty)
	assert.Equal(t, 1000, *second.MaxOrderQty)

	third := products[2]
	assert.InDelta(t, 0.2, third.ProfitMargin, 1e-9)
	require.NotNil(t, third.MaxOrderQty)
	assert.Equal(t, 50, *third.MaxOrderQty)
	assert.Empty(t, third.Category)
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "catalog is empty"},
		{"missing column", "product_id,name,price,cost,stock\n1,A,1,1,1\n", `missing column "avg_daily_sales"`},
		{"header only", "product_id,name,price,cost,stock,avg_daily_sales\n", "catalog has no products"},
		{"bad price", "product_id,name,price,cost,stock,avg_daily_sales\n1,A,abc,1,1,1\n", `row 2: invalid price "abc"`},
		{"fractional stock", "product_id,name,price,cost,stock,avg_daily_sales\n1,A,2,1,1.5,1\n", "row 2: invalid stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func buildXLSX(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	data := buildXLSX(t, [][]any{
		{"product_id", "name", "price", "cost", "stock", "avg_daily_sales", "category"},
		{101, "Noodles", 15, 10, 24, 8.5, "Food"},
		{"B-7", "Bleach", 60, 45, 3, 1, ""},
	})

	products, err := ParseXLSX(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, domain.ProductID("101"), products[0].ProductID)
	assert.Equal(t, 24, products[0].Stock)
	assert.Equal(t, 8.5, products[0].AvgDailySales)
	assert.Equal(t, "Food", products[0].Category)
	assert.Equal(t, domain.ProductID("B-7"), products[1].ProductID)
	assert.Equal(t, 45.0, products[1].Cost)
}

func TestParseDispatch(t *testing.T) {
	products, err := Parse("catalog.CSV", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Len(t, products, 3)

	_, err = Parse("catalog.txt", strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
