// Package catalog reads shop product catalogs from CSV and XLSX files.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/shelfplan/backend-go/internal/domain"
)

var requiredColumns = []string{"product_id", "name", "price", "cost", "stock", "avg_daily_sales"}

// MaxFileBytes caps the size of an uploaded or downloaded catalog file.
const MaxFileBytes = 20 << 20

var ErrUnsupportedFormat = errors.New("unsupported catalog format")

// Parse picks a parser from the file extension.
func Parse(filename string, r io.Reader) ([]domain.ProductInput, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(r)
	case ".xlsx":
		return ParseXLSX(r)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
}

// ParseCSV reads a header row followed by one product per row.
func ParseCSV(r io.Reader) ([]domain.ProductInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return parseRows(rows)
}

// ParseXLSX reads the first sheet of a workbook.
func ParseXLSX(r io.Reader) ([]domain.ProductInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row from sheet %s: %w", sheet, err)
		}
		records = append(records, record)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows in sheet %s: %w", sheet, err)
	}

	return parseRows(records)
}

type columns map[string]int

func (c columns) get(row []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseRows(rows [][]string) ([]domain.ProductInput, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	cols := columns{}
	for i, h := range rows[0] {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if name != "" {
			cols[name] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("catalog is missing column %q", name)
		}
	}

	products := make([]domain.ProductInput, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		p, err := parseProduct(cols, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		products = append(products, p)
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("catalog has no products")
	}
	return products, nil
}

func parseProduct(cols columns, row []string) (domain.ProductInput, error) {
	p := domain.ProductInput{
		ProductID: domain.ProductID(cols.get(row, "product_id")),
		Name:      cols.get(row, "name"),
		Category:  cols.get(row, "category"),
	}

	var err error
	if p.Price, err = parseFloat(cols.get(row, "price"), "price"); err != nil {
		return p, err
	}
	if p.Cost, err = parseFloat(cols.get(row, "cost"), "cost"); err != nil {
		return p, err
	}
	if p.Stock, err = parseInt(cols.get(row, "stock"), "stock"); err != nil {
		return p, err
	}
	if p.AvgDailySales, err = parseFloat(cols.get(row, "avg_daily_sales"), "avg_daily_sales"); err != nil {
		return p, err
	}

	if v := cols.get(row, "profit_margin"); v != "" {
		if p.ProfitMargin, err = parseFloat(strings.TrimSuffix(v, "%"), "profit_margin"); err != nil {
			return p, err
		}
		if strings.HasSuffix(v, "%") {
			p.ProfitMargin /= 100
		}
	}
	if v := cols.get(row, "min_order_qty"); v != "" {
		if p.MinOrderQty, err = parseInt(v, "min_order_qty"); err != nil {
			return p, err
		}
	}
	if v := cols.get(row, "max_order_qty"); v != "" {
		n, err := parseInt(v, "max_order_qty")
		if err != nil {
			return p, err
		}
		p.MaxOrderQty = &n
	}

	return p, nil
}

func parseFloat(v, field string) (float64, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, v)
	}
	return f, nil
}

// parseInt accepts integral decimals ("12.0") since spreadsheets often emit them.
func parseInt(v, field string) (int, error) {
	f, err := parseFloat(v, field)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid %s %q: not a whole number", field, v)
	}
	return int(f), nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
