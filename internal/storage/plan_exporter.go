package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/shelfplan/backend-go/internal/domain"
)

const defaultExportPrefix = "plans"

var planCSVHeader = []string{
	"product_id", "name", "qty", "unit_cost", "total_cost",
	"expected_revenue", "expected_profit", "days_of_stock", "priority_score", "reasoning",
}

// PlanExporter writes restock plans as CSV objects under prefix/<shop>/<plan>.csv.
type PlanExporter struct {
	store  ObjectStorage
	prefix string
}

func NewPlanExporter(store ObjectStorage, prefix string) *PlanExporter {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = defaultExportPrefix
	}
	return &PlanExporter{store: store, prefix: prefix}
}

// Export uploads the plan and returns its object key.
func (e *PlanExporter) Export(ctx context.Context, resp *domain.RestockResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("export: nil plan")
	}
	if resp.Meta.PlanID == "" {
		return "", fmt.Errorf("export: plan has no id")
	}

	data, err := EncodePlanCSV(resp)
	if err != nil {
		return "", err
	}

	key := e.objectKey(resp.ShopID, resp.Meta.PlanID)
	if err := e.store.UploadObject(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// List returns the exported plans of a shop.
func (e *PlanExporter) List(ctx context.Context, shopID string) ([]ObjectInfo, error) {
	return e.store.ListObjects(ctx, e.shopPrefix(shopID))
}

// Fetch downloads an exported plan to dest.
func (e *PlanExporter) Fetch(ctx context.Context, key, dest string) error {
	return e.store.DownloadObject(ctx, key, dest)
}

func (e *PlanExporter) shopPrefix(shopID string) string {
	return path.Join(e.prefix, url.PathEscape(shopID)) + "/"
}

func (e *PlanExporter) objectKey(shopID, planID string) string {
	return e.shopPrefix(shopID) + url.PathEscape(planID) + ".csv"
}

// EncodePlanCSV renders the plan items followed by a TOTAL row.
func EncodePlanCSV(resp *domain.RestockResponse) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(planCSVHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, item := range resp.Items {
		record := []string{
			item.ProductID,
			item.Name,
			strconv.Itoa(item.Qty),
			money(item.UnitCost),
			money(item.TotalCost),
			money(item.ExpectedRevenue),
			money(item.ExpectedProfit),
			decimal.NewFromFloat(item.DaysOfStock).StringFixed(1),
			decimal.NewFromFloat(item.PriorityScore).StringFixed(4),
			item.Reasoning,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	t := resp.Totals
	total := []string{
		"TOTAL", "",
		strconv.Itoa(t.TotalQty),
		"",
		money(t.TotalCost),
		money(t.ExpectedRevenue),
		money(t.ExpectedProfit),
		decimal.NewFromFloat(t.AvgDaysOfStock).StringFixed(1),
		"", "",
	}
	if err := w.Write(total); err != nil {
		return nil, fmt.Errorf("write csv totals: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
