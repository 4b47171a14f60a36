package postgres

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS restock_plans (
	id UUID PRIMARY KEY,
	shop_id TEXT NOT NULL,
	objective TEXT NOT NULL,
	budget DOUBLE PRECISION NOT NULL,
	restock_days INTEGER NOT NULL,
	total_items INTEGER NOT NULL,
	total_cost DOUBLE PRECISION NOT NULL,
	expected_profit DOUBLE PRECISION NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_restock_plans_shop_created ON restock_plans(shop_id, created_at DESC);

CREATE TABLE IF NOT EXISTS product_catalog (
	shop_id TEXT NOT NULL,
	product_id TEXT NOT NULL,
	name TEXT NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	cost DOUBLE PRECISION NOT NULL,
	stock INTEGER NOT NULL,
	avg_daily_sales DOUBLE PRECISION NOT NULL,
	profit_margin DOUBLE PRECISION NOT NULL,
	min_order_qty INTEGER NOT NULL DEFAULT 1,
	max_order_qty INTEGER,
	category TEXT,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	position INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (shop_id, product_id)
);
ALTER TABLE product_catalog ADD COLUMN IF NOT EXISTS position INTEGER NOT NULL DEFAULT 0;
`

// EnsureSchema creates the plan history and catalog tables if they are missing.
func EnsureSchema(ctx context.Context, db *DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
