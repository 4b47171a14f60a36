package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/shelfplan/backend-go/internal/domain"
	"github.com/andresuchdata/shelfplan/backend-go/internal/repository"
)

type catalogRepository struct {
	db *DB
}

func NewCatalogRepository(db *DB) repository.CatalogRepository {
	return &catalogRepository{db: db}
}

type catalogRow struct {
	ProductID     string         `db:"product_id"`
	Name          string         `db:"name"`
	Price         float64        `db:"price"`
	Cost          float64        `db:"cost"`
	Stock         int            `db:"stock"`
	AvgDailySales float64        `db:"avg_daily_sales"`
	ProfitMargin  float64        `db:"profit_margin"`
	MinOrderQty   int            `db:"min_order_qty"`
	MaxOrderQty   sql.NullInt64  `db:"max_order_qty"`
	Category      sql.NullString `db:"category"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// Replace swaps the shop's catalog for snapshot in one transaction.
func (r *catalogRepository) Replace(ctx context.Context, snapshot domain.CatalogSnapshot) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM product_catalog WHERE shop_id = $1`, snapshot.ShopID); err != nil {
			return fmt.Errorf("failed to clear catalog for %s: %w", snapshot.ShopID, err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO product_catalog (
				shop_id, product_id, name, price, cost, stock, avg_daily_sales,
				profit_margin, min_order_qty, max_order_qty, category, updated_at, position
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (shop_id, product_id)
			DO UPDATE SET
				name = EXCLUDED.name,
				price = EXCLUDED.price,
				cost = EXCLUDED.cost,
				stock = EXCLUDED.stock,
				avg_daily_sales = EXCLUDED.avg_daily_sales,
				profit_margin = EXCLUDED.profit_margin,
				min_order_qty = EXCLUDED.min_order_qty,
				max_order_qty = EXCLUDED.max_order_qty,
				category = EXCLUDED.category,
				updated_at = EXCLUDED.updated_at,
				position = EXCLUDED.position
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare catalog insert: %w", err)
		}
		defer stmt.Close()

		for i, p := range snapshot.Products {
			var maxQty sql.NullInt64
			if p.MaxOrderQty != nil {
				maxQty = sql.NullInt64{Int64: int64(*p.MaxOrderQty), Valid: true}
			}
			_, err := stmt.ExecContext(ctx,
				snapshot.ShopID,
				string(p.ProductID),
				p.Name,
				p.Price,
				p.Cost,
				p.Stock,
				p.AvgDailySales,
				p.ProfitMargin,
				p.MinOrderQty,
				maxQty,
				nullIfEmpty(p.Category),
				snapshot.UpdatedAt,
				i,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert catalog product %s: %w", p.ProductID, err)
			}
		}
		return nil
	})
}

// Get returns the shop's catalog in the order it was saved.
func (r *catalogRepository) Get(ctx context.Context, shopID string) (*domain.CatalogSnapshot, error) {
	query := `
		SELECT product_id, name, price, cost, stock, avg_daily_sales,
		       profit_margin, min_order_qty, max_order_qty, category, updated_at
		FROM product_catalog
		WHERE shop_id = $1
		ORDER BY position, product_id
	`

	var rows []catalogRow
	if err := r.db.SelectContext(ctx, &rows, query, shopID); err != nil {
		return nil, fmt.Errorf("error getting catalog for %s: %w", shopID, err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}

	snapshot := &domain.CatalogSnapshot{
		ShopID:   shopID,
		Products: make([]domain.ProductInput, 0, len(rows)),
	}
	for _, row := range rows {
		p := domain.ProductInput{
			ProductID:     domain.ProductID(row.ProductID),
			Name:          row.Name,
			Price:         row.Price,
			Cost:          row.Cost,
			Stock:         row.Stock,
			AvgDailySales: row.AvgDailySales,
			ProfitMargin:  row.ProfitMargin,
			MinOrderQty:   row.MinOrderQty,
			Category:      row.Category.String,
		}
		if row.MaxOrderQty.Valid {
			v := int(row.MaxOrderQty.Int64)
			p.MaxOrderQty = &v
		}
		if row.UpdatedAt.After(snapshot.UpdatedAt) {
			snapshot.UpdatedAt = row.UpdatedAt
		}
		snapshot.Products = append(snapshot.Products, p)
	}
	return snapshot, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
