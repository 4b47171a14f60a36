package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/andresuchdata/shelfplan/backend-go/internal/domain"
	"github.com/andresuchdata/shelfplan/backend-go/internal/repository"
)

const (
	defaultPlanListLimit = 20
	maxPlanListLimit     = 100
)

type planRepository struct {
	db *DB
}

func NewPlanRepository(db *DB) repository.PlanRepository {
	return &planRepository{db: db}
}

type planRow struct {
	domain.PlanSummary
	Payload []byte `db:"payload"`
}

func (r *planRepository) Save(ctx context.Context, plan domain.StoredPlan) error {
	payload, err := json.Marshal(plan.Response)
	if err != nil {
		return fmt.Errorf("encode plan payload: %w", err)
	}

	query := `
		INSERT INTO restock_plans (
			id, shop_id, objective, budget, restock_days,
			total_items, total_cost, expected_profit, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.ExecContext(ctx, query,
		plan.ID,
		plan.ShopID,
		plan.Objective,
		plan.Budget,
		plan.RestockDays,
		plan.TotalItems,
		plan.TotalCost,
		plan.ExpectedProfit,
		payload,
		plan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert restock plan: %w", err)
	}
	return nil
}

func (r *planRepository) Get(ctx context.Context, id string) (*domain.StoredPlan, error) {
	query := `
		SELECT id, shop_id, objective, budget, restock_days,
		       total_items, total_cost, expected_profit, payload, created_at
		FROM restock_plans
		WHERE id = $1
	`

	var row planRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("error getting restock plan %s: %w", id, err)
	}

	plan := &domain.StoredPlan{PlanSummary: row.PlanSummary}
	if err := json.Unmarshal(row.Payload, &plan.Response); err != nil {
		return nil, fmt.Errorf("decode plan payload %s: %w", id, err)
	}
	return plan, nil
}

func (r *planRepository) ListByShop(ctx context.Context, shopID string, limit int) ([]domain.PlanSummary, error) {
	if limit <= 0 {
		limit = defaultPlanListLimit
	}
	if limit > maxPlanListLimit {
		limit = maxPlanListLimit
	}

	query := `
		SELECT id, shop_id, objective, budget, restock_days,
		       total_items, total_cost, expected_profit, created_at
		FROM restock_plans
		WHERE shop_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	summaries := make([]domain.PlanSummary, 0)
	if err := r.db.SelectContext(ctx, &summaries, query, shopID, limit); err != nil {
		return nil, fmt.Errorf("error listing restock plans: %w", err)
	}
	return summaries, nil
}
