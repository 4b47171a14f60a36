package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/andresuchdata/shelfplan/backend-go/internal/domain"
)

// ErrNotFound is returned when a plan or catalog does not exist.
var ErrNotFound = errors.New("not found")

// PlanRepository stores generated plans.
type PlanRepository interface {
	Save(ctx context.Context, plan domain.StoredPlan) error
	Get(ctx context.Context, id string) (*domain.StoredPlan, error)
	ListByShop(ctx context.Context, shopID string, limit int) ([]domain.PlanSummary, error)
}

// CatalogRepository stores one product list per shop. Replace overwrites the whole list.
type CatalogRepository interface {
	Replace(ctx context.Context, snapshot domain.CatalogSnapshot) error
	Get(ctx context.Context, shopID string) (*domain.CatalogSnapshot, error)
}

// memoryPlanRepository backs the server when no database is configured.
type memoryPlanRepository struct {
	mu    sync.RWMutex
	plans map[string]domain.StoredPlan
}

func NewMemoryPlanRepository() PlanRepository {
	return &memoryPlanRepository{plans: make(map[string]domain.StoredPlan)}
}

func (r *memoryPlanRepository) Save(ctx context.Context, plan domain.StoredPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[plan.ID] = plan
	return nil
}

func (r *memoryPlanRepository) Get(ctx context.Context, id string) (*domain.StoredPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &plan, nil
}

func (r *memoryPlanRepository) ListByShop(ctx context.Context, shopID string, limit int) ([]domain.PlanSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]domain.PlanSummary, 0)
	for _, plan := range r.plans {
		if plan.ShopID == shopID {
			summaries = append(summaries, plan.PlanSummary)
		}
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID > summaries[j].ID
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

type memoryCatalogRepository struct {
	mu       sync.RWMutex
	catalogs map[string]domain.CatalogSnapshot
}

func NewMemoryCatalogRepository() CatalogRepository {
	return &memoryCatalogRepository{catalogs: make(map[string]domain.CatalogSnapshot)}
}

func (r *memoryCatalogRepository) Replace(ctx context.Context, snapshot domain.CatalogSnapshot) error {
	products := make([]domain.ProductInput, len(snapshot.Products))
	copy(products, snapshot.Products)
	snapshot.Products = products

	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalogs[snapshot.ShopID] = snapshot
	return nil
}

func (r *memoryCatalogRepository) Get(ctx context.Context, shopID string) (*domain.CatalogSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot, ok := r.catalogs[shopID]
	if !ok {
		return nil, ErrNotFound
	}
	products := make([]domain.ProductInput, len(snapshot.Products))
	copy(products, snapshot.Products)
	snapshot.Products = products
	return &snapshot, nil
}
