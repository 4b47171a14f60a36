package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/shelfplan/backend-go/internal/cache"
	"github.com/andresuchdata/shelfplan/backend-go/internal/catalog"
	"github.com/andresuchdata/shelfplan/backend-go/internal/domain"
	"github.com/andresuchdata/shelfplan/backend-go/internal/repository"
	"github.com/andresuchdata/shelfplan/backend-go/internal/restock"
)

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrPlanNotFound    = errors.New("plan not found")
	ErrCatalogNotFound = errors.New("catalog not found")
)

const defaultBatchConcurrency = 4

type RestockConfig struct {
	DefaultDays      int
	MaxProducts      int
	BatchConcurrency int
	Planner          restock.Options
}

// PlanExporter ships a finished plan somewhere outside the service and returns its key.
type PlanExporter interface {
	Export(ctx context.Context, resp *domain.RestockResponse) (string, error)
}

type RestockService struct {
	cfg      RestockConfig
	planner  *restock.Planner
	plans    repository.PlanRepository
	catalogs repository.CatalogRepository
	cache    cache.CatalogCache
	exporter PlanExporter

	now   func() time.Time
	newID func() string
}

// NewRestockService wires the planner to its stores. Nil stores fall back to in-memory
// ones and a nil cache to the noop cache; a nil exporter disables export.
func NewRestockService(
	cfg RestockConfig,
	plans repository.PlanRepository,
	catalogs repository.CatalogRepository,
	cacheImpl cache.CatalogCache,
	exporter PlanExporter,
) *RestockService {
	if plans == nil {
		plans = repository.NewMemoryPlanRepository()
	}
	if catalogs == nil {
		catalogs = repository.NewMemoryCatalogRepository()
	}
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopCatalogCache()
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = defaultBatchConcurrency
	}
	return &RestockService{
		cfg:      cfg,
		planner:  restock.NewPlanner(cfg.Planner),
		plans:    plans,
		catalogs: catalogs,
		cache:    cacheImpl,
		exporter: exporter,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Strategy validates req, plans it and records the plan in history.
func (s *RestockService) Strategy(ctx context.Context, req domain.RestockRequest) (*domain.RestockResponse, error) {
	if err := req.Validate(s.cfg.MaxProducts); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return s.run(ctx, req), nil
}

// StrategyBatch plans every request concurrently. Any invalid request fails the whole
// batch before planning starts. Results keep request order.
func (s *RestockService) StrategyBatch(ctx context.Context, reqs []domain.RestockRequest) ([]*domain.RestockResponse, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no requests", ErrInvalidRequest)
	}
	for i := range reqs {
		if err := reqs[i].Validate(s.cfg.MaxProducts); err != nil {
			return nil, fmt.Errorf("%w: requests[%d]: %w", ErrInvalidRequest, i, err)
		}
	}

	results := make([]*domain.RestockResponse, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchConcurrency)

	for i := range reqs {
		i := i
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("requests[%d] panicked: %v", i, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.run(gctx, reqs[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info().Int("requests", len(reqs)).Msg("restock_batch_success")
	return results, nil
}

// run expects a validated request.
func (s *RestockService) run(ctx context.Context, req domain.RestockRequest) *domain.RestockResponse {
	req.Products = append([]domain.ProductInput(nil), req.Products...)
	req.Normalize(s.cfg.DefaultDays)

	log.Info().
		Str("shop_id", req.ShopID).
		Float64("budget", req.Budget).
		Str("goal", req.Goal).
		Int("products", len(req.Products)).
		Int("restock_days", req.RestockDays).
		Msg("restock_request")

	if req.IsPayday || restock.IsRecognizedEvent(req.UpcomingHoliday) {
		multiplier := restock.AdjustDemand(1, req.ToContext())
		log.Debug().
			Str("shop_id", req.ShopID).
			Bool("is_payday", req.IsPayday).
			Str("upcoming_holiday", req.UpcomingHoliday).
			Float64("demand_multiplier", multiplier).
			Msg("restock context multipliers applied")
	}

	res := s.planner.Plan(req.ToProducts(), req.ToContext())
	resp := domain.NewRestockResponse(req.ShopID, res)
	resp.Meta.PlanID = s.newID()

	if res.ProductsSelected == 0 && res.ProductsExcluded == res.ProductsAnalyzed {
		log.Warn().
			Str("shop_id", req.ShopID).
			Str("plan_id", resp.Meta.PlanID).
			Int("products", res.ProductsAnalyzed).
			Msg("restock_no_valid_products")
	} else {
		log.Info().
			Str("shop_id", req.ShopID).
			Str("plan_id", resp.Meta.PlanID).
			Int("items_selected", res.ProductsSelected).
			Float64("total_cost", res.Totals.TotalCost).
			Float64("expected_profit", res.Totals.ExpectedProfit).
			Msg("restock_success")
	}

	s.record(ctx, resp)
	return resp
}

// record keeps plan history and the export best-effort.
func (s *RestockService) record(ctx context.Context, resp *domain.RestockResponse) {
	plan := domain.StoredPlan{PlanSummary: resp.Summary(s.now().UTC()), Response: *resp}
	if err := s.plans.Save(ctx, plan); err != nil {
		log.Warn().Err(err).Str("plan_id", plan.ID).Msg("restock: save plan history failed")
	}

	if s.exporter == nil {
		return
	}
	key, err := s.exporter.Export(ctx, resp)
	if err != nil {
		log.Warn().Err(err).Str("plan_id", plan.ID).Msg("restock: export plan failed")
		return
	}
	log.Debug().Str("plan_id", plan.ID).Str("key", key).Msg("restock plan exported")
}

// SaveCatalog replaces a shop's catalog snapshot. Repeated product ids keep the last row.
func (s *RestockService) SaveCatalog(ctx context.Context, shopID string, products []domain.ProductInput) (*domain.CatalogSnapshot, error) {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return nil, fmt.Errorf("%w: shop id is required", ErrInvalidRequest)
	}

	req := domain.CatalogRequest{Products: products}
	if err := req.Validate(s.cfg.MaxProducts); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	snapshot := domain.CatalogSnapshot{
		ShopID:    shopID,
		Products:  dedupeProducts(products),
		UpdatedAt: s.now().UTC(),
	}

	// The cached copy is dropped before the write and only restored after it succeeds.
	if err := s.cache.Invalidate(ctx, shopID); err != nil {
		log.Warn().Err(err).Str("shop_id", shopID).Msg("restock: cache invalidate catalog failed")
	}

	if err := s.catalogs.Replace(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("save catalog for %s: %w", shopID, err)
	}

	if err := s.cache.Set(ctx, snapshot); err != nil {
		log.Warn().Err(err).Str("shop_id", shopID).Msg("restock: cache set catalog failed")
	}

	log.Info().Str("shop_id", shopID).Int("products", len(snapshot.Products)).Msg("catalog saved")
	return &snapshot, nil
}

func dedupeProducts(products []domain.ProductInput) []domain.ProductInput {
	out := make([]domain.ProductInput, 0, len(products))
	index := make(map[domain.ProductID]int, len(products))
	for _, p := range products {
		p.Normalize()
		if i, ok := index[p.ProductID]; ok {
			out[i] = p
			continue
		}
		index[p.ProductID] = len(out)
		out = append(out, p)
	}
	return out
}

func (s *RestockService) GetCatalog(ctx context.Context, shopID string) (*domain.CatalogSnapshot, error) {
	if snapshot, ok, err := s.cache.Get(ctx, shopID); err == nil && ok {
		return snapshot, nil
	} else if err != nil {
		log.Warn().Err(err).Str("shop_id", shopID).Msg("restock: cache get catalog failed")
	}

	snapshot, err := s.catalogs.Get(ctx, shopID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCatalogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog for %s: %w", shopID, err)
	}

	if err := s.cache.Set(ctx, *snapshot); err != nil {
		log.Warn().Err(err).Str("shop_id", shopID).Msg("restock: cache set catalog failed")
	}
	return snapshot, nil
}

// ImportCatalog parses a CSV or XLSX file and stores it as the shop's catalog.
func (s *RestockService) ImportCatalog(ctx context.Context, shopID, filename string, r io.Reader) (*domain.CatalogSnapshot, error) {
	products, err := catalog.Parse(filename, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return s.SaveCatalog(ctx, shopID, products)
}

// StrategyForShop plans against the shop's stored catalog.
func (s *RestockService) StrategyForShop(ctx context.Context, shopID string, req domain.ShopStrategyRequest) (*domain.RestockResponse, error) {
	snapshot, err := s.GetCatalog(ctx, shopID)
	if err != nil {
		return nil, err
	}
	return s.Strategy(ctx, req.WithProducts(shopID, snapshot.Products))
}

func (s *RestockService) ListPlans(ctx context.Context, shopID string, limit int) ([]domain.PlanSummary, error) {
	return s.plans.ListByShop(ctx, shopID, limit)
}

// GetPlan loads a stored plan. Ids that are not UUIDs can never match a plan.
func (s *RestockService) GetPlan(ctx context.Context, id string) (*domain.StoredPlan, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPlanNotFound
	}

	plan, err := s.plans.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", id, err)
	}
	return plan, nil
}
