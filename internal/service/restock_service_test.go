package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/shelfplan/backend-go/internal/cache"
	"github.com/andresuchdata/shelfplan/backend-go/internal/domain"
	"github.com/andresuchdata/shelfplan/backend-go/internal/repository"
)

var fixedNow = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

type fakeExporter struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeExporter) Export(ctx context.Context, resp *domain.RestockResponse) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := resp.ShopID + "/" + resp.Meta.PlanID + ".csv"
	f.keys = append(f.keys, key)
	return key, nil
}

type failingPlanRepo struct {
	repository.PlanRepository
}

func (failingPlanRepo) Save(ctx context.Context, plan domain.StoredPlan) error {
	return errors.New("db down")
}

type countingCache struct {
	cache.CatalogCache
	snapshots   map[string]domain.CatalogSnapshot
	gets        int
	invalidated []string
}

func newCountingCache() *countingCache {
	return &countingCache{snapshots: map[string]domain.CatalogSnapshot{}}
}

func (c *countingCache) Get(ctx context.Context, shopID string) (*domain.CatalogSnapshot, bool, error) {
	c.gets++
	snap, ok := c.snapshots[shopID]
	if !ok {
		return nil, false, nil
	}
	return &snap, true, nil
}

func (c *countingCache) Set(ctx context.Context, snapshot domain.CatalogSnapshot) error {
	c.snapshots[snapshot.ShopID] = snapshot
	return nil
}

func (c *countingCache) Invalidate(ctx context.Context, shopID string) error {
	c.invalidated = append(c.invalidated, shopID)
	delete(c.snapshots, shopID)
	return nil
}

func newTestService(t *testing.T, plans repository.PlanRepository, c cache.CatalogCache, exp PlanExporter) *RestockService {
	t.Helper()
	svc := NewRestockService(RestockConfig{DefaultDays: 14, MaxProducts: 5, BatchConcurrency: 2}, plans, nil, c, exp)
	svc.now = func() time.Time { return fixedNow }
	var seq atomic.Int64
	svc.newID = func() string { return testPlanID(seq.Add(1)) }
	return svc
}

func testPlanID(n int64) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}

func catsup() domain.ProductInput {
	return domain.ProductInput{
		ProductID: "1", Name: "Catsup", Price: 18, Cost: 12, Stock: 5,
		AvgDailySales: 10, ProfitMargin: 0.33,
	}
}

func lossLeader() domain.ProductInput {
	return domain.ProductInput{
		ProductID: "2", Name: "Promo pack", Price: 10, Cost: 12, Stock: 5,
		AvgDailySales: 3, ProfitMargin: 0,
	}
}

func sampleRequest() domain.RestockRequest {
	return domain.RestockRequest{
		ShopID:   "SHOP-1",
		Budget:   5000,
		Products: []domain.ProductInput{catsup()},
	}
}

func TestStrategy(t *testing.T) {
	plans := repository.NewMemoryPlanRepository()
	exp := &fakeExporter{}
	svc := newTestService(t, plans, nil, exp)

	resp, err := svc.Strategy(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, "profit", resp.Strategy)
	assert.Equal(t, testPlanID(1), resp.Meta.PlanID)
	assert.Equal(t, 14, resp.Meta.RestockDays)
	require.Len(t, resp.Items, 1)
	assert.LessOrEqual(t, resp.Totals.TotalCost, 5000.0)

	stored, err := plans.Get(context.Background(), testPlanID(1))
	require.NoError(t, err)
	assert.Equal(t, "SHOP-1", stored.ShopID)
	assert.Equal(t, fixedNow, stored.CreatedAt)
	assert.Equal(t, *resp, stored.Response)

	assert.Equal(t, []string{"SHOP-1/" + testPlanID(1) + ".csv"}, exp.keys)
}

func TestStrategyInvalidRequest(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	req := sampleRequest()
	req.Budget = 0
	_, err := svc.Strategy(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidRequest)

	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))

	req = sampleRequest()
	for i := 0; i < 6; i++ {
		p := catsup()
		p.ProductID = domain.ProductID(fmt.Sprint(i + 10))
		req.Products = append(req.Products, p)
	}
	_, err = svc.Strategy(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "maximum 5 products")
}

func TestStrategyDoesNotMutateInput(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)
	req := sampleRequest()
	req.Products[0].ProfitMargin = 0.9

	_, err := svc.Strategy(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0.9, req.Products[0].ProfitMargin)
	assert.Equal(t, 0, req.Products[0].MinOrderQty)
}

func TestStrategyNoValidProducts(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)
	req := sampleRequest()
	req.Products = []domain.ProductInput{lossLeader()}

	resp, err := svc.Strategy(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.NotNil(t, resp.Items)
	assert.Equal(t, []string{"No products can be recommended. Please check product pricing."}, resp.Warnings)
	assert.Equal(t, 1, resp.Meta.ProductsAnalyzed)
}

func TestStrategySideChannelFailures(t *testing.T) {
	svc := newTestService(t, failingPlanRepo{}, nil, &fakeExporter{err: errors.New("bucket gone")})

	resp, err := svc.Strategy(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Items)
}

func TestStrategyBatch(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	reqs := make([]domain.RestockRequest, 5)
	for i := range reqs {
		reqs[i] = sampleRequest()
		reqs[i].ShopID = fmt.Sprintf("SHOP-%d", i)
		reqs[i].Budget = float64(100 * (i + 1))
	}

	results, err := svc.StrategyBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, len(reqs))
	for i, resp := range results {
		assert.Equal(t, reqs[i].ShopID, resp.ShopID)
		assert.Equal(t, reqs[i].Budget, resp.Budget)
		assert.LessOrEqual(t, resp.Totals.TotalCost, resp.Budget)
	}
}

func TestStrategyBatchInvalid(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	_, err := svc.StrategyBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	reqs := []domain.RestockRequest{sampleRequest(), sampleRequest()}
	reqs[1].Goal = "growth"
	_, err = svc.StrategyBatch(context.Background(), reqs)
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "requests[1]")
}

func TestSaveAndGetCatalog(t *testing.T) {
	c := newCountingCache()
	svc := newTestService(t, nil, c, nil)
	ctx := context.Background()

	updated := catsup()
	updated.Stock = 99
	snap, err := svc.SaveCatalog(ctx, " SHOP-1 ", []domain.ProductInput{catsup(), lossLeader(), updated})
	require.NoError(t, err)

	assert.Equal(t, "SHOP-1", snap.ShopID)
	assert.Equal(t, fixedNow, snap.UpdatedAt)
	require.Len(t, snap.Products, 2)
	assert.Equal(t, domain.ProductID("1"), snap.Products[0].ProductID)
	assert.Equal(t, 99, snap.Products[0].Stock)
	assert.Equal(t, 1, snap.Products[0].MinOrderQty)
	assert.Equal(t, []string{"SHOP-1"}, c.invalidated)

	got, err := svc.GetCatalog(ctx, "SHOP-1")
	require.NoError(t, err)
	assert.Equal(t, snap.Products, got.Products)
	assert.Equal(t, 1, c.gets)

	delete(c.snapshots, "SHOP-1")
	got, err = svc.GetCatalog(ctx, "SHOP-1")
	require.NoError(t, err)
	assert.Len(t, got.Products, 2)
	assert.Contains(t, c.snapshots, "SHOP-1")
}

type failingCatalogRepo struct {
	repository.CatalogRepository
}

func (failingCatalogRepo) Replace(ctx context.Context, snapshot domain.CatalogSnapshot) error {
	return errors.New("db down")
}

func TestSaveCatalogWriteFailureDropsCachedCopy(t *testing.T) {
	c := newCountingCache()
	c.snapshots["SHOP-1"] = domain.CatalogSnapshot{ShopID: "SHOP-1", Products: []domain.ProductInput{lossLeader()}}
	svc := NewRestockService(RestockConfig{MaxProducts: 5}, nil, failingCatalogRepo{}, c, nil)

	_, err := svc.SaveCatalog(context.Background(), "SHOP-1", []domain.ProductInput{catsup()})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, []string{"SHOP-1"}, c.invalidated)
	assert.NotContains(t, c.snapshots, "SHOP-1")
}

func TestSaveCatalogInvalid(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	_, err := svc.SaveCatalog(context.Background(), "", []domain.ProductInput{catsup()})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.SaveCatalog(context.Background(), "SHOP-1", nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestGetCatalogNotFound(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	_, err := svc.GetCatalog(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrCatalogNotFound)

	_, err = svc.StrategyForShop(context.Background(), "nope", domain.ShopStrategyRequest{Budget: 100})
	assert.ErrorIs(t, err, ErrCatalogNotFound)
}

func TestStrategyForShop(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.SaveCatalog(ctx, "SHOP-1", []domain.ProductInput{catsup(), lossLeader()})
	require.NoError(t, err)

	resp, err := svc.StrategyForShop(ctx, "SHOP-1", domain.ShopStrategyRequest{Budget: 1000, Goal: "volume", RestockDays: 7})
	require.NoError(t, err)
	assert.Equal(t, "SHOP-1", resp.ShopID)
	assert.Equal(t, "volume", resp.Strategy)
	assert.Equal(t, 7, resp.Meta.RestockDays)
	assert.Equal(t, 2, resp.Meta.ProductsAnalyzed)

	_, err = svc.StrategyForShop(ctx, "SHOP-1", domain.ShopStrategyRequest{Budget: -1})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestImportCatalog(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)
	csv := "product_id,name,price,cost,stock,avg_daily_sales\n7,Vinegar,25,18,2,6\n"

	snap, err := svc.ImportCatalog(context.Background(), "SHOP-9", "vinegar.csv", strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, snap.Products, 1)
	assert.Equal(t, domain.ProductID("7"), snap.Products[0].ProductID)
	assert.InDelta(t, 0.28, snap.Products[0].ProfitMargin, 1e-9)

	_, err = svc.ImportCatalog(context.Background(), "SHOP-9", "vinegar.pdf", strings.NewReader(csv))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPlanHistory(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Strategy(ctx, sampleRequest())
		require.NoError(t, err)
	}

	list, err := svc.ListPlans(ctx, "SHOP-1", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	plan, err := svc.GetPlan(ctx, testPlanID(2))
	require.NoError(t, err)
	assert.Equal(t, testPlanID(2), plan.Response.Meta.PlanID)

	_, err = svc.GetPlan(ctx, testPlanID(9))
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestGetPlan_MalformedIDSkipsRepository(t *testing.T) {
	// failingPlanRepo has no Get; reaching the repository would panic.
	svc := newTestService(t, failingPlanRepo{}, nil, nil)

	for _, id := range []string{"missing", "not-a-uuid", ""} {
		_, err := svc.GetPlan(context.Background(), id)
		assert.ErrorIs(t, err, ErrPlanNotFound, id)
	}
}
