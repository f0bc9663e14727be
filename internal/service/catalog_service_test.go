package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/storefront/internal/cache"
	"github.com/spec-kit/storefront/internal/catalog"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/events"
	apperrors "github.com/spec-kit/storefront/pkg/util"
)

type catalogFixture struct {
	svc      *CatalogService
	products *fakeProducts
	redis    *miniredis.Miniredis
	logs     *observer.ObservedLogs
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewRedisStore(client)

	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	products := &fakeProducts{}
	reader := catalog.NewReader(store, products, catalog.ReaderOptions{TTL: time.Minute, Logger: logger})
	invalidator := catalog.NewInvalidator(store, catalog.DefaultNamespace, logger, nil)

	dispatcher := events.NewInMemoryDispatcher()
	invalidator.Register(dispatcher)
	reader.Register(dispatcher)

	svc := NewCatalogService(CatalogDependencies{
		Products:     products,
		Reader:       reader,
		Dispatcher:   dispatcher,
		PurgeTimeout: time.Second,
		DefaultLimit: 10,
		Logger:       logger,
	})
	return &catalogFixture{svc: svc, products: products, redis: mr, logs: logs}
}

func price(v float64) *float64 { return &v }

func decodePage(t *testing.T, res *catalog.PageResult) domain.CatalogPage {
	t.Helper()
	var page domain.CatalogPage
	require.NoError(t, json.Unmarshal(res.Body, &page))
	return page
}

func TestCreateThenListSeesNewRecord(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, NewProduct{Name: "first", Price: price(1)})
	require.NoError(t, err)

	res, err := f.svc.ListPage(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, decodePage(t, res).Products, 1)
	require.True(t, f.redis.Exists("products:page:1:limit:20"))

	created, err := f.svc.Create(ctx, NewProduct{Name: "second", Price: price(2)})
	require.NoError(t, err)
	assert.False(t, f.redis.Exists("products:page:1:limit:20"))

	res, err = f.svc.ListPage(ctx, 1, 20)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	page := decodePage(t, res)
	require.Len(t, page.Products, 2)
	assert.Equal(t, created.ID, page.Products[1].ID)
	assert.EqualValues(t, 2, page.TotalProducts)
}

func TestUpdateAndDeletePurge(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, NewProduct{Name: "lamp", Price: price(10), Stock: 3})
	require.NoError(t, err)
	_, err = f.svc.ListPage(ctx, 1, 10)
	require.NoError(t, err)

	name := "desk lamp"
	updated, err := f.svc.Update(ctx, p.ID, domain.ProductPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "desk lamp", updated.Name)
	assert.Equal(t, 3, updated.Stock)

	res, err := f.svc.ListPage(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "desk lamp", decodePage(t, res).Products[0].Name)

	deleted, err := f.svc.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, deleted.ID)

	res, err = f.svc.ListPage(ctx, 1, 10)
	require.NoError(t, err)
	page := decodePage(t, res)
	assert.Empty(t, page.Products)
	assert.Zero(t, page.TotalPages)
}

func TestMutationsOnMissingProduct(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	stock := 1
	_, err := f.svc.Update(ctx, "missing", domain.ProductPatch{Stock: &stock})
	assertCode(t, err, apperrors.CodeNotFound, "Product not found")

	_, err = f.svc.Delete(ctx, "missing")
	assertCode(t, err, apperrors.CodeNotFound, "Product not found")
}

func TestCreateValidation(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    NewProduct
		field string
	}{
		{"missing name", NewProduct{Price: price(1)}, "name"},
		{"missing price", NewProduct{Name: "x"}, "price"},
		{"negative price", NewProduct{Name: "x", Price: price(-1)}, "price"},
		{"negative stock", NewProduct{Name: "x", Price: price(1), Stock: -2}, "stock"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.in)
			assertCode(t, err, apperrors.CodeValidation, "")
			assert.Contains(t, apperrors.ToDomainError(err).Details, tc.field)
		})
	}
	assert.Empty(t, f.products.products)
}

func TestStoreFailureIsDependencyError(t *testing.T) {
	f := newCatalogFixture(t)
	f.products.err = errStoreDown

	_, err := f.svc.Create(context.Background(), NewProduct{Name: "x", Price: price(1)})
	assertCode(t, err, apperrors.CodeDependency, "")

	_, err = f.svc.ListPage(context.Background(), 1, 10)
	assertCode(t, err, apperrors.CodeDependency, "")
}

func TestPurgeFailureDoesNotFailWrite(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	f.redis.Close()

	p, err := f.svc.Create(ctx, NewProduct{Name: "x", Price: price(1)})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)

	warnings := f.logs.FilterMessageSnippet("catalog cache purge failed").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, p.ID, warnings[0].ContextMap()["product_id"])
}

func TestPurgeSurvivesCancelledRequest(t *testing.T) {
	f := newCatalogFixture(t)
	_, err := f.svc.ListPage(context.Background(), 1, 10)
	require.NoError(t, err)
	require.True(t, f.redis.Exists("products:page:1:limit:10"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.svc.Create(ctx, NewProduct{Name: "x", Price: price(1)})
	require.NoError(t, err)
	assert.False(t, f.redis.Exists("products:page:1:limit:10"))
}

func TestPublishWithoutDispatcher(t *testing.T) {
	products := &fakeProducts{}
	svc := NewCatalogService(CatalogDependencies{Products: products})
	_, err := svc.Create(context.Background(), NewProduct{Name: "x", Price: price(0)})
	require.NoError(t, err)
	assert.Len(t, products.products, 1)
}
