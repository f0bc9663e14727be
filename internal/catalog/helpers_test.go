package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storefront/internal/cache"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/observability"
)

// memorySource is an in-memory backing store ordered by insertion.
type memorySource struct {
	mu       sync.Mutex
	products []domain.Product
	err      error
	lists    atomic.Int32

	// gate, when set, holds List until it is closed or ctx ends.
	gate chan struct{}
}

func newMemorySource(n int) *memorySource {
	src := &memorySource{}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		src.products = append(src.products, domain.Product{
			ID:        fmt.Sprintf("p%02d", i),
			Name:      fmt.Sprintf("product %d", i),
			Price:     float64(i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return src
}

func (m *memorySource) add(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append(m.products, p)
}

func (m *memorySource) List(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	m.lists.Add(1)
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if offset >= len(m.products) {
		return nil, nil
	}
	end := min(offset+limit, len(m.products))
	return append([]domain.Product(nil), m.products[offset:end]...), nil
}

func (m *memorySource) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return int64(len(m.products)), nil
}

func setupRedis(t *testing.T) (*cache.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisStore(client), mr
}

// brokenStore fails every operation.
type brokenStore struct{}

var errCacheDown = errors.New("cache down")

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errCacheDown
}

func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errCacheDown
}

func (brokenStore) Keys(context.Context, string) ([]string, error) {
	return nil, errCacheDown
}

func (brokenStore) Del(context.Context, ...string) (int64, error) {
	return 0, errCacheDown
}

func (brokenStore) Ping(context.Context) error {
	return errCacheDown
}

// cacheEvents reads the catalog cache counter for one event label.
func cacheEvents(t *testing.T, metrics *observability.Metrics, event string) float64 {
	t.Helper()
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "test_catalog_cache_events_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "event" && label.GetValue() == event {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
