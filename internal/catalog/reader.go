package catalog

import (
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/storefront/internal/cache"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/events"
	"github.com/spec-kit/storefront/internal/observability"
	apperrors "github.com/spec-kit/storefront/pkg/util"
)

// Source is the backing store as seen by the read path.
type Source interface {
	List(ctx context.Context, offset, limit int) ([]domain.Product, error)
	Count(ctx context.Context) (int64, error)
}

// PageResult carries the serialized envelope exactly as it is served.
type PageResult struct {
	Body   []byte
	Cached bool
}

// Reader serves pages read-through: cache first, backing store on miss.
type Reader struct {
	store     cache.Store
	source    Source
	namespace   string
	ttl         time.Duration
	loadTimeout time.Duration
	logger      *zap.Logger
	metrics     *observability.Metrics
	group       singleflight.Group

	// generation is bumped on every local write so misses arriving after a
	// purge never join a load that started before it.
	generation atomic.Uint64
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	Namespace   string
	TTL         time.Duration
	// LoadTimeout bounds a shared backing-store load, which outlives the
	// request that started it.
	LoadTimeout time.Duration
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// NewReader builds a Reader.
func NewReader(store cache.Store, source Source, opts ReaderOptions) *Reader {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.TTL <= 0 {
		opts.TTL = 60 * time.Second
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Reader{
		store:       store,
		source:      source,
		namespace:   opts.Namespace,
		ttl:         opts.TTL,
		loadTimeout: opts.LoadTimeout,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
}

// Page returns the envelope for q. Cache failures never fail the request;
// backing-store failures surface as dependency errors.
func (r *Reader) Page(ctx context.Context, q Query) (*PageResult, error) {
	key := PageKey(r.namespace, q)

	body, ok, err := r.store.Get(ctx, key)
	cacheUp := err == nil
	switch {
	case err != nil:
		r.metrics.RecordCacheEvent(observability.CacheBypass)
		r.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
	case ok && json.Valid(body):
		r.metrics.RecordCacheEvent(observability.CacheHit)
		return &PageResult{Body: body, Cached: true}, nil
	case ok:
		r.logger.Warn("discarding undecodable cached page", zap.String("key", key))
	}
	r.metrics.RecordCacheEvent(observability.CacheMiss)

	// Concurrent misses on the same key share one backing-store query. The
	// load runs detached from any single caller so a cancelled leader never
	// fails the followers; each caller still stops waiting on its own ctx.
	flight := key + "#" + strconv.FormatUint(r.generation.Load(), 10)
	ch := r.group.DoChan(flight, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.loadTimeout)
		defer cancel()
		return r.load(lctx, key, q, cacheUp)
	})
	select {
	case <-ctx.Done():
		return nil, apperrors.NewDependencyError("catalog store", ctx.Err())
	case res := <-ch:
		if res.Shared {
			r.metrics.RecordCacheEvent(observability.CacheShared)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return &PageResult{Body: res.Val.([]byte)}, nil
	}
}

func (r *Reader) load(ctx context.Context, key string, q Query, cacheUp bool) ([]byte, error) {
	var (
		products []domain.Product
		total    int64
	)
	// Slice and count are separate reads; a write landing between them can
	// leave totalPages out of step with the slice.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = r.source.List(gctx, q.Skip(), q.Limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = r.source.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewDependencyError("catalog store", err)
	}

	if products == nil {
		products = []domain.Product{}
	}
	body, err := json.Marshal(domain.CatalogPage{
		Page:          q.Page,
		TotalPages:    TotalPages(total, q.Limit),
		TotalProducts: total,
		Products:      products,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if cacheUp {
		if err := r.store.Set(ctx, key, body, r.ttl); err != nil {
			r.metrics.RecordCacheEvent(observability.CacheWriteError)
			r.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return body, nil
}

// Register makes the reader observe local catalog mutations.
func (r *Reader) Register(dispatcher events.Dispatcher) {
	for _, eventType := range events.ProductEvents() {
		dispatcher.Subscribe(eventType, func(context.Context, events.Event) error {
			r.generation.Add(1)
			return nil
		})
	}
}
