package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/cache"
	"github.com/spec-kit/storefront/internal/events"
	"github.com/spec-kit/storefront/internal/observability"
)

const deleteBatch = 500

// Invalidator purges every cached page of a namespace. The purge is
// deliberately coarse: inserts and deletes shift the membership of every
// later page, so all pages go.
type Invalidator struct {
	store     cache.Store
	namespace string
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewInvalidator builds an Invalidator for namespace.
func NewInvalidator(store cache.Store, namespace string, logger *zap.Logger, metrics *observability.Metrics) *Invalidator {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{store: store, namespace: namespace, logger: logger, metrics: metrics}
}

// Purge enumerates the namespace and deletes every key found. It returns the
// number of keys removed.
func (i *Invalidator) Purge(ctx context.Context) (int64, error) {
	keys, err := i.store.Keys(ctx, NamespacePattern(i.namespace))
	if err != nil {
		i.metrics.RecordPurge(false)
		return 0, fmt.Errorf("enumerate %s cache: %w", i.namespace, err)
	}

	var removed int64
	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))
		n, err := i.store.Del(ctx, keys[start:end]...)
		if err != nil {
			i.metrics.RecordPurge(false)
			return removed, fmt.Errorf("delete %s cache: %w", i.namespace, err)
		}
		removed += n
	}

	i.metrics.RecordPurge(true)
	if removed > 0 {
		i.logger.Info("cleared catalog cache", zap.String("namespace", i.namespace), zap.Int64("keys", removed))
	}
	return removed, nil
}

// Register subscribes the purge to every catalog mutation event.
func (i *Invalidator) Register(dispatcher events.Dispatcher) {
	for _, eventType := range events.ProductEvents() {
		dispatcher.Subscribe(eventType, i.handle)
	}
}

func (i *Invalidator) handle(ctx context.Context, _ events.Event) error {
	_, err := i.Purge(ctx)
	return err
}
